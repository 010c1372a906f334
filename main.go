package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"debate_arena/internal/api"
	"debate_arena/internal/config"
	"debate_arena/internal/judge"
	"debate_arena/internal/models"
	"debate_arena/internal/repository"
	"debate_arena/internal/service"
	"debate_arena/internal/storage"
)

func main() {
	// 載入 .env（若存在），讓本地開發不用手動導出環境變數
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// 載入應用程式配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化資料庫連接
	db, err := storage.NewPostgresDB(cfg.DB.Host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Port)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	// 確保在程序結束時關閉資料庫連接
	defer db.Close()

	// 自動遷移資料庫結構
	if err := db.AutoMigrate(
		&models.User{},
		&models.Debate{},
		&models.Argument{},
		&models.JoinRequest{},
		&models.DebateAnalysis{},
	); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	// 初始化 repositories
	repos := repository.NewRepositories(db)

	// 初始化外部評審客戶端
	judgeClient := judge.NewClient(judge.Config{
		BaseURL: cfg.Judge.BaseURL,
		APIKey:  cfg.Judge.APIKey,
		Model:   cfg.Judge.Model,
	})

	// 初始化 services
	services := service.NewServices(repos, service.Options{
		Judge:             judgeClient,
		JudgeTimeout:      time.Duration(cfg.Judge.TimeoutSeconds) * time.Second,
		MaxArgumentLength: cfg.Debate.MaxArgumentLength,
	})

	// 設置 Gin 路由
	r := gin.Default()
	api.SetupRoutes(r, services)

	// 啟動伺服器
	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
