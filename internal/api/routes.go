package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/api/handlers"
	"debate_arena/internal/middleware"
	"debate_arena/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	debateHandler := handlers.NewDebateHandler(services.Debate)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocket, services.Debate)

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// 公開路由
	{
		// 用戶認證相關
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 辯論相關
		debates := authorized.Group("/debates")
		{
			// 基本操作
			debates.GET("", debateHandler.ListDebates)   // 獲取辯論列表
			debates.POST("", debateHandler.CreateDebate) // 創建辯論
			debates.GET("/:id", debateHandler.GetDebate) // 獲取辯論信息

			// 加入審核流程
			debates.POST("/:id/join-requests", debateHandler.RequestJoin)              // 提出加入請求
			debates.GET("/:id/join-requests", debateHandler.ListJoinRequests)          // 列出待審請求（創建者）
			debates.PUT("/:id/join-requests/:userID", debateHandler.ResolveJoinRequest) // 批准或拒絕

			// 辯論進行
			debates.POST("/:id/join", debateHandler.Join)            // 入座
			debates.POST("/:id/start", debateHandler.Start)          // 開始辯論
			debates.POST("/:id/arguments", debateHandler.SubmitArgument) // 提交發言
			debates.GET("/:id/arguments", debateHandler.ListArguments)   // 獲取發言記錄
			debates.POST("/:id/timeout", debateHandler.TimeoutTurn)  // 回合超時判定
			debates.GET("/:id/time", debateHandler.GetRemainingTime) // 當前回合剩餘時間

			// 賽後總評
			debates.GET("/:id/analysis", debateHandler.GetAnalysis)
			debates.POST("/:id/analysis", debateHandler.TriggerAnalysis)

			// WebSocket 訂閱
			debates.GET("/:id/ws", wsHandler.HandleWebSocket) // WebSocket 連接點
		}
	}
}
