package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Judge  JudgeConfig
	Debate DebateConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// JudgeConfig 是外部 LLM 評審服務的連線配置
type JudgeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DebateConfig 是辯論規則的預設值
type DebateConfig struct {
	MaxArgumentLength int `mapstructure:"max_argument_length"` // 發言長度上限（字元數）
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	// 環境變數可覆寫任何配置項，例如 JUDGE_API_KEY 對應 judge.api_key
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("judge.base_url", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("judge.model", "gpt-4o-mini")
	viper.SetDefault("judge.timeout_seconds", 20)
	viper.SetDefault("debate.max_argument_length", 2000)

	if err := viper.ReadInConfig(); err != nil {
		// 配置文件是可選的，缺檔時沿用預設值與環境變數
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
