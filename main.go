// @title Quiz 后端 API
// @version 1.0
// @description 测验管理、评分与 AI 学习反馈服务。

// @host localhost:5001
// @BasePath /api

package main

import (
	"flag"
	"log"

	"quiz_backend/internal/app"
	"quiz_backend/internal/config"
	"quiz_backend/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件 config.yaml 所在目录")
	envFile := flag.String("env", ".env", "启动时加载的 .env 文件，不存在时忽略")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file loaded: %v", *envFile, err)
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.Run()
}
