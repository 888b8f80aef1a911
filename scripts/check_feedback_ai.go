// 手动检查 AI 反馈通道是否可用
//
// 读取 .env 与 configs/config.yaml，向配置的 AI 提供方发送一次反馈请求并打印结果。
// 未配置 API Key 或调用失败时会看到兜底文案及 fallbackReason。
//
// 用法: go run scripts/check_feedback_ai.go -topic Algebra -score 7 -total 10

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"quiz_backend/internal/config"
	"quiz_backend/internal/service"
	"quiz_backend/pkg/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type checkReport struct {
	Provider       string    `yaml:"provider"`
	Model          string    `yaml:"model"`
	IsAIGenerated  bool      `yaml:"is_ai_generated"`
	FallbackReason string    `yaml:"fallback_reason,omitempty"`
	Tier           string    `yaml:"tier"`
	Percentage     int       `yaml:"percentage"`
	Feedback       string    `yaml:"feedback"`
	Elapsed        string    `yaml:"elapsed"`
	Timestamp      time.Time `yaml:"timestamp"`
}

func main() {
	topic := flag.String("topic", "JavaScript", "测验主题")
	score := flag.Int("score", 8, "得分")
	total := flag.Int("total", 10, "总题数")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg)

	generator, cause := service.NewTextGenerator(context.Background(), cfg.AI)
	if cause != nil {
		generator = nil
	}
	feedback := service.NewFeedbackService(generator, cause, cfg.AI.Timeout)

	start := time.Now()
	result, err := feedback.Generate(context.Background(), service.FeedbackRequest{
		Topic: *topic,
		Score: score,
		Total: total,
	})
	if err != nil {
		log.Fatalf("请求参数无效: %v", err)
	}

	report := checkReport{
		Provider:       cfg.AI.Provider,
		Model:          cfg.AI.Model,
		IsAIGenerated:  result.IsAIGenerated,
		FallbackReason: result.FallbackReason,
		Tier:           result.Tier,
		Percentage:     result.Percentage,
		Feedback:       result.Feedback,
		Elapsed:        time.Since(start).Round(time.Millisecond).String(),
		Timestamp:      result.Timestamp,
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		log.Fatalf("输出结果失败: %v", err)
	}

	if !result.IsAIGenerated {
		os.Exit(1)
	}
}
