package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"quiz_backend/internal/util"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type FeedbackRequest struct {
	Topic     string `json:"topic"`
	QuizTopic string `json:"quizTopic"` // 兼容旧前端字段
	Score     *int   `json:"score"`
	Total     *int   `json:"total"`
}

type FeedbackResult struct {
	Feedback       string    `json:"feedback"`
	IsAIGenerated  bool      `json:"isAIGenerated"`
	Model          string    `json:"model,omitempty"`
	FallbackReason string    `json:"fallbackReason,omitempty"`
	Topic          string    `json:"topic"`
	Score          int       `json:"score"`
	Total          int       `json:"total"`
	Percentage     int       `json:"percentage"`
	Tier           string    `json:"tier"`
	Timestamp      time.Time `json:"timestamp"`
}

// FeedbackTier 分数段与兜底文案模板，模板占位符：{topic} {score} {total} {percentage}
type FeedbackTier struct {
	Name          string
	MinPercentage int
	Template      string
}

// feedbackTiers 按阈值从高到低排列，首个满足的生效
var feedbackTiers = []FeedbackTier{
	{
		Name:          "mastery",
		MinPercentage: 90,
		Template:      "Outstanding work! You scored {score} out of {total} ({percentage}%) on {topic}. You have clearly mastered this material, so challenge yourself with more advanced {topic} problems next.",
	},
	{
		Name:          "strong",
		MinPercentage: 80,
		Template:      "Great job! You scored {score} out of {total} ({percentage}%) on {topic}. You have a strong grasp of the fundamentals; review the questions you missed and you will be at mastery level soon.",
	},
	{
		Name:          "good",
		MinPercentage: 70,
		Template:      "Good work! You scored {score} out of {total} ({percentage}%) on {topic}. You understand most of the key ideas; revisit the tricky areas to lock in your knowledge.",
	},
	{
		Name:          "progressing",
		MinPercentage: 60,
		Template:      "Nice progress! You scored {score} out of {total} ({percentage}%) on {topic}. You are on the right track; a focused review of the concepts you missed will lift your score quickly.",
	},
	{
		Name:          "encouragement",
		MinPercentage: 50,
		Template:      "You're halfway there! You scored {score} out of {total} ({percentage}%) on {topic}. Keep practicing the core {topic} concepts and your next attempt will show real improvement.",
	},
	{
		Name:          "persistence",
		MinPercentage: 0,
		Template:      "Don't give up! You scored {score} out of {total} ({percentage}%) on {topic}. Every expert started where you are; go back over the {topic} basics step by step and try again.",
	},
}

// Percentage 计算 round(100*score/total)，.5 向上取整，要求 0 <= score <= total 且 total > 0
func Percentage(score, total int) int {
	if total <= math.MaxInt/400 {
		return (200*score + total) / (2 * total)
	}
	// 大数走 big.Int，避免 200*score 溢出
	n := new(big.Int).Mul(big.NewInt(int64(score)), big.NewInt(200))
	n.Add(n, big.NewInt(int64(total)))
	n.Quo(n, new(big.Int).Mul(big.NewInt(int64(total)), big.NewInt(2)))
	return int(n.Int64())
}

func SelectTier(percentage int) FeedbackTier {
	for _, tier := range feedbackTiers {
		if percentage >= tier.MinPercentage {
			return tier
		}
	}
	return feedbackTiers[len(feedbackTiers)-1]
}

func (t FeedbackTier) Render(topic string, score, total, percentage int) string {
	return strings.NewReplacer(
		"{topic}", topic,
		"{score}", strconv.Itoa(score),
		"{total}", strconv.Itoa(total),
		"{percentage}", strconv.Itoa(percentage),
	).Replace(t.Template)
}

func BuildFeedbackPrompt(topic string, score, total, percentage int) string {
	return fmt.Sprintf(`You are an encouraging and knowledgeable tutor. A student just completed a quiz on "%s" and scored %d out of %d questions correctly (%d%%).

Please provide personalized feedback that:
1. Acknowledges their performance with appropriate encouragement
2. Gives specific advice based on their score level
3. Suggests next steps for improvement or further learning
4. Maintains a positive, motivating tone
5. Keeps the response to 2-3 sentences maximum

Make it personal by addressing them directly as "you" and be specific about the %s topic.`, topic, score, total, percentage, topic)
}

type aiBinding struct {
	generator TextGenerator
	cause     error
	timeout   time.Duration
}

// FeedbackService 优先调用 AI 生成鼓励语，AI 未配置或调用失败时按分数段返回兜底文案
type FeedbackService struct {
	binding atomic.Pointer[aiBinding]
}

// NewFeedbackService generator 为 nil 时 cause 说明原因，所有请求走兜底文案
func NewFeedbackService(generator TextGenerator, cause error, timeout time.Duration) *FeedbackService {
	s := &FeedbackService{}
	s.SetGenerator(generator, cause, timeout)
	return s
}

// SetGenerator 配置热更新时替换 AI 实现
func (s *FeedbackService) SetGenerator(generator TextGenerator, cause error, timeout time.Duration) {
	if generator == nil && cause == nil {
		cause = util.ErrAINotConfigured
	}
	s.binding.Store(&aiBinding{generator: generator, cause: cause, timeout: timeout})
}

func (s *FeedbackService) validate(req FeedbackRequest) (string, int, int, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = strings.TrimSpace(req.QuizTopic)
	}
	if topic == "" {
		return "", 0, 0, fmt.Errorf("%w: topic is required", util.ErrInvalidInput)
	}
	if req.Score == nil || req.Total == nil {
		return "", 0, 0, fmt.Errorf("%w: score and total are required", util.ErrInvalidInput)
	}

	score, total := *req.Score, *req.Total
	switch {
	case total <= 0:
		return "", 0, 0, fmt.Errorf("%w: total must be greater than zero", util.ErrInvalidInput)
	case score < 0:
		return "", 0, 0, fmt.Errorf("%w: score must not be negative", util.ErrInvalidInput)
	case score > total:
		return "", 0, 0, fmt.Errorf("%w: score must not exceed total", util.ErrInvalidInput)
	}
	return topic, score, total, nil
}

func (s *FeedbackService) Generate(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error) {
	topic, score, total, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	percentage := Percentage(score, total)
	tier := SelectTier(percentage)

	ctx, span := tracing.Tracer.Start(ctx, "FeedbackService.Generate", trace.WithAttributes(
		attribute.String("feedback.topic", topic),
		attribute.Int("feedback.percentage", percentage),
	))
	defer span.End()

	result := &FeedbackResult{
		Topic:      topic,
		Score:      score,
		Total:      total,
		Percentage: percentage,
		Tier:       tier.Name,
		Timestamp:  time.Now(),
	}

	text, model, aiErr := s.generateWithAI(ctx, topic, score, total, percentage)
	if aiErr == nil {
		result.Feedback = text
		result.IsAIGenerated = true
		result.Model = model
		span.SetAttributes(attribute.String("feedback.source", "ai"))
		monitoring.FeedbackCounter.WithLabelValues("ai").Inc()
		return result, nil
	}

	logger.Log.Warn("AI feedback unavailable, using fallback",
		zap.String("topic", topic),
		zap.String("tier", tier.Name),
		zap.Error(aiErr),
	)
	result.Feedback = tier.Render(topic, score, total, percentage)
	result.FallbackReason = aiErr.Error()
	span.SetAttributes(attribute.String("feedback.source", "fallback"))
	monitoring.FeedbackCounter.WithLabelValues("fallback").Inc()
	return result, nil
}

func (s *FeedbackService) generateWithAI(ctx context.Context, topic string, score, total, percentage int) (string, string, error) {
	binding := s.binding.Load()
	if binding.generator == nil {
		return "", "", binding.cause
	}

	if binding.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, binding.timeout)
		defer cancel()
	}

	text, err := binding.generator.GenerateText(ctx, BuildFeedbackPrompt(topic, score, total, percentage))
	if err != nil {
		return "", "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", errors.New("AI returned empty feedback")
	}
	return text, binding.generator.Model(), nil
}
