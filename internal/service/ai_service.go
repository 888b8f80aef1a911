package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"quiz_backend/internal/config"
	"quiz_backend/internal/util"
)

// TextGenerator 生成式 AI 文本能力，Gemini 与 OpenAI 兼容接口各有一个实现
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Model() string
}

// NewTextGenerator 未配置 API Key 时返回 util.ErrAINotConfigured
func NewTextGenerator(ctx context.Context, cfg config.AIConfig) (TextGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, util.ErrAINotConfigured
	}

	switch cfg.Provider {
	case "openai":
		return NewAIService(cfg), nil
	case "gemini", "":
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// AIService 调用 OpenAI 兼容的 /chat/completions 接口
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = baseURL
	return &AIService{config: cfg, client: &http.Client{}}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const tutorSystemPrompt = "You are an encouraging and knowledgeable tutor."

func (s *AIService) Model() string {
	return s.config.Model
}

func (s *AIService) GenerateText(ctx context.Context, prompt string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: tutorSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}
