package service

import (
	"context"
	"errors"

	"quiz_backend/internal/config"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg config.AIConfig) (*GeminiClient, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
