package util

import "errors"

var (
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAINotConfigured = errors.New("AI provider not configured")
)
