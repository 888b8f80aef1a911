package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"quiz_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text   string
	err    error
	model  string
	prompt string
	delay  time.Duration
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeGenerator) Model() string {
	return f.model
}

func intPtr(v int) *int {
	return &v
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{5, 10, 50},
		{9, 10, 90},
		{1, 3, 33},
		{2, 3, 67},
		{29, 200, 15},
		{0, 7, 0},
		{7, 7, 100},
		{1e17, 1e17, 100},
		{5e17, 1e18, 50},
		{math.MaxInt / 2, math.MaxInt, 50},
		{math.MaxInt, math.MaxInt, 100},
		{0, math.MaxInt, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.score, tt.total), "%d/%d", tt.score, tt.total)
	}
}

func TestSelectTierBoundaries(t *testing.T) {
	tests := []struct {
		percentage int
		want       string
	}{
		{100, "mastery"},
		{90, "mastery"},
		{89, "strong"},
		{80, "strong"},
		{79, "good"},
		{70, "good"},
		{69, "progressing"},
		{60, "progressing"},
		{59, "encouragement"},
		{50, "encouragement"},
		{49, "persistence"},
		{0, "persistence"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectTier(tt.percentage).Name, "percentage %d", tt.percentage)
	}
}

func TestEveryTierMentionsAllValues(t *testing.T) {
	for _, tier := range feedbackTiers {
		msg := tier.Render("Chemistry", 3, 11, 27)
		assert.Contains(t, msg, "Chemistry", tier.Name)
		assert.Contains(t, msg, "3", tier.Name)
		assert.Contains(t, msg, "11", tier.Name)
		assert.Contains(t, msg, "27%", tier.Name)
		assert.NotContains(t, msg, "{", tier.Name)
	}
}

func TestGenerateFallbackWhenAIUnavailable(t *testing.T) {
	svc := NewFeedbackService(nil, nil, time.Second)

	result, err := svc.Generate(context.Background(), FeedbackRequest{Topic: "Algebra", Score: intPtr(5), Total: intPtr(10)})
	require.NoError(t, err)

	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, "encouragement", result.Tier)
	assert.Equal(t, 50, result.Percentage)
	assert.Contains(t, result.Feedback, "Algebra")
	assert.Contains(t, result.Feedback, "5")
	assert.Contains(t, result.Feedback, "10")
	assert.Contains(t, result.Feedback, "50%")
	assert.Equal(t, util.ErrAINotConfigured.Error(), result.FallbackReason)
	assert.Empty(t, result.Model)
}

func TestGenerateLargeScores(t *testing.T) {
	svc := NewFeedbackService(nil, nil, time.Second)

	result, err := svc.Generate(context.Background(), FeedbackRequest{Topic: "X", Score: intPtr(1e17), Total: intPtr(1e17)})
	require.NoError(t, err)
	assert.Equal(t, 100, result.Percentage)
	assert.Equal(t, "mastery", result.Tier)
	assert.Contains(t, result.Feedback, "100000000000000000")
}

func TestGenerateFallbackTierAtBoundaries(t *testing.T) {
	svc := NewFeedbackService(nil, nil, time.Second)

	result, err := svc.Generate(context.Background(), FeedbackRequest{Topic: "Go", Score: intPtr(9), Total: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, "mastery", result.Tier)

	result, err = svc.Generate(context.Background(), FeedbackRequest{Topic: "Go", Score: intPtr(8), Total: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, "strong", result.Tier)
}

func TestGenerateUsesAI(t *testing.T) {
	gen := &fakeGenerator{text: "  You did great on Algebra!  ", model: "gemini-2.5-flash"}
	svc := NewFeedbackService(gen, nil, time.Second)

	result, err := svc.Generate(context.Background(), FeedbackRequest{QuizTopic: "Algebra", Score: intPtr(7), Total: intPtr(10)})
	require.NoError(t, err)

	assert.True(t, result.IsAIGenerated)
	assert.Equal(t, "You did great on Algebra!", result.Feedback)
	assert.Equal(t, "gemini-2.5-flash", result.Model)
	assert.Empty(t, result.FallbackReason)
	assert.Equal(t, "good", result.Tier)

	assert.Contains(t, gen.prompt, `"Algebra"`)
	assert.Contains(t, gen.prompt, "scored 7 out of 10")
	assert.Contains(t, gen.prompt, "(70%)")
	assert.Contains(t, gen.prompt, `"you"`)
}

func TestGenerateFallsBackOnAIError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	svc := NewFeedbackService(gen, nil, time.Second)

	result, err := svc.Generate(context.Background(), FeedbackRequest{Topic: "History", Score: intPtr(2), Total: intPtr(10)})
	require.NoError(t, err)

	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, "persistence", result.Tier)
	assert.Equal(t, "quota exceeded", result.FallbackReason)
	assert.Contains(t, result.Feedback, "History")
}

func TestGenerateFallsBackOnEmptyAIText(t *testing.T) {
	svc := NewFeedbackService(&fakeGenerator{text: "   "}, nil, time.Second)

	result, err := svc.Generate(context.Background(), FeedbackRequest{Topic: "History", Score: intPtr(6), Total: intPtr(10)})
	require.NoError(t, err)
	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, "progressing", result.Tier)
	assert.Equal(t, "AI returned empty feedback", result.FallbackReason)
}

func TestGenerateFallsBackOnTimeout(t *testing.T) {
	gen := &fakeGenerator{text: "late", delay: time.Second}
	svc := NewFeedbackService(gen, nil, 20*time.Millisecond)

	result, err := svc.Generate(context.Background(), FeedbackRequest{Topic: "Physics", Score: intPtr(10), Total: intPtr(10)})
	require.NoError(t, err)
	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, context.DeadlineExceeded.Error(), result.FallbackReason)
	assert.Equal(t, "mastery", result.Tier)
}

func TestSetGeneratorSwapsProvider(t *testing.T) {
	svc := NewFeedbackService(nil, errors.New("bad key"), time.Second)
	req := FeedbackRequest{Topic: "Art", Score: intPtr(1), Total: intPtr(2)}

	result, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "bad key", result.FallbackReason)

	svc.SetGenerator(&fakeGenerator{text: "Keep going!", model: "m2"}, nil, time.Second)
	result, err = svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsAIGenerated)
	assert.Equal(t, "m2", result.Model)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  FeedbackRequest
	}{
		{"missing topic", FeedbackRequest{Score: intPtr(1), Total: intPtr(2)}},
		{"blank topic", FeedbackRequest{Topic: "   ", Score: intPtr(1), Total: intPtr(2)}},
		{"missing score", FeedbackRequest{Topic: "Go", Total: intPtr(2)}},
		{"missing total", FeedbackRequest{Topic: "Go", Score: intPtr(1)}},
		{"zero total", FeedbackRequest{Topic: "Go", Score: intPtr(0), Total: intPtr(0)}},
		{"negative score", FeedbackRequest{Topic: "Go", Score: intPtr(-1), Total: intPtr(2)}},
		{"score above total", FeedbackRequest{Topic: "Go", Score: intPtr(3), Total: intPtr(2)}},
	}

	svc := NewFeedbackService(&fakeGenerator{text: "unused"}, nil, time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
		})
	}
}
