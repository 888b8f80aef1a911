package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz_backend/internal/config"
	"quiz_backend/internal/controller"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) GenerateText(context.Context, string) (string, error) {
	return g.text, g.err
}

func (g *stubGenerator) Model() string {
	return "stub-model"
}

type testServer struct {
	router   *gin.Engine
	feedback *service.FeedbackService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite"},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	repo := repository.NewGormQuizRepository(db)
	feedback := service.NewFeedbackService(nil, nil, time.Second)

	c := &controllers{
		quiz:     controller.NewQuizController(service.NewQuizService(repo)),
		feedback: controller.NewFeedbackController(feedback),
		health:   controller.NewHealthController(repo, cfg.Database.Driver),
	}
	return &testServer{router: newRouter(cfg, c), feedback: feedback}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type quizResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	TimeLimit  int    `json:"timeLimit"`
	Category   string `json:"category"`
	Questions  []struct {
		ID            string   `json:"id"`
		QuestionText  string   `json:"questionText"`
		Options       []string `json:"options"`
		CorrectAnswer *string  `json:"correctAnswer"`
	} `json:"questions"`
}

var letterQuiz = map[string]interface{}{
	"title": "Letters",
	"questions": []map[string]interface{}{
		{"questionText": "First?", "options": []string{"A", "B", "C"}, "correctAnswer": "A"},
		{"questionText": "Second?", "options": []string{"A", "B", "C"}, "correctAnswer": "B"},
		{"questionText": "Third?", "options": []string{"A", "B", "C"}, "correctAnswer": "C"},
	},
}

func createLetterQuiz(t *testing.T, s *testServer) quizResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/quizzes", letterQuiz)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var quiz quizResponse
	decode(t, w, &quiz)
	require.Len(t, quiz.Questions, 3)
	return quiz
}

func TestLivenessAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Backend server is running!", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "sqlite", health["driver"])
}

func TestQuizLifecycle(t *testing.T) {
	s := newTestServer(t)

	created := createLetterQuiz(t, s)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Medium", created.Difficulty)
	assert.Equal(t, 300, created.TimeLimit)
	assert.Equal(t, "General", created.Category)
	require.NotNil(t, created.Questions[0].CorrectAnswer)
	assert.Equal(t, "A", *created.Questions[0].CorrectAnswer)

	w := s.do(t, http.MethodGet, "/api/quizzes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0]["id"])
	assert.EqualValues(t, 3, list[0]["questionCount"])
	assert.NotContains(t, list[0], "questions")

	w = s.do(t, http.MethodGet, "/api/quizzes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "correctAnswer")
	var fetched quizResponse
	decode(t, w, &fetched)
	assert.Equal(t, created.Questions[1].ID, fetched.Questions[1].ID)

	w = s.do(t, http.MethodPut, "/api/quizzes/"+created.ID, map[string]interface{}{"title": "Letters II", "difficulty": "Hard"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated quizResponse
	decode(t, w, &updated)
	assert.Equal(t, "Letters II", updated.Title)
	assert.Equal(t, "Hard", updated.Difficulty)
	assert.Equal(t, 300, updated.TimeLimit)
	assert.Len(t, updated.Questions, 3)

	w = s.do(t, http.MethodDelete, "/api/quizzes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted")

	w = s.do(t, http.MethodGet, "/api/quizzes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/quizzes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitQuiz(t *testing.T) {
	s := newTestServer(t)
	quiz := createLetterQuiz(t, s)

	w := s.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", map[string]interface{}{
		"answers": map[string]string{
			quiz.Questions[0].ID: "A",
			quiz.Questions[1].ID: "X",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var result service.ScoreResult
	decode(t, w, &result)
	assert.Equal(t, service.ScoreResult{Score: 1, Total: 3}, result)

	w = s.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", map[string]interface{}{})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.Equal(t, service.ScoreResult{Score: 0, Total: 3}, result)

	w = s.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", `{"answers": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/quizzes/unknown/submit", map[string]interface{}{"answers": map[string]string{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	var errResp util.Response
	decode(t, w, &errResp)
	assert.Equal(t, util.Response{Code: http.StatusNotFound, Message: "Quiz not found"}, errResp)
}

func TestSubmitQuizLooksUpQuizBeforeBody(t *testing.T) {
	s := newTestServer(t)
	quiz := createLetterQuiz(t, s)

	for _, body := range []string{"", `{"answers": {"q1": 1}}`, `{"answers": [`} {
		w := s.do(t, http.MethodPost, "/api/quizzes/nope/submit", body)
		assert.Equal(t, http.StatusNotFound, w.Code, body)
	}

	w := s.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", "")
	require.Equal(t, http.StatusOK, w.Code)
	var result service.ScoreResult
	decode(t, w, &result)
	assert.Equal(t, service.ScoreResult{Score: 0, Total: 3}, result)

	w = s.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", map[string]interface{}{
		"answers": map[string]interface{}{
			quiz.Questions[0].ID: 1,
			quiz.Questions[1].ID: "B",
			quiz.Questions[2].ID: nil,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &result)
	assert.Equal(t, service.ScoreResult{Score: 1, Total: 3}, result)

	w = s.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", `{"answers": "A"}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.Equal(t, 0, result.Score)
}

func TestCreateQuizRejectsInvalidInput(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/quizzes", map[string]interface{}{"title": "Empty", "questions": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp util.Response
	decode(t, w, &errResp)
	assert.Equal(t, http.StatusBadRequest, errResp.Code)
	assert.Equal(t, "at least one question is required", errResp.Message)

	w = s.do(t, http.MethodPost, "/api/quizzes", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/quizzes", nil)
	assert.Equal(t, "[]", w.Body.String())
}

func TestFeedbackEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/feedback", map[string]interface{}{"topic": "Algebra", "score": 5, "total": 10})
	require.Equal(t, http.StatusOK, w.Code)
	var result service.FeedbackResult
	decode(t, w, &result)
	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, "encouragement", result.Tier)
	assert.Contains(t, result.Feedback, "Algebra")
	assert.Contains(t, result.Feedback, "50%")

	s.feedback.SetGenerator(&stubGenerator{text: "Well done on Algebra!"}, nil, time.Second)
	w = s.do(t, http.MethodPost, "/api/feedback", map[string]interface{}{"quizTopic": "Algebra", "score": 9, "total": 10})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.True(t, result.IsAIGenerated)
	assert.Equal(t, "Well done on Algebra!", result.Feedback)
	assert.Equal(t, "stub-model", result.Model)

	s.feedback.SetGenerator(&stubGenerator{err: errors.New("upstream down")}, nil, time.Second)
	w = s.do(t, http.MethodPost, "/api/feedback", map[string]interface{}{"topic": "Algebra", "score": 9, "total": 10})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, "mastery", result.Tier)

	w = s.do(t, http.MethodPost, "/api/feedback", map[string]interface{}{"topic": "Algebra", "score": 1, "total": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/feedback", map[string]interface{}{"score": 1, "total": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnConfigReloadRebindsGenerator(t *testing.T) {
	feedback := service.NewFeedbackService(&stubGenerator{text: "hi"}, nil, time.Second)
	a := &App{
		Config:   &config.Config{AI: config.AIConfig{Provider: "openai", APIKey: "old", Model: "m1"}},
		services: &services{feedback: feedback},
	}

	a.onConfigReload(&config.Config{AI: config.AIConfig{Provider: "openai", Model: "m1"}})

	result, err := feedback.Generate(context.Background(), service.FeedbackRequest{Topic: "Go", Score: intPtr(1), Total: intPtr(1)})
	require.NoError(t, err)
	assert.False(t, result.IsAIGenerated)
	assert.Equal(t, util.ErrAINotConfigured.Error(), result.FallbackReason)
	assert.Empty(t, a.Config.AI.APIKey)
}

func intPtr(v int) *int {
	return &v
}
