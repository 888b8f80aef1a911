package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/monitoring"
)

type QuizService struct {
	Repo repository.QuizRepository
}

func NewQuizService(repo repository.QuizRepository) *QuizService {
	return &QuizService{Repo: repo}
}

type QuestionRequest struct {
	ID            string   `json:"id"` // 更新时携带原 ID 以保留题目身份
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type CreateQuizRequest struct {
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	Difficulty  *string           `json:"difficulty"`
	TimeLimit   *int              `json:"timeLimit"`
	Category    *string           `json:"category"`
	Questions   []QuestionRequest `json:"questions"`
}

// UpdateQuizRequest 只覆盖请求中出现的字段
type UpdateQuizRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Difficulty  *string            `json:"difficulty"`
	TimeLimit   *int               `json:"timeLimit"`
	Category    *string            `json:"category"`
	Questions   *[]QuestionRequest `json:"questions"`
}

type SubmitQuizRequest struct {
	Answers Submission `json:"answers"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateDifficulty(d string) (model.Difficulty, error) {
	difficulty := model.Difficulty(d)
	if !difficulty.Valid() {
		return "", invalid("difficulty must be one of Easy, Medium, Hard")
	}
	return difficulty, nil
}

func validateTimeLimit(limit int) error {
	if limit <= 0 {
		return invalid("timeLimit must be a positive number of seconds")
	}
	return nil
}

// buildQuestions 校验题目并分配 ID，existing 中存在的 ID 会被沿用
func buildQuestions(reqs []QuestionRequest, existing map[string]model.Question) ([]model.Question, error) {
	if len(reqs) == 0 {
		return nil, invalid("at least one question is required")
	}

	seen := make(map[string]bool, len(reqs))
	questions := make([]model.Question, len(reqs))
	for i, req := range reqs {
		if strings.TrimSpace(req.QuestionText) == "" {
			return nil, invalid("question %d: questionText is required", i+1)
		}
		if req.CorrectAnswer == "" {
			return nil, invalid("question %d: correctAnswer is required", i+1)
		}
		if len(req.Options) > 0 && !containsString(req.Options, req.CorrectAnswer) {
			return nil, invalid("question %d: correctAnswer must match one of the options", i+1)
		}

		base := model.UUIDBase{ID: model.GenerateUUID()}
		if prev, ok := existing[req.ID]; ok && !seen[req.ID] {
			base = model.UUIDBase{ID: prev.ID, CreatedAt: prev.CreatedAt}
		}
		seen[base.ID] = true

		questions[i] = model.Question{
			UUIDBase:      base,
			QuestionText:  req.QuestionText,
			Options:       model.NormalizeOptions(req.Options),
			CorrectAnswer: req.CorrectAnswer,
			Position:      i,
		}
	}
	return questions, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func (s *QuizService) CreateQuiz(ctx context.Context, req CreateQuizRequest) (*model.Quiz, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}

	questions, err := buildQuestions(req.Questions, nil)
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		UUIDBase:   model.UUIDBase{ID: model.GenerateUUID()},
		Title:      title,
		Difficulty: model.DefaultDifficulty,
		TimeLimit:  model.DefaultTimeLimit,
		Category:   model.DefaultCategory,
		Questions:  questions,
	}

	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Difficulty != nil {
		if quiz.Difficulty, err = validateDifficulty(*req.Difficulty); err != nil {
			return nil, err
		}
	}
	if req.TimeLimit != nil {
		if err := validateTimeLimit(*req.TimeLimit); err != nil {
			return nil, err
		}
		quiz.TimeLimit = *req.TimeLimit
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		quiz.Category = strings.TrimSpace(*req.Category)
	}

	if err := s.Repo.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) ListQuizzes(ctx context.Context) ([]model.QuizSummary, error) {
	summaries, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []model.QuizSummary{}
	}
	return summaries, nil
}

// GetQuiz 返回去除正确答案的视图
func (s *QuizService) GetQuiz(ctx context.Context, id string) (*model.PublicQuiz, error) {
	quiz, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	public := quiz.Public()
	return &public, nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, id string, req UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		quiz.Title = title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Difficulty != nil {
		if quiz.Difficulty, err = validateDifficulty(*req.Difficulty); err != nil {
			return nil, err
		}
	}
	if req.TimeLimit != nil {
		if err := validateTimeLimit(*req.TimeLimit); err != nil {
			return nil, err
		}
		quiz.TimeLimit = *req.TimeLimit
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, invalid("category must not be empty")
		}
		quiz.Category = category
	}

	replaceQuestions := req.Questions != nil
	if replaceQuestions {
		existing := make(map[string]model.Question, len(quiz.Questions))
		for _, q := range quiz.Questions {
			existing[q.ID] = q
		}
		questions, err := buildQuestions(*req.Questions, existing)
		if err != nil {
			return nil, err
		}
		for i := range questions {
			questions[i].QuizID = quiz.ID
		}
		quiz.Questions = questions
	}

	quiz.UpdatedAt = time.Now()
	if err := s.Repo.Update(ctx, quiz, replaceQuestions); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, id string) error {
	if _, err := s.Repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

// SubmitQuiz 评分结果不落库
func (s *QuizService) SubmitQuiz(ctx context.Context, id string, answers Submission) (*ScoreResult, error) {
	return s.submit(ctx, id, func() (Submission, error) { return answers, nil })
}

// SubmitQuizBody 先确认测验存在再解析请求体，未知测验始终返回 ErrQuizNotFound
func (s *QuizService) SubmitQuizBody(ctx context.Context, id string, body []byte) (*ScoreResult, error) {
	return s.submit(ctx, id, func() (Submission, error) { return ParseSubmission(body) })
}

func (s *QuizService) submit(ctx context.Context, id string, answers func() (Submission, error)) (*ScoreResult, error) {
	quiz, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	submission, err := answers()
	if err != nil {
		return nil, err
	}

	result := Score(quiz.Questions, submission)
	monitoring.SubmissionCounter.Inc()
	return &result, nil
}
