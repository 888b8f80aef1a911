package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

const (
	DefaultDifficulty = DifficultyMedium
	DefaultTimeLimit  = 300 // 秒
	DefaultCategory   = "General"
)

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Difficulty  Difficulty `gorm:"size:20;not null" json:"difficulty"`
	TimeLimit   int        `gorm:"not null" json:"timeLimit"` // Seconds
	Category    string     `gorm:"size:100;not null" json:"category"`
	Questions   []Question `gorm:"foreignKey:QuizID" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Question 题目归属于唯一的 Quiz，随 Quiz 一起删除
// swagger:model Question
type Question struct {
	UUIDBase
	QuizID        string   `gorm:"index;type:varchar(36);not null" json:"-"`
	QuestionText  string   `gorm:"type:text;not null" json:"questionText"`
	Options       []string `gorm:"serializer:json;type:json" json:"options"`
	CorrectAnswer string   `gorm:"type:text;not null" json:"correctAnswer"`
	Position      int      `gorm:"not null;default:0" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// NormalizeOptions 自由作答题的选项统一为空数组，序列化为 [] 而不是 null
func NormalizeOptions(options []string) []string {
	if options == nil {
		return []string{}
	}
	return options
}

// QuizSummary 列表接口只返回元数据，不含题目内容
type QuizSummary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Difficulty    Difficulty `json:"difficulty"`
	TimeLimit     int        `json:"timeLimit"`
	Category      string     `json:"category"`
	QuestionCount int        `json:"questionCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (q *Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		Difficulty:    q.Difficulty,
		TimeLimit:     q.TimeLimit,
		Category:      q.Category,
		QuestionCount: len(q.Questions),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// PublicQuiz 答题前下发给客户端的视图，不含正确答案
type PublicQuiz struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Difficulty  Difficulty       `json:"difficulty"`
	TimeLimit   int              `json:"timeLimit"`
	Category    string           `json:"category"`
	Questions   []PublicQuestion `json:"questions"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type PublicQuestion struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

func (q *Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = PublicQuestion{
			ID:           question.ID,
			QuestionText: question.QuestionText,
			Options:      NormalizeOptions(question.Options),
		}
	}
	return PublicQuiz{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Difficulty:  q.Difficulty,
		TimeLimit:   q.TimeLimit,
		Category:    q.Category,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}
