package repository

import (
	"context"
	"errors"

	"quiz_backend/internal/model"
	"quiz_backend/internal/util"

	"gorm.io/gorm"
)

// QuizRepository 查询不到记录时统一返回 util.ErrQuizNotFound
type QuizRepository interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	List(ctx context.Context) ([]model.QuizSummary, error)
	FindByID(ctx context.Context, id string) (*model.Quiz, error)
	// Update 覆盖 quiz 的全部字段，replaceQuestions 为 true 时整体替换题目
	Update(ctx context.Context, quiz *model.Quiz, replaceQuestions bool) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type GormQuizRepository struct {
	DB *gorm.DB
}

func NewGormQuizRepository(db *gorm.DB) *GormQuizRepository {
	return &GormQuizRepository{DB: db}
}

func (r *GormQuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	for i := range quiz.Questions {
		quiz.Questions[i].Position = i
	}
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *GormQuizRepository) List(ctx context.Context) ([]model.QuizSummary, error) {
	var quizzes []model.Quiz
	if err := r.DB.WithContext(ctx).Order("created_at desc").Find(&quizzes).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		QuizID string
		Total  int
	}
	var rows []countRow
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Select("quiz_id, COUNT(*) AS total").
		Group("quiz_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.QuizID] = row.Total
	}

	summaries := make([]model.QuizSummary, len(quizzes))
	for i := range quizzes {
		summaries[i] = quizzes[i].Summary()
		summaries[i].QuestionCount = counts[quizzes[i].ID]
	}
	return summaries, nil
}

func (r *GormQuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		First(&quiz, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *GormQuizRepository) Update(ctx context.Context, quiz *model.Quiz, replaceQuestions bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(quiz).
			Select("title", "description", "difficulty", "time_limit", "category", "updated_at").
			Omit("Questions").
			Updates(quiz).Error
		if err != nil {
			return err
		}

		if !replaceQuestions {
			return nil
		}

		// 硬删除后重建，保留的题目沿用原 ID
		if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		for i := range quiz.Questions {
			quiz.Questions[i].QuizID = quiz.ID
			quiz.Questions[i].Position = i
		}
		if len(quiz.Questions) == 0 {
			return nil
		}
		return tx.Create(&quiz.Questions).Error
	})
}

func (r *GormQuizRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.Quiz{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return util.ErrQuizNotFound
		}
		return tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error
	})
}

func (r *GormQuizRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
