package repository

import (
	"context"
	"errors"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/internal/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const quizCollection = "quizzes"

// quizDocument 题目以内嵌数组的形式保存在 quiz 文档中
type quizDocument struct {
	ID          string             `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Difficulty  string             `bson:"difficulty"`
	TimeLimit   int                `bson:"timeLimit"`
	Category    string             `bson:"category"`
	Questions   []questionDocument `bson:"questions"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type questionDocument struct {
	ID            string   `bson:"_id"`
	QuestionText  string   `bson:"questionText"`
	Options       []string `bson:"options"`
	CorrectAnswer string   `bson:"correctAnswer"`
}

type summaryDocument struct {
	ID            string    `bson:"_id"`
	Title         string    `bson:"title"`
	Description   string    `bson:"description"`
	Difficulty    string    `bson:"difficulty"`
	TimeLimit     int       `bson:"timeLimit"`
	Category      string    `bson:"category"`
	QuestionCount int       `bson:"questionCount"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

type MongoQuizRepository struct {
	DB         *mongo.Database
	collection *mongo.Collection
}

func NewMongoQuizRepository(db *mongo.Database) *MongoQuizRepository {
	return &MongoQuizRepository{
		DB:         db,
		collection: db.Collection(quizCollection),
	}
}

func toQuizDocument(quiz *model.Quiz) quizDocument {
	questions := make([]questionDocument, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = questionDocument{
			ID:            q.ID,
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return quizDocument{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Difficulty:  string(quiz.Difficulty),
		TimeLimit:   quiz.TimeLimit,
		Category:    quiz.Category,
		Questions:   questions,
		CreatedAt:   quiz.CreatedAt,
		UpdatedAt:   quiz.UpdatedAt,
	}
}

func (d *quizDocument) toModel() *model.Quiz {
	quiz := &model.Quiz{
		UUIDBase: model.UUIDBase{
			ID:        d.ID,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		Title:       d.Title,
		Description: d.Description,
		Difficulty:  model.Difficulty(d.Difficulty),
		TimeLimit:   d.TimeLimit,
		Category:    d.Category,
		Questions:   make([]model.Question, len(d.Questions)),
	}
	for i, q := range d.Questions {
		quiz.Questions[i] = model.Question{
			UUIDBase:      model.UUIDBase{ID: q.ID, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt},
			QuizID:        d.ID,
			QuestionText:  q.QuestionText,
			Options:       model.NormalizeOptions(q.Options),
			CorrectAnswer: q.CorrectAnswer,
			Position:      i,
		}
	}
	return quiz
}

// mongo 时间精度为毫秒
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *MongoQuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = model.GenerateUUID()
	}
	now := mongoNow()
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = model.GenerateUUID()
		}
		quiz.Questions[i].QuizID = quiz.ID
		quiz.Questions[i].Position = i
		quiz.Questions[i].CreatedAt, quiz.Questions[i].UpdatedAt = now, now
	}

	_, err := r.collection.InsertOne(ctx, toQuizDocument(quiz))
	return err
}

func (r *MongoQuizRepository) List(ctx context.Context) ([]model.QuizSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "title", Value: 1},
			{Key: "description", Value: 1},
			{Key: "difficulty", Value: 1},
			{Key: "timeLimit", Value: 1},
			{Key: "category", Value: 1},
			{Key: "createdAt", Value: 1},
			{Key: "updatedAt", Value: 1},
			{Key: "questionCount", Value: bson.D{{Key: "$size", Value: bson.D{
				{Key: "$ifNull", Value: bson.A{"$questions", bson.A{}}},
			}}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var docs []summaryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	summaries := make([]model.QuizSummary, len(docs))
	for i, d := range docs {
		summaries[i] = model.QuizSummary{
			ID:            d.ID,
			Title:         d.Title,
			Description:   d.Description,
			Difficulty:    model.Difficulty(d.Difficulty),
			TimeLimit:     d.TimeLimit,
			Category:      d.Category,
			QuestionCount: d.QuestionCount,
			CreatedAt:     d.CreatedAt,
			UpdatedAt:     d.UpdatedAt,
		}
	}
	return summaries, nil
}

func (r *MongoQuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	var doc quizDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// Update 文档整体替换，题目数组随之覆盖
func (r *MongoQuizRepository) Update(ctx context.Context, quiz *model.Quiz, _ bool) error {
	quiz.UpdatedAt = mongoNow()
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = model.GenerateUUID()
		}
		quiz.Questions[i].QuizID = quiz.ID
		quiz.Questions[i].Position = i
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, toQuizDocument(quiz))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return util.ErrQuizNotFound
	}
	return nil
}

func (r *MongoQuizRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return util.ErrQuizNotFound
	}
	return nil
}

func (r *MongoQuizRepository) Ping(ctx context.Context) error {
	return r.DB.Client().Ping(ctx, readpref.Primary())
}
