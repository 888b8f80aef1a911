package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	quizCacheKeyPrefix = "quiz:"
	quizCacheGenPrefix = "quiz:gen:"
	quizCacheGenTTL    = 24 * time.Hour
)

// quizCache 缓存条目带代数保护：每次失效递增代数，回填时代数已变则放弃写入
type quizCache interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Generation(ctx context.Context, id string) (string, error)
	SetIfGeneration(ctx context.Context, id, gen string, data []byte, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, id string) error
}

// CachedQuizRepository 为 FindByID 提供 Redis 读穿缓存，Redis 故障时直接回落到底层存储
type CachedQuizRepository struct {
	QuizRepository
	TTL time.Duration

	cache quizCache
}

func NewCachedQuizRepository(inner QuizRepository, rdb *redis.Client, ttl time.Duration) *CachedQuizRepository {
	return &CachedQuizRepository{QuizRepository: inner, TTL: ttl, cache: &redisQuizCache{rdb: rdb}}
}

func quizCacheKey(id string) string {
	return quizCacheKeyPrefix + id
}

func quizCacheGenKey(id string) string {
	return quizCacheGenPrefix + id
}

type redisQuizCache struct {
	rdb *redis.Client
}

// Get 未命中时返回 redis.Nil
func (c *redisQuizCache) Get(ctx context.Context, id string) ([]byte, error) {
	return c.rdb.Get(ctx, quizCacheKey(id)).Bytes()
}

// Generation 代数键不存在时为空串
func (c *redisQuizCache) Generation(ctx context.Context, id string) (string, error) {
	gen, err := c.rdb.Get(ctx, quizCacheGenKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

func (c *redisQuizCache) SetIfGeneration(ctx context.Context, id, gen string, data []byte, ttl time.Duration) (bool, error) {
	genKey := quizCacheGenKey(id)
	written := false
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, quizCacheKey(id), data, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		written = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// WATCH 期间代数被改写
		return false, nil
	}
	return written, err
}

func (c *redisQuizCache) Invalidate(ctx context.Context, id string) error {
	genKey := quizCacheGenKey(id)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, quizCacheGenTTL)
		pipe.Del(ctx, quizCacheKey(id))
		return nil
	})
	return err
}

// cachedQuestion 缓存中需要保留 Question 上不对外序列化的字段
type cachedQuestion struct {
	model.Question
	QuizID   string `json:"quizId"`
	Position int    `json:"position"`
}

type cachedQuiz struct {
	model.Quiz
	Questions []cachedQuestion `json:"questions"`
}

func encodeCachedQuiz(quiz *model.Quiz) ([]byte, error) {
	entry := cachedQuiz{Quiz: *quiz, Questions: make([]cachedQuestion, len(quiz.Questions))}
	for i, q := range quiz.Questions {
		entry.Questions[i] = cachedQuestion{Question: q, QuizID: q.QuizID, Position: q.Position}
	}
	return json.Marshal(entry)
}

func decodeCachedQuiz(data []byte) (*model.Quiz, error) {
	var entry cachedQuiz
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	quiz := entry.Quiz
	quiz.Questions = make([]model.Question, len(entry.Questions))
	for i, q := range entry.Questions {
		quiz.Questions[i] = q.Question
		quiz.Questions[i].QuizID = q.QuizID
		quiz.Questions[i].Position = q.Position
	}
	return &quiz, nil
}

func (r *CachedQuizRepository) FindByID(ctx context.Context, id string) (*model.Quiz, error) {
	data, err := r.cache.Get(ctx, id)
	switch {
	case err == nil:
		quiz, decodeErr := decodeCachedQuiz(data)
		if decodeErr == nil {
			return quiz, nil
		}
		logger.Log.Warn("discarding corrupt quiz cache entry", zap.String("quizId", id), zap.Error(decodeErr))
	case !errors.Is(err, redis.Nil):
		logger.Log.Warn("quiz cache read failed", zap.String("quizId", id), zap.Error(err))
	}

	// 代数必须在读底层存储之前取，否则并发更新的失效可能被旧数据回填覆盖
	gen, genErr := r.cache.Generation(ctx, id)

	quiz, err := r.QuizRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		return quiz, nil
	}
	if data, err := encodeCachedQuiz(quiz); err == nil {
		written, err := r.cache.SetIfGeneration(ctx, id, gen, data, r.TTL)
		switch {
		case err != nil:
			logger.Log.Warn("quiz cache write failed", zap.String("quizId", id), zap.Error(err))
		case !written:
			logger.Log.Debug("quiz cache fill skipped, entry invalidated concurrently", zap.String("quizId", id))
		}
	}
	return quiz, nil
}

func (r *CachedQuizRepository) Update(ctx context.Context, quiz *model.Quiz, replaceQuestions bool) error {
	if err := r.QuizRepository.Update(ctx, quiz, replaceQuestions); err != nil {
		return err
	}
	r.evict(ctx, quiz.ID)
	return nil
}

func (r *CachedQuizRepository) Delete(ctx context.Context, id string) error {
	if err := r.QuizRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *CachedQuizRepository) evict(ctx context.Context, id string) {
	if err := r.cache.Invalidate(ctx, id); err != nil {
		logger.Log.Warn("quiz cache evict failed", zap.String("quizId", id), zap.Error(err))
	}
}
