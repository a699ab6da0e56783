package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studycoach-backend/internal/models"
)

// RedisQuizCache stores generated quizzes under quiz:<session id> with a TTL.
type RedisQuizCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisQuizCache(redisClient *redis.Client, ttl time.Duration) *RedisQuizCache {
	return &RedisQuizCache{redis: redisClient, ttl: ttl}
}

func quizKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s", sessionID.String())
}

func (c *RedisQuizCache) Put(ctx context.Context, sessionID uuid.UUID, quiz *models.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, quizKey(sessionID), data, c.ttl).Err()
}

func (c *RedisQuizCache) Get(ctx context.Context, sessionID uuid.UUID) (*models.Quiz, error) {
	data, err := c.redis.Get(ctx, quizKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("failed to decode cached quiz: %w", err)
	}
	return &quiz, nil
}
