package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"studycoach-backend/internal/logger"
	"studycoach-backend/internal/models"
)

// UserUpdatesChannel is the pub/sub channel the websocket hub listens on for owner.
func UserUpdatesChannel(owner string) string {
	return fmt.Sprintf("user_updates:%s", owner)
}

// RedisPublisher sends live updates via Redis pub/sub. Failures are logged, never returned.
type RedisPublisher struct {
	redis *redis.Client
	log   *logger.Logger
}

func NewRedisPublisher(redisClient *redis.Client, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{redis: redisClient, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, owner string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("failed to encode live update", "type", msg.Type, "error", err)
		return
	}
	if err := p.redis.Publish(ctx, UserUpdatesChannel(owner), string(data)).Err(); err != nil {
		p.log.Warn("failed to publish live update", "user_id", owner, "type", msg.Type, "error", err)
	}
}
