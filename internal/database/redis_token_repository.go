package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/models"
)

var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

const refreshTokenKeyPrefix = "refresh_token:"

type redisTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenRepository creates a Redis-backed refresh token store.
// Tokens expire on their own via the TTL, no sweeper needed.
func NewRedisTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

func (r *redisTokenRepository) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	key := refreshTokenKeyPrefix + token
	if err := r.client.Set(ctx, key, userID.String(), ttl).Err(); err != nil {
		r.logger.Error("Failed to save refresh token", zap.Error(err), zap.String("userID", userID.String()))
		return fmt.Errorf("failed to save refresh token to redis: %w", err)
	}
	return nil
}

func (r *redisTokenRepository) GetUserIDByRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	key := refreshTokenKeyPrefix + token
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get refresh token", zap.Error(err))
		return uuid.Nil, fmt.Errorf("failed to get refresh token from redis: %w", err)
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		// Повреждённое значение считаем невалидным токеном
		r.logger.Warn("Malformed user id stored for refresh token", zap.Error(err))
		return uuid.Nil, models.ErrTokenInvalid
	}
	return userID, nil
}

func (r *redisTokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	key := refreshTokenKeyPrefix + token
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete refresh token", zap.Error(err))
		return fmt.Errorf("failed to delete refresh token from redis: %w", err)
	}
	return nil
}
