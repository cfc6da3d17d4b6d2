package storage

import (
	"context"
	"errors"
	"lingochat/backend/internal/config"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func banKey(userID uint) string {
	return config.BanKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// IsUserBanned checks the ban flag in Redis. Without Redis nobody is banned.
func (s *Service) IsUserBanned(ctx context.Context, id uint) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	status, err := s.Redis.Get(ctx, banKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// BanUser sets the ban flag. A zero duration bans until UnbanUser is called.
func (s *Service) BanUser(ctx context.Context, id uint, duration time.Duration) error {
	if s.Redis == nil {
		return ErrNoBroker
	}
	return s.Redis.Set(ctx, banKey(id), "banned", duration).Err()
}

func (s *Service) UnbanUser(ctx context.Context, id uint) error {
	if s.Redis == nil {
		return ErrNoBroker
	}
	return s.Redis.Del(ctx, banKey(id)).Err()
}

// PublishEvent publishes a payload on a Redis Pub/Sub channel.
func (s *Service) PublishEvent(ctx context.Context, channel string, payload []byte) error {
	if s.Redis == nil {
		return ErrNoBroker
	}
	return s.Redis.Publish(ctx, channel, payload).Err()
}

func (s *Service) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return s.Redis.Subscribe(ctx, channel)
}
