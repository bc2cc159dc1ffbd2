package prefstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

type redisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore persists preferences without expiry under "preferences:<namespace>:<key>".
func NewRedisStore(client *redis.Client, namespace string) Store {
	if namespace == "" {
		namespace = "default"
	}
	return &redisStore{
		client:    client,
		namespace: namespace,
	}
}

func preferenceKey(namespace, key string) string {
	return fmt.Sprintf("preferences:%s:%s", namespace, key)
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	redisKey := preferenceKey(s.namespace, key)

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			zap.L().Debug("preference not set", zap.String("key", redisKey))
			return "", false, nil
		}
		return "", false, fmt.Errorf("get preference %s: %w", redisKey, err)
	}

	return value, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	redisKey := preferenceKey(s.namespace, key)

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := s.client.Set(ctx, redisKey, value, 0).Err(); err != nil {
		return fmt.Errorf("set preference %s: %w", redisKey, err)
	}

	zap.L().Debug("saved preference", zap.String("key", redisKey), zap.String("value", value))
	return nil
}
