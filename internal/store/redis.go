package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/angelcm/crm-leads-dashboard/internal/models"
)

const keyPrefix = "crmdash:leads:"

// RedisStore comparte el snapshot entre réplicas. Los errores de redis se
// tratan como miss: el cache nunca debe romper el fetch.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{rdb: rdb, ttl: ttl, log: log}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]models.Lead, bool) {
	str, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("cache get", slog.String("key", key), slog.String("err", err.Error()))
		}
		return nil, false
	}
	var leads []models.Lead
	if err := json.Unmarshal([]byte(str), &leads); err != nil {
		s.log.Warn("cache decode", slog.String("key", key), slog.String("err", err.Error()))
		return nil, false
	}
	return leads, true
}

func (s *RedisStore) Set(ctx context.Context, key string, leads []models.Lead) {
	if s.ttl <= 0 {
		return
	}
	b, err := json.Marshal(leads)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, keyPrefix+key, b, s.ttl).Err(); err != nil {
		s.log.Warn("cache set", slog.String("key", key), slog.String("err", err.Error()))
	}
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }
