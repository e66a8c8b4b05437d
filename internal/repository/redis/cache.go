package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store - durable-уровень кеша результатов поверх redis.
// Ошибки redis не всплывают к вызывающему: чтение деградирует в промах,
// запись - в no-op (лог остается).
type Store struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewStore(client *redis.Client, prefix string, logger *zap.Logger) *Store {
	if prefix == "" {
		prefix = "rasuto:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return value, true
}

// GetWithTTL отдает значение и остаток TTL ключа одним round-trip.
// Ключ без expiry (или при ошибке TTL) отдаем с нулевым остатком -
// вызывающий трактует это как "остаток неизвестен".
func (s *Store) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, s.prefix+key)
	ttlCmd := pipe.TTL(ctx, s.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, 0, false
	}

	value, err := getCmd.Bytes()
	if err != nil {
		return nil, 0, false
	}

	remaining := ttlCmd.Val()
	if remaining < 0 {
		remaining = 0
	}
	return value, remaining, true
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn("redis del failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear сносит все записи с нашим префиксом через SCAN,
// чтобы не трогать чужие ключи в той же базе
func (s *Store) Clear(ctx context.Context) {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("redis del failed", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("redis scan failed", zap.Error(err))
	}
}
