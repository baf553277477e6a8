package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ewintr.nl/eduvid/model"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

const conceptKeyPrefix = "concepts:"

type RedisConceptCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConceptCache connects to the url and keeps extracted concepts for
// ttl. A zero ttl keeps them until they are deleted.
func NewRedisConceptCache(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*RedisConceptCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second
	ping := func() error {
		return client.Ping(ctx).Err()
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("redis not ready", slog.String("addr", opts.Addr), slog.String("error", err.Error()), slog.Duration("retry_in", next))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	return NewRedisConceptCacheFromClient(client, ttl), nil
}

func NewRedisConceptCacheFromClient(client *redis.Client, ttl time.Duration) *RedisConceptCache {
	return &RedisConceptCache{client: client, ttl: ttl}
}

func conceptKey(id model.YoutubeVideoID) string {
	return conceptKeyPrefix + string(id)
}

func (r *RedisConceptCache) Get(ctx context.Context, id model.YoutubeVideoID) ([]model.Concept, bool, error) {
	data, err := r.client.Get(ctx, conceptKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	var concepts []model.Concept
	if err := json.Unmarshal(data, &concepts); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry for %s: %w", id, err)
	}

	return concepts, true, nil
}

func (r *RedisConceptCache) Set(ctx context.Context, id model.YoutubeVideoID, concepts []model.Concept) error {
	data, err := json.Marshal(concepts)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, conceptKey(id), data, r.ttl).Err()
}

func (r *RedisConceptCache) Delete(ctx context.Context, id model.YoutubeVideoID) error {
	return r.client.Del(ctx, conceptKey(id)).Err()
}

func (r *RedisConceptCache) Close() error {
	return r.client.Close()
}
