package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"telehealth-scheduler/internal/model"
)

// RedisSessions keeps sessions in redis with a TTL matching expiry.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(ctx context.Context, url string) (*RedisSessions, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSessions{rdb: rdb}, nil
}

func (r *RedisSessions) Close() error { return r.rdb.Close() }

func sessionKey(id string) string { return "session:" + id }

func (r *RedisSessions) CreateSession(ctx context.Context, ss *model.Session) error {
	if ss.ID == "" {
		ss.ID = uuid.New().String()
	}
	ss.CreatedAt = time.Now()
	ttl := time.Until(ss.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: session already expired", model.ErrValidation)
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sessionKey(ss.ID), b, ttl).Err(); err != nil {
		return model.Storage("redis set session", err)
	}
	return nil
}

func (r *RedisSessions) GetSession(ctx context.Context, id string) (*model.Session, error) {
	b, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, model.Storage("redis get session", err)
	}
	ss := &model.Session{}
	if err := json.Unmarshal(b, ss); err != nil {
		return nil, model.Storage("decode session", err)
	}
	return ss, nil
}

func (r *RedisSessions) DeleteSession(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return model.Storage("redis del session", err)
	}
	return nil
}
