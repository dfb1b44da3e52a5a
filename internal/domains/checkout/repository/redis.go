package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pageKeyPrefix = "checkout:page:"

	fieldMethod      = "method"
	fieldMarked      = "marked"
	fieldBackVisible = "back_visible"
	fieldView        = "view"
)

type redisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisRepository creates page state repository backed by a redis hash
func NewRedisRepository(rdb *redis.Client, ttl time.Duration) PageStateRepository {
	return &redisRepository{rdb: rdb, ttl: ttl}
}

func pageKey(session string) string {
	return pageKeyPrefix + session
}

func (r *redisRepository) Get(ctx context.Context, session string) (*PageState, error) {
	fields, err := r.rdb.HGetAll(ctx, pageKey(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("get page state: %w", err)
	}

	return &PageState{
		Method:      fields[fieldMethod],
		Marked:      fields[fieldMarked],
		BackVisible: fields[fieldBackVisible] == "1",
		View:        fields[fieldView],
	}, nil
}

func (r *redisRepository) Select(ctx context.Context, session, method string) error {
	return r.write(ctx, session, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key,
			fieldMethod, method,
			fieldMarked, method,
			fieldBackVisible, "1",
		)
	})
}

func (r *redisRepository) SetView(ctx context.Context, session, view string) error {
	return r.write(ctx, session, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key, fieldView, view)
	})
}

func (r *redisRepository) Reset(ctx context.Context, session, view string, clearSelection bool) error {
	return r.write(ctx, session, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key,
			fieldBackVisible, "0",
			fieldView, view,
		)
		pipe.HDel(ctx, key, fieldMarked)
		if clearSelection {
			pipe.HDel(ctx, key, fieldMethod)
		}
	})
}

// write chạy các lệnh trong MULTI rồi gia hạn TTL của session
func (r *redisRepository) write(ctx context.Context, session string, fn func(pipe redis.Pipeliner, key string)) error {
	key := pageKey(session)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fn(pipe, key)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write page state: %w", err)
	}
	return nil
}
