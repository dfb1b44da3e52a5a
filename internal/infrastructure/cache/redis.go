package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/mthangit/demo-payment/internal/config"
)

const defaultPoolSize = 10

// RedisClient dùng chung cho page state, popup window registry và pub/sub notifier
type RedisClient struct {
	Client *redis.Client
}

// Health là trạng thái redis trả về ở /api/v1/health
type Health struct {
	Status     string `json:"status"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	Timeouts   uint32 `json:"timeouts"`
	Error      string `json:"error,omitempty"`
}

func NewRedisClient(cfg config.RedisConfig) *RedisClient {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	return &RedisClient{
		Client: redis.NewClient(&redis.Options{
			Addr:         cfg.Host,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     poolSize,
			MinIdleConns: poolSize / 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
	}
}

func (r *RedisClient) Connect(ctx context.Context) error {
	opts := r.Client.Options()
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Int("pool_size", opts.PoolSize).Msg("[REDIS] Connecting...")

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	log.Info().Msg("[REDIS] Connected")
	return nil
}

// Health ping redis (tối đa 2s) kèm thống kê connection pool
func (r *RedisClient) Health(ctx context.Context) Health {
	if r.Client == nil {
		return Health{Status: "down", Error: errors.New("redis client is not initialized").Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := r.Client.PoolStats()
	h := Health{
		Status:     "ok",
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		Timeouts:   stats.Timeouts,
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		h.Status = "down"
		h.Error = err.Error()
	}
	return h
}

func (r *RedisClient) Close() error {
	if r.Client == nil {
		return nil
	}
	if err := r.Client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
