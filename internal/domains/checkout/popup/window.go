package popup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
)

// =====================================================
// PROVIDER WINDOW
// =====================================================

const (
	windowKeyPrefix = "checkout:window:"

	WindowOpen   = "open"
	WindowClosed = "closed"
)

// Window là cửa sổ provider mà trình duyệt đang giữ
type Window interface {
	// Closed true khi trình duyệt báo đã đóng hoặc attempt đã hết hạn
	Closed(ctx context.Context) (bool, error)
	Close(ctx context.Context) error
}

// Opener mở cửa sổ provider cho một attempt
type Opener interface {
	Open(ctx context.Context, attemptID, url string) (Window, error)
}

// WindowRegistry lưu trạng thái cửa sổ trong redis, key hết hạn sau ttl
type WindowRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewWindowRegistry(rdb *redis.Client, ttl time.Duration) *WindowRegistry {
	return &WindowRegistry{rdb: rdb, ttl: ttl}
}

func windowKey(attemptID string) string {
	return windowKeyPrefix + attemptID
}

// Open đăng ký cửa sổ ở trạng thái open
func (r *WindowRegistry) Open(ctx context.Context, attemptID, url string) (Window, error) {
	if err := r.rdb.Set(ctx, windowKey(attemptID), WindowOpen, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("register window: %w", err)
	}
	return &redisWindow{registry: r, attemptID: attemptID}, nil
}

// MarkClosed ghi nhận trình duyệt đã đóng cửa sổ. TTL giữ nguyên.
func (r *WindowRegistry) MarkClosed(ctx context.Context, attemptID string) error {
	ok, err := r.rdb.SetXX(ctx, windowKey(attemptID), WindowClosed, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("mark window closed: %w", err)
	}
	if !ok {
		return model.ErrAttemptNotFound
	}
	return nil
}

// State trả về open/closed; attempt không tồn tại -> ErrAttemptNotFound
func (r *WindowRegistry) State(ctx context.Context, attemptID string) (string, error) {
	state, err := r.rdb.Get(ctx, windowKey(attemptID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrAttemptNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get window state: %w", err)
	}
	return state, nil
}

type redisWindow struct {
	registry  *WindowRegistry
	attemptID string
}

func (w *redisWindow) Closed(ctx context.Context) (bool, error) {
	state, err := w.registry.State(ctx, w.attemptID)
	if errors.Is(err, model.ErrAttemptNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return state == WindowClosed, nil
}

// Close đánh dấu closed để trình duyệt đóng popup ở lần kiểm tra tiếp theo
func (w *redisWindow) Close(ctx context.Context) error {
	err := w.registry.MarkClosed(ctx, w.attemptID)
	if errors.Is(err, model.ErrAttemptNotFound) {
		return nil
	}
	return err
}
