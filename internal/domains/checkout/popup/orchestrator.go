// Package popup điều phối vòng đời cửa sổ provider: mở, chờ return URL hoặc đóng, dọn dẹp.
package popup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	"github.com/mthangit/demo-payment/pkg/logger"
)

// Settlement cách một attempt kết thúc
type Settlement int

const (
	SettledNotified  Settlement = iota + 1 // nhận return URL, đã render
	SettledClosed                          // cửa sổ đóng trước khi có return URL
	SettledCancelled                       // hết hạn hoặc service shutdown
)

func (s Settlement) String() string {
	switch s {
	case SettledNotified:
		return "notified"
	case SettledClosed:
		return "closed"
	case SettledCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Attempt một lần mở cửa sổ provider
type Attempt struct {
	ID                string
	URL               string
	Session           string // checkout session của trình duyệt
	Provider          returnurl.Provider
	ProviderSessionID string // session_id của provider session-based

	window Window
	sub    Subscription
}

// Deriver dựng Record từ return URL của attempt
type Deriver interface {
	Derive(ctx context.Context, a *Attempt, returnURL string) (returnurl.Record, error)
}

// Presenter đưa Record lên view surface của session
type Presenter interface {
	Present(ctx context.Context, session string, rec returnurl.Record)
}

type Orchestrator struct {
	opener       Opener
	subscriber   Subscriber
	deriver      Deriver
	presenter    Presenter
	pollInterval time.Duration
}

func NewOrchestrator(opener Opener, subscriber Subscriber, deriver Deriver, presenter Presenter, pollInterval time.Duration) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Orchestrator{
		opener:       opener,
		subscriber:   subscriber,
		deriver:      deriver,
		presenter:    presenter,
		pollInterval: pollInterval,
	}
}

// Open mở cửa sổ và subscribe kênh message trước khi trả attempt cho trình duyệt
func (o *Orchestrator) Open(ctx context.Context, session string, result model.CreationResult) (*Attempt, error) {
	id := uuid.NewString()

	win, err := o.opener.Open(ctx, id, result.URL)
	if err != nil {
		return nil, fmt.Errorf("open provider window: %w", err)
	}

	sub, err := o.subscriber.Subscribe(ctx, id)
	if err != nil {
		_ = win.Close(ctx)
		return nil, fmt.Errorf("listen for popup messages: %w", err)
	}

	return &Attempt{
		ID:                id,
		URL:               result.URL,
		Session:           session,
		Provider:          returnurl.ProviderFromMethod(result.Method),
		ProviderSessionID: result.SessionID,
		window:            win,
		sub:               sub,
	}, nil
}

// Await chờ sự kiện đầu tiên: return URL, cửa sổ đóng, hoặc ctx bị huỷ.
// Subscription luôn được đóng khi Await trả về.
func (o *Orchestrator) Await(ctx context.Context, a *Attempt) (Settlement, error) {
	defer a.sub.Close()

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	msgs := a.sub.Messages()
	for {
		select {
		case <-ctx.Done():
			o.closeWindow(a)
			return SettledCancelled, ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				// kênh đã đứt, chỉ còn polling
				msgs = nil
				continue
			}
			if !msg.IsURLChange() {
				continue
			}

			rec, err := o.deriver.Derive(ctx, a, msg.URL)
			if err != nil {
				logger.Warn("Cannot derive payment record from return url", map[string]interface{}{
					"attempt_id": a.ID,
					"provider":   a.Provider.String(),
					"error":      err.Error(),
				})
				continue
			}

			o.presenter.Present(ctx, a.Session, rec)
			o.closeWindow(a)
			return SettledNotified, nil

		case <-ticker.C:
			closed, err := a.window.Closed(ctx)
			if err != nil {
				logger.Warn("Cannot read popup window state", map[string]interface{}{
					"attempt_id": a.ID,
					"error":      err.Error(),
				})
				continue
			}
			if closed {
				return SettledClosed, nil
			}
		}
	}
}

func (o *Orchestrator) closeWindow(a *Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.window.Close(ctx); err != nil {
		logger.Error("Failed to close popup window", err, map[string]interface{}{
			"attempt_id": a.ID,
			"provider":   a.Provider.String(),
		})
	}
}
