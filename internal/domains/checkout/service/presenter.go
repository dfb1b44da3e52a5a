package service

import (
	"context"

	"github.com/mthangit/demo-payment/internal/domains/checkout/repository"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	"github.com/mthangit/demo-payment/internal/infrastructure/metrics"
	"github.com/mthangit/demo-payment/pkg/logger"
)

type Renderer interface {
	Render(ctx context.Context, rec returnurl.Record) (string, error)
}

// ViewPresenter render Record và ghi vào view surface của session.
// Lỗi render chỉ được log, view giữ nguyên và không có alert.
type ViewPresenter struct {
	renderer Renderer
	repo     repository.PageStateRepository
	metrics  *metrics.CheckoutMetrics
}

func NewViewPresenter(renderer Renderer, repo repository.PageStateRepository, m *metrics.CheckoutMetrics) *ViewPresenter {
	return &ViewPresenter{
		renderer: renderer,
		repo:     repo,
		metrics:  m,
	}
}

// Present implements popup.Presenter
func (p *ViewPresenter) Present(ctx context.Context, session string, rec returnurl.Record) {
	p.show(ctx, session, rec)
}

func (p *ViewPresenter) show(ctx context.Context, session string, rec returnurl.Record) (string, bool) {
	html, err := p.renderer.Render(ctx, rec)
	if err != nil {
		p.metrics.RenderFailuresTotal.WithLabelValues(rec.Provider.String()).Inc()
		logger.Error("Lỗi tải trang thanh toán thành công", err, map[string]interface{}{
			"provider": rec.Provider.String(),
		})
		return "", false
	}

	if err := p.repo.SetView(ctx, session, html); err != nil {
		logger.Error("Failed to store payment view", err)
		return "", false
	}
	return html, true
}
