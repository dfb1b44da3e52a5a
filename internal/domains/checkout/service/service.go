package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mthangit/demo-payment/internal/domains/checkout/gateway"
	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/internal/domains/checkout/popup"
	"github.com/mthangit/demo-payment/internal/domains/checkout/repository"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	"github.com/mthangit/demo-payment/internal/domains/checkout/view"
	"github.com/mthangit/demo-payment/internal/infrastructure/metrics"
	"github.com/mthangit/demo-payment/pkg/logger"
)

// PopupRunner mở và chờ popup attempt (popup.Orchestrator)
type PopupRunner interface {
	Open(ctx context.Context, session string, result model.CreationResult) (*popup.Attempt, error)
	Await(ctx context.Context, a *popup.Attempt) (popup.Settlement, error)
}

// WindowStates trạng thái cửa sổ mà trình duyệt báo về (popup.WindowRegistry)
type WindowStates interface {
	MarkClosed(ctx context.Context, attemptID string) error
	State(ctx context.Context, attemptID string) (string, error)
}

// MessagePublisher relay postMessage tới attempt (popup.Notifier)
type MessagePublisher interface {
	Publish(ctx context.Context, attemptID string, msg model.Message) (int64, error)
}

var _ ServiceInterface = (*CheckoutService)(nil)

type Config struct {
	Products             []model.Product
	AttemptTimeout       time.Duration
	ResetClearsSelection bool
}

type CheckoutService struct {
	repo      repository.PageStateRepository
	backend   gateway.PaymentBackend
	popups    PopupRunner
	windows   WindowStates
	publisher MessagePublisher
	presenter *ViewPresenter
	verifier  returnurl.Verifier
	metrics   *metrics.CheckoutMetrics
	cfg       Config

	// attempts đang chờ popup
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewCheckoutService(
	repo repository.PageStateRepository,
	backend gateway.PaymentBackend,
	popups PopupRunner,
	windows WindowStates,
	publisher MessagePublisher,
	presenter *ViewPresenter,
	verifier returnurl.Verifier,
	m *metrics.CheckoutMetrics,
	cfg Config,
) *CheckoutService {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CheckoutService{
		repo:      repo,
		backend:   backend,
		popups:    popups,
		windows:   windows,
		publisher: publisher,
		presenter: presenter,
		verifier:  verifier,
		metrics:   m,
		cfg:       cfg,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// =====================================================
// PRODUCTS & PAGE STATE
// =====================================================

func (s *CheckoutService) Products() []model.Product {
	products := make([]model.Product, len(s.cfg.Products))
	copy(products, s.cfg.Products)
	return products
}

func (s *CheckoutService) Page(ctx context.Context, session string) (*model.PageResponse, error) {
	state, err := s.repo.Get(ctx, session)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	surface := state.View
	if surface == "" {
		surface = model.ViewPlaceholder
	}

	return &model.PageResponse{
		SelectedMethod: state.Method,
		MarkedMethod:   state.Marked,
		BackVisible:    state.BackVisible,
		View:           surface,
	}, nil
}

func (s *CheckoutService) SelectPaymentMethod(ctx context.Context, session, method string) error {
	if err := s.repo.Select(ctx, session, method); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

func (s *CheckoutService) GoBack(ctx context.Context, session string) error {
	if err := s.repo.Reset(ctx, session, model.ViewPlaceholder, s.cfg.ResetClearsSelection); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

// =====================================================
// PAYMENT INITIATION
// =====================================================

func (s *CheckoutService) Initiate(ctx context.Context, session string, req model.InitiateRequest) (*model.InitiateResponse, error) {
	// Step 1: Collect form state
	state, err := s.repo.Get(ctx, session)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	productID, amount := priceOf(s.cfg.Products, req.ProductID)
	form := model.Form{
		Amount:      amount,
		ProductID:   productID,
		Description: req.Description,
		Method:      state.Method,
	}

	// Step 2: Validation gate, no network call on failure
	if err := form.Validate(); err != nil {
		s.countInitiation(form.Method, "incomplete")
		return nil, model.NewIncompleteFormError(err)
	}

	// Step 3: Create payment
	result, err := s.backend.CreatePayment(ctx, form.ToPaymentRequest())
	if err != nil {
		s.countInitiation(form.Method, "transport_error")
		logger.Error("Có lỗi xảy ra", err, map[string]interface{}{
			"session": session,
			"method":  form.Method,
		})
		return nil, model.NewTransportError(err)
	}

	if !result.Succeeded() {
		s.countInitiation(form.Method, "rejected")
		logger.Warn("Cập nhật thất bại", map[string]interface{}{
			"session": session,
			"status":  result.Status,
			"message": result.Message,
		})
		return nil, model.NewPaymentRejectedError(result.Message)
	}

	// Step 4: QR branch, no popup
	if result.Method == model.MethodQRCode {
		markup := view.QRMarkup(result.URL)
		if err := s.repo.SetView(ctx, session, markup); err != nil {
			return nil, model.NewInternalError(err)
		}
		s.countInitiation(result.Method, "qr")
		return &model.InitiateResponse{Method: result.Method, View: markup}, nil
	}

	// Step 5: Popup branch
	attempt, err := s.popups.Open(ctx, session, *result)
	if err != nil {
		s.countInitiation(result.Method, "popup_error")
		logger.Error("Failed to open payment popup", err, map[string]interface{}{
			"session": session,
			"method":  result.Method,
		})
		return nil, model.NewInternalError(err)
	}
	s.launch(attempt)
	s.countInitiation(result.Method, "popup")

	return &model.InitiateResponse{
		Method: result.Method,
		Popup: &model.PopupAttempt{
			AttemptID: attempt.ID,
			URL:       attempt.URL,
		},
	}, nil
}

// launch chờ attempt trong goroutine, giới hạn bởi AttemptTimeout
func (s *CheckoutService) launch(a *popup.Attempt) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.AttemptTimeout)

	s.wg.Add(1)
	s.metrics.AttemptsInFlight.Inc()
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.metrics.AttemptsInFlight.Dec()

		settled, err := s.popups.Await(ctx, a)
		s.metrics.PopupSettlementsTotal.WithLabelValues(a.Provider.String(), settled.String()).Inc()

		fields := map[string]interface{}{
			"attempt_id": a.ID,
			"provider":   a.Provider.String(),
			"settlement": settled.String(),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.Info("Popup attempt settled", fields)
	}()
}

func (s *CheckoutService) countInitiation(method, result string) {
	s.metrics.InitiationsTotal.WithLabelValues(method, result).Inc()
}

// =====================================================
// RETURN URL & POPUP RELAY
// =====================================================

func (s *CheckoutService) CheckReturnURL(ctx context.Context, session, returnURL string) (*model.CheckURLResponse, error) {
	params := returnurl.ParseParams(returnURL)

	provider, ok := returnurl.Recognize(params)
	if !ok {
		return &model.CheckURLResponse{Rendered: false}, nil
	}

	rec, err := popup.FromReturnURL(provider, returnURL, s.verifier)
	if errors.Is(err, model.ErrInvalidSignature) {
		return nil, model.NewInvalidSignatureError(err)
	}
	if err != nil {
		return &model.CheckURLResponse{Rendered: false, Provider: provider.String()}, nil
	}

	html, rendered := s.presenter.show(ctx, session, rec)
	return &model.CheckURLResponse{
		Rendered: rendered,
		Provider: provider.String(),
		View:     html,
	}, nil
}

func (s *CheckoutService) RelayMessage(ctx context.Context, attemptID string, req model.MessageRequest) error {
	if err := req.Validate(); err != nil {
		return model.NewInvalidMessageError(err)
	}

	if _, err := s.windows.State(ctx, attemptID); err != nil {
		return s.attemptError(attemptID, err)
	}

	receivers, err := s.publisher.Publish(ctx, attemptID, model.Message{Type: req.Type, URL: req.URL})
	if err != nil {
		return model.NewInternalError(err)
	}
	if receivers == 0 {
		// attempt đã settle, message bị bỏ qua
		logger.Debug("Popup message for settled attempt " + attemptID)
	}
	return nil
}

func (s *CheckoutService) ReportClosed(ctx context.Context, attemptID string) error {
	if err := s.windows.MarkClosed(ctx, attemptID); err != nil {
		return s.attemptError(attemptID, err)
	}
	return nil
}

func (s *CheckoutService) AttemptStatus(ctx context.Context, attemptID string) (*model.AttemptStatus, error) {
	state, err := s.windows.State(ctx, attemptID)
	if err != nil {
		return nil, s.attemptError(attemptID, err)
	}
	return &model.AttemptStatus{AttemptID: attemptID, Open: state != popup.WindowClosed}, nil
}

func (s *CheckoutService) attemptError(attemptID string, err error) error {
	if errors.Is(err, model.ErrAttemptNotFound) {
		return model.NewAttemptNotFoundError(attemptID)
	}
	return model.NewInternalError(err)
}

func (s *CheckoutService) Close() {
	s.cancel()
	s.wg.Wait()
}
