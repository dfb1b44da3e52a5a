package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/internal/domains/checkout/popup"
	"github.com/mthangit/demo-payment/internal/domains/checkout/repository"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	"github.com/mthangit/demo-payment/internal/infrastructure/metrics"
)

// ===== FAKES =====

type fakeBackend struct {
	mu       sync.Mutex
	result   *model.CreationResult
	err      error
	requests []model.PaymentRequest
}

func (b *fakeBackend) CreatePayment(_ context.Context, req model.PaymentRequest) (*model.CreationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	res := *b.result
	return &res, nil
}

func (b *fakeBackend) PaymentInfo(context.Context, string) (*model.PaymentInfo, error) {
	return nil, errors.New("not used")
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

type fakePopups struct {
	mu      sync.Mutex
	opened  []model.CreationResult
	release chan struct{}
	settled chan popup.Settlement
}

func newFakePopups() *fakePopups {
	return &fakePopups{release: make(chan struct{}), settled: make(chan popup.Settlement, 1)}
}

func (p *fakePopups) Open(_ context.Context, session string, result model.CreationResult) (*popup.Attempt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, result)
	return &popup.Attempt{
		ID:       "attempt-1",
		URL:      result.URL,
		Session:  session,
		Provider: returnurl.ProviderFromMethod(result.Method),
	}, nil
}

func (p *fakePopups) Await(ctx context.Context, _ *popup.Attempt) (popup.Settlement, error) {
	select {
	case <-p.release:
		p.settled <- popup.SettledClosed
		return popup.SettledClosed, nil
	case <-ctx.Done():
		p.settled <- popup.SettledCancelled
		return popup.SettledCancelled, ctx.Err()
	}
}

func (p *fakePopups) openedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opened)
}

type fakeWindows struct {
	states map[string]string
}

func (w *fakeWindows) MarkClosed(_ context.Context, id string) error {
	if _, ok := w.states[id]; !ok {
		return model.ErrAttemptNotFound
	}
	w.states[id] = popup.WindowClosed
	return nil
}

func (w *fakeWindows) State(_ context.Context, id string) (string, error) {
	s, ok := w.states[id]
	if !ok {
		return "", model.ErrAttemptNotFound
	}
	return s, nil
}

type fakePublisher struct {
	published []model.Message
}

func (p *fakePublisher) Publish(_ context.Context, _ string, msg model.Message) (int64, error) {
	p.published = append(p.published, msg)
	return 1, nil
}

type fakeRenderer struct {
	err error
}

func (r fakeRenderer) Render(_ context.Context, rec returnurl.Record) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "<p>" + rec.Method + " " + rec.Amount.Decimal.String() + "</p>", nil
}

// ===== SETUP =====

type fixture struct {
	svc       *CheckoutService
	repo      repository.PageStateRepository
	backend   *fakeBackend
	popups    *fakePopups
	windows   *fakeWindows
	publisher *fakePublisher
	metrics   *metrics.CheckoutMetrics
}

func newFixture(t *testing.T, renderer Renderer, cfg Config) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if cfg.Products == nil {
		cfg.Products = []model.Product{{ID: "basic", Price: 10000}, {ID: "premium", Price: 100000}}
	}

	f := &fixture{
		repo:      repository.NewRedisRepository(client, time.Hour),
		backend:   &fakeBackend{result: &model.CreationResult{Status: model.StatusSuccess, Method: model.MethodMomo, URL: "https://pay.example.com/momo"}},
		popups:    newFakePopups(),
		windows:   &fakeWindows{states: map[string]string{}},
		publisher: &fakePublisher{},
		metrics:   metrics.NewCheckoutMetrics("test", prometheus.NewRegistry()),
	}
	presenter := NewViewPresenter(renderer, f.repo, f.metrics)
	f.svc = NewCheckoutService(f.repo, f.backend, f.popups, f.windows, f.publisher, presenter, returnurl.Verifier{}, f.metrics, cfg)
	t.Cleanup(f.svc.Close)
	return f
}

// ===== INITIATION =====

func TestInitiateWithoutMethodMakesNoNetworkCall(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})

	_, err := f.svc.Initiate(context.Background(), "s1", model.InitiateRequest{ProductID: "basic"})

	var chkErr *model.CheckoutError
	require.ErrorAs(t, err, &chkErr)
	assert.Equal(t, model.ErrCodeIncompleteForm, chkErr.Code)
	assert.Equal(t, model.AlertIncompleteForm, chkErr.Message)
	assert.ErrorIs(t, err, model.ErrIncompleteForm)
	assert.Zero(t, f.backend.calls())
}

func TestInitiateWithUnknownProductMakesNoNetworkCall(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	require.NoError(t, f.svc.SelectPaymentMethod(context.Background(), "s1", model.MethodMomo))

	_, err := f.svc.Initiate(context.Background(), "s1", model.InitiateRequest{ProductID: "gold"})
	assert.ErrorIs(t, err, model.ErrIncompleteForm)
	assert.Zero(t, f.backend.calls())
}

func TestInitiateSendsCatalogPrice(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodMomo))

	res, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "premium", Description: "goi premium"})
	require.NoError(t, err)

	require.Equal(t, 1, f.backend.calls())
	assert.Equal(t, model.PaymentRequest{
		Amount:        100000,
		Description:   "goi premium",
		PaymentMethod: model.MethodMomo,
		ProductID:     "premium",
	}, f.backend.requests[0])

	require.NotNil(t, res.Popup)
	assert.Equal(t, "attempt-1", res.Popup.AttemptID)
	assert.Equal(t, "https://pay.example.com/momo", res.Popup.URL)
	assert.Equal(t, 1, f.popups.openedCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AttemptsInFlight))

	close(f.popups.release)
	select {
	case s := <-f.popups.settled:
		assert.Equal(t, popup.SettledClosed, s)
	case <-time.After(time.Second):
		t.Fatal("attempt not settled")
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.PopupSettlementsTotal.WithLabelValues("momo", "closed")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestInitiateEmptyProductUsesFirstOption(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodVNPay))

	_, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), f.backend.requests[0].Amount)
	assert.Equal(t, "basic", f.backend.requests[0].ProductID)
}

func TestInitiateQRCodeNeverOpensPopup(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	f.backend.result = &model.CreationResult{Status: model.StatusSuccess, Method: model.MethodQRCode, URL: "https://qr.example.com/abc.png"}
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodQRCode))

	res, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "basic"})
	require.NoError(t, err)
	assert.Nil(t, res.Popup)
	assert.Contains(t, res.View, `<img src="https://qr.example.com/abc.png"`)
	assert.Zero(t, f.popups.openedCount())

	page, err := f.svc.Page(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, res.View, page.View)
}

func TestInitiateRejected(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	f.backend.result = &model.CreationResult{Status: "error", Message: "amount too small"}
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodMomo))

	_, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "basic"})

	var chkErr *model.CheckoutError
	require.ErrorAs(t, err, &chkErr)
	assert.Equal(t, model.AlertRejected, chkErr.Message)
	assert.ErrorIs(t, err, model.ErrPaymentRejected)
	assert.Zero(t, f.popups.openedCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.InitiationsTotal.WithLabelValues("momo", "rejected")))
}

func TestInitiateTransportFailure(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	f.backend.err = errors.New("connection refused")
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodVNPay))

	_, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "basic"})

	var chkErr *model.CheckoutError
	require.ErrorAs(t, err, &chkErr)
	assert.Equal(t, model.AlertTransport, chkErr.Message)
	assert.ErrorIs(t, err, model.ErrPaymentTransport)
	assert.Equal(t, 1, f.backend.calls())
}

func TestCloseCancelsInFlightAttempts(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodMomo))

	_, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "basic"})
	require.NoError(t, err)

	f.svc.Close()
	assert.Equal(t, popup.SettledCancelled, <-f.popups.settled)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.AttemptsInFlight))
}

func TestAttemptTimeoutCancelsAwait(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{AttemptTimeout: 20 * time.Millisecond})
	ctx := context.Background()
	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodMomo))

	_, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "basic"})
	require.NoError(t, err)

	select {
	case s := <-f.popups.settled:
		assert.Equal(t, popup.SettledCancelled, s)
	case <-time.After(time.Second):
		t.Fatal("attempt did not time out")
	}
}

// ===== SELECTION / RESET =====

func TestSelectAndGoBack(t *testing.T) {
	tests := []struct {
		name          string
		clear         bool
		wantSelection string
	}{
		{name: "reset clears selection", clear: true, wantSelection: ""},
		{name: "legacy retention", clear: false, wantSelection: model.MethodMomo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fakeRenderer{}, Config{ResetClearsSelection: tt.clear})
			ctx := context.Background()

			require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodMomo))
			page, err := f.svc.Page(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, model.MethodMomo, page.SelectedMethod)
			assert.Equal(t, model.MethodMomo, page.MarkedMethod)
			assert.True(t, page.BackVisible)
			assert.Equal(t, model.ViewPlaceholder, page.View)

			require.NoError(t, f.svc.GoBack(ctx, "s1"))
			page, err = f.svc.Page(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSelection, page.SelectedMethod)
			assert.Empty(t, page.MarkedMethod)
			assert.False(t, page.BackVisible)
			assert.Equal(t, model.ViewPlaceholder, page.View)
		})
	}
}

func TestGoBackThenPayWithClearedSelectionIsIncomplete(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{ResetClearsSelection: true})
	ctx := context.Background()

	require.NoError(t, f.svc.SelectPaymentMethod(ctx, "s1", model.MethodMomo))
	require.NoError(t, f.svc.GoBack(ctx, "s1"))

	_, err := f.svc.Initiate(ctx, "s1", model.InitiateRequest{ProductID: "basic"})
	assert.ErrorIs(t, err, model.ErrIncompleteForm)
	assert.Zero(t, f.backend.calls())
}

// ===== RETURN URL =====

func TestCheckReturnURLRendersVNPay(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()

	res, err := f.svc.CheckReturnURL(ctx, "s1", "https://shop.example.com/return?vnp_Amount=10000&vnp_TmnCode=DEMO&vnp_PayDate=20231101153000")
	require.NoError(t, err)
	assert.True(t, res.Rendered)
	assert.Equal(t, "vnpay", res.Provider)
	assert.Equal(t, "<p>VNPay 100</p>", res.View)

	page, err := f.svc.Page(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "<p>VNPay 100</p>", page.View)
}

func TestCheckReturnURLUnrecognized(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})

	res, err := f.svc.CheckReturnURL(context.Background(), "s1", "https://shop.example.com/return?a=1")
	require.NoError(t, err)
	assert.False(t, res.Rendered)
	assert.Empty(t, res.View)
}

func TestCheckReturnURLRenderFailureLeavesViewUntouched(t *testing.T) {
	f := newFixture(t, fakeRenderer{err: errors.New("template 404")}, Config{})
	ctx := context.Background()

	res, err := f.svc.CheckReturnURL(ctx, "s1", "https://shop.example.com/return?partnerCode=MOMO&amount=50000")
	require.NoError(t, err)
	assert.False(t, res.Rendered)
	assert.Equal(t, "momo", res.Provider)

	page, err := f.svc.Page(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ViewPlaceholder, page.View)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RenderFailuresTotal.WithLabelValues("momo")))
}

func TestCheckReturnURLBadSignature(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	f.svc.verifier = returnurl.Verifier{VNPayHashSecret: "secret"}

	_, err := f.svc.CheckReturnURL(context.Background(), "s1", "https://shop.example.com/return?vnp_TmnCode=DEMO&vnp_SecureHash=bad")

	var chkErr *model.CheckoutError
	require.ErrorAs(t, err, &chkErr)
	assert.Equal(t, model.ErrCodeInvalidSignature, chkErr.Code)
}

func TestCheckReturnURLSignedWithReservedCharacters(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	f.svc.verifier = returnurl.Verifier{VNPayTmnCode: "DEMO", VNPayHashSecret: "secret"}

	hashData := "vnp_Amount=10000&vnp_OrderInfo=Goi+1%2B1+A%7EB&vnp_PayDate=20231101153000&vnp_TmnCode=DEMO"
	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write([]byte(hashData))
	returnURL := "https://shop.example.com/return?" + hashData + "&vnp_SecureHash=" + strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))

	res, err := f.svc.CheckReturnURL(context.Background(), "s1", returnURL)
	require.NoError(t, err)
	assert.True(t, res.Rendered)
	assert.Equal(t, "<p>VNPay 100</p>", res.View)
}

// ===== POPUP RELAY =====

func TestRelayMessage(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	f.windows.states["a1"] = popup.WindowOpen

	err := f.svc.RelayMessage(ctx, "a1", model.MessageRequest{Type: model.MessageTypeURLChange, URL: "https://shop.example.com/return?x=1"})
	require.NoError(t, err)
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, "https://shop.example.com/return?x=1", f.publisher.published[0].URL)

	err = f.svc.RelayMessage(ctx, "missing", model.MessageRequest{Type: "resize"})
	assert.ErrorIs(t, err, model.ErrAttemptNotFound)

	err = f.svc.RelayMessage(ctx, "a1", model.MessageRequest{Type: model.MessageTypeURLChange})
	assert.ErrorIs(t, err, model.ErrInvalidMessage)
}

func TestRelayMessageAcceptsQueryOnlyURL(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	f.windows.states["a1"] = popup.WindowOpen

	for _, u := range []string{"?partnerCode=MOMO&amount=1000", "shop.example.com/return?vnp_TmnCode=X"} {
		require.NoError(t, f.svc.RelayMessage(ctx, "a1", model.MessageRequest{Type: model.MessageTypeURLChange, URL: u}), u)
	}
	require.Len(t, f.publisher.published, 2)
	assert.Equal(t, "?partnerCode=MOMO&amount=1000", f.publisher.published[0].URL)
}

func TestReportClosedAndStatus(t *testing.T) {
	f := newFixture(t, fakeRenderer{}, Config{})
	ctx := context.Background()
	f.windows.states["a1"] = popup.WindowOpen

	status, err := f.svc.AttemptStatus(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, status.Open)

	require.NoError(t, f.svc.ReportClosed(ctx, "a1"))
	status, err = f.svc.AttemptStatus(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, status.Open)

	assert.ErrorIs(t, f.svc.ReportClosed(ctx, "missing"), model.ErrAttemptNotFound)
}

// ===== CATALOG =====

func TestParseCatalog(t *testing.T) {
	products, err := ParseCatalog(" basic:10000, premium:100000 ,")
	require.NoError(t, err)
	assert.Equal(t, []model.Product{{ID: "basic", Price: 10000}, {ID: "premium", Price: 100000}}, products)

	for _, raw := range []string{"basic", "basic:abc", ":10", "a:1,a:2", "a:-5"} {
		_, err := ParseCatalog(raw)
		assert.Error(t, err, raw)
	}
}
