package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/internal/shared/middleware"
)

type stubService struct {
	session    string
	method     string
	initiate   *model.InitiateResponse
	err        error
	relayed    model.MessageRequest
	closedID   string
	resetCalls int
}

func (s *stubService) Products() []model.Product {
	return []model.Product{{ID: "basic", Price: 10000}}
}

func (s *stubService) Page(_ context.Context, session string) (*model.PageResponse, error) {
	s.session = session
	return &model.PageResponse{SelectedMethod: s.method, MarkedMethod: s.method, BackVisible: s.method != "", View: model.ViewPlaceholder}, nil
}

func (s *stubService) SelectPaymentMethod(_ context.Context, _ string, method string) error {
	s.method = method
	return s.err
}

func (s *stubService) GoBack(context.Context, string) error {
	s.resetCalls++
	s.method = ""
	return s.err
}

func (s *stubService) Initiate(context.Context, string, model.InitiateRequest) (*model.InitiateResponse, error) {
	return s.initiate, s.err
}

func (s *stubService) CheckReturnURL(context.Context, string, string) (*model.CheckURLResponse, error) {
	return &model.CheckURLResponse{Rendered: true, Provider: "vnpay", View: "<p>ok</p>"}, s.err
}

func (s *stubService) RelayMessage(_ context.Context, _ string, req model.MessageRequest) error {
	s.relayed = req
	return s.err
}

func (s *stubService) ReportClosed(_ context.Context, id string) error {
	s.closedID = id
	return s.err
}

func (s *stubService) AttemptStatus(_ context.Context, id string) (*model.AttemptStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.AttemptStatus{AttemptID: id, Open: true}, nil
}

func (s *stubService) Close() {}

func newRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCheckoutHandler(svc)

	cfg := middleware.DefaultSessionConfig()
	cfg.CookieSecure = false
	g := r.Group("/api/v1/checkout", middleware.CheckoutSession(cfg))
	g.GET("/products", h.ListProducts)
	g.GET("/page", h.GetPage)
	g.POST("/select", h.SelectMethod)
	g.POST("/reset", h.Reset)
	g.POST("/pay", h.Pay)
	g.POST("/check-url", h.CheckURL)
	g.GET("/attempts/:id", h.GetAttempt)
	g.POST("/attempts/:id/messages", h.RelayMessage)
	g.POST("/attempts/:id/closed", h.ReportClosed)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestSelectReturnsPage(t *testing.T) {
	svc := &stubService{}
	w, env := do(t, newRouter(svc), http.MethodPost, "/api/v1/checkout/select", `{"method":"momo"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var page model.PageResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "momo", page.SelectedMethod)
	assert.True(t, page.BackVisible)
	assert.NotEmpty(t, svc.session)
}

func TestSelectRequiresMethod(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}), http.MethodPost, "/api/v1/checkout/select", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestReset(t *testing.T) {
	svc := &stubService{method: "momo"}
	w, _ := do(t, newRouter(svc), http.MethodPost, "/api/v1/checkout/reset", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.resetCalls)
}

func TestPayErrorsCarryAlertText(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "incomplete form",
			err:        model.NewIncompleteFormError(errors.New("method: cannot be blank")),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeIncompleteForm,
			wantMsg:    model.AlertIncompleteForm,
		},
		{
			name:       "rejected",
			err:        model.NewPaymentRejectedError("amount too small"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   model.ErrCodePaymentRejected,
			wantMsg:    model.AlertRejected,
		},
		{
			name:       "transport",
			err:        model.NewTransportError(errors.New("dial tcp: refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeTransport,
			wantMsg:    model.AlertTransport,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    model.AlertTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, newRouter(&stubService{err: tt.err}), http.MethodPost, "/api/v1/checkout/pay", `{"product_id":"basic"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.wantMsg, env.Error.Message)
		})
	}
}

func TestPayPopupAndQR(t *testing.T) {
	svc := &stubService{initiate: &model.InitiateResponse{
		Method: "momo",
		Popup:  &model.PopupAttempt{AttemptID: "a1", URL: "https://pay.example.com"},
	}}
	w, env := do(t, newRouter(svc), http.MethodPost, "/api/v1/checkout/pay", `{"product_id":"basic","description":"x"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"attempt_id":"a1"`)

	svc.initiate = &model.InitiateResponse{Method: "qr_code", View: "<div>qr</div>"}
	w, env = do(t, newRouter(svc), http.MethodPost, "/api/v1/checkout/pay", `{"product_id":"basic"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), "popup")
}

func TestCheckURL(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}), http.MethodPost, "/api/v1/checkout/check-url", `{"url":"https://shop.example.com/return?vnp_TmnCode=X"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.CheckURLResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.Rendered)
	assert.Equal(t, "vnpay", resp.Provider)
}

func TestAttemptEndpoints(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w, _ := do(t, r, http.MethodPost, "/api/v1/checkout/attempts/a1/messages", `{"type":"url_change","url":"https://shop.example.com/r?x=1"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "url_change", svc.relayed.Type)

	w, _ = do(t, r, http.MethodPost, "/api/v1/checkout/attempts/a1/closed", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "a1", svc.closedID)

	w, env := do(t, r, http.MethodGet, "/api/v1/checkout/attempts/a1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"open":true`)

	svc.err = model.NewAttemptNotFoundError("zz")
	w, env = do(t, r, http.MethodGet, "/api/v1/checkout/attempts/zz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeAttemptNotFound, env.Error.Code)
}

func TestListProducts(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}), http.MethodGet, "/api/v1/checkout/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"basic","price":10000}]`, string(env.Data))
}
