package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
	"github.com/mthangit/demo-payment/internal/domains/checkout/service"
	"github.com/mthangit/demo-payment/internal/shared/middleware"
	res "github.com/mthangit/demo-payment/internal/shared/response"
)

type CheckoutHandler struct {
	checkoutService service.ServiceInterface
}

// NewCheckoutHandler creates new checkout handler
func NewCheckoutHandler(checkoutService service.ServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// =====================================================
// PAGE STATE ENDPOINTS
// =====================================================

// ListProducts returns the product selector options
// GET /api/v1/checkout/products
func (h *CheckoutHandler) ListProducts(c *gin.Context) {
	res.Success(c, http.StatusOK, h.checkoutService.Products())
}

// GetPage returns the widget state of the session
// GET /api/v1/checkout/page
func (h *CheckoutHandler) GetPage(c *gin.Context) {
	page, err := h.checkoutService.Page(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	res.Success(c, http.StatusOK, page)
}

// SelectMethod chọn phương thức thanh toán
// POST /api/v1/checkout/select
func (h *CheckoutHandler) SelectMethod(c *gin.Context) {
	// Step 1: Bind request body
	var req model.SelectMethodRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Step 2: Validate request
	if err := req.Validate(); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	// Step 3: Call service
	session := middleware.GetSessionID(c)
	if err := h.checkoutService.SelectPaymentMethod(c.Request.Context(), session, req.Method); err != nil {
		respondError(c, err)
		return
	}

	// Step 4: Return current page
	h.GetPage(c)
}

// Reset nút back
// POST /api/v1/checkout/reset
func (h *CheckoutHandler) Reset(c *gin.Context) {
	if err := h.checkoutService.GoBack(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	h.GetPage(c)
}

// =====================================================
// PAYMENT ENDPOINTS
// =====================================================

// Pay runs the payment initiation flow
// POST /api/v1/checkout/pay
func (h *CheckoutHandler) Pay(c *gin.Context) {
	// Step 1: Bind request body
	var req model.InitiateRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Step 2: Validate request
	if err := req.Validate(); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	// Step 3: Call service
	resp, err := h.checkoutService.Initiate(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Step 4: Return response
	statusCode := http.StatusOK
	if resp.Popup != nil {
		statusCode = http.StatusCreated
	}
	res.Success(c, statusCode, resp)
}

// CheckURL kiểm tra return URL dán tay
// POST /api/v1/checkout/check-url
func (h *CheckoutHandler) CheckURL(c *gin.Context) {
	var req model.CheckURLRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.checkoutService.CheckReturnURL(c.Request.Context(), middleware.GetSessionID(c), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	res.Success(c, http.StatusOK, resp)
}

// =====================================================
// POPUP RELAY ENDPOINTS
// =====================================================

// RelayMessage forwards the provider window's postMessage payload
// POST /api/v1/checkout/attempts/:id/messages
func (h *CheckoutHandler) RelayMessage(c *gin.Context) {
	// Step 1: Get attempt ID from URL
	attemptID := c.Param("id")

	// Step 2: Bind request body
	var req model.MessageRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Step 3: Call service (validation inside)
	if err := h.checkoutService.RelayMessage(c.Request.Context(), attemptID, req); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// ReportClosed
// POST /api/v1/checkout/attempts/:id/closed
func (h *CheckoutHandler) ReportClosed(c *gin.Context) {
	if err := h.checkoutService.ReportClosed(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetAttempt trình duyệt poll để biết khi nào đóng popup
// GET /api/v1/checkout/attempts/:id
func (h *CheckoutHandler) GetAttempt(c *gin.Context) {
	status, err := h.checkoutService.AttemptStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	res.Success(c, http.StatusOK, status)
}

// =====================================================
// HELPER FUNCTIONS
// =====================================================

func respondError(c *gin.Context, err error) {
	statusCode, errCode, message := mapCheckoutError(err)
	res.ErrorResponse(c, statusCode, errCode, message)
}

// mapCheckoutError trả về HTTP status, mã lỗi và thông điệp alert
func mapCheckoutError(err error) (statusCode int, errorCode string, message string) {
	// Default
	statusCode = http.StatusInternalServerError
	errorCode = "INTERNAL_ERROR"
	message = model.AlertTransport

	var chkErr *model.CheckoutError
	if !errors.As(err, &chkErr) {
		return statusCode, errorCode, message
	}

	errorCode = chkErr.Code
	message = chkErr.Message

	// Map error codes to HTTP status codes
	switch chkErr.Code {
	case model.ErrCodeIncompleteForm, model.ErrCodeInvalidMessage:
		statusCode = http.StatusBadRequest
	case model.ErrCodePaymentRejected:
		statusCode = http.StatusUnprocessableEntity
	case model.ErrCodeTransport:
		statusCode = http.StatusBadGateway
	case model.ErrCodeAttemptNotFound:
		statusCode = http.StatusNotFound
	case model.ErrCodeInvalidSignature:
		statusCode = http.StatusBadRequest
	default:
		statusCode = http.StatusInternalServerError
	}

	return statusCode, errorCode, message
}

func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
