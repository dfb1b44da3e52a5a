package model

import (
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// =====================================================
// BACKEND WIRE TYPES
// =====================================================

// PaymentRequest body gửi tới payment endpoint
type PaymentRequest struct {
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	PaymentMethod string `json:"payment_method"`
	ProductID     string `json:"product_id"`
}

// CreationResult response của payment endpoint
type CreationResult struct {
	Status    string `json:"status"`
	Method    string `json:"method"`
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (r CreationResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// PaymentInfo response của payment-info endpoint (provider dùng session)
type PaymentInfo struct {
	Amount            decimal.NullDecimal `json:"amount"`
	Method            string              `json:"method"`
	Description       string              `json:"description"`
	Timestamp         string              `json:"timestampt"`
	PaymentMethodType string              `json:"payment_method_type"`
}

// UnmarshalJSON chấp nhận timestamp dạng số hoặc chuỗi, key "timestampt" hoặc "timestamp"
func (p *PaymentInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount            decimal.NullDecimal `json:"amount"`
		Method            string              `json:"method"`
		Description       string              `json:"description"`
		Timestampt        json.RawMessage     `json:"timestampt"`
		Timestamp         json.RawMessage     `json:"timestamp"`
		PaymentMethodType string              `json:"payment_method_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Amount = raw.Amount
	p.Method = raw.Method
	p.Description = raw.Description
	p.PaymentMethodType = raw.PaymentMethodType
	p.Timestamp = rawScalar(raw.Timestampt)
	if p.Timestamp == "" {
		p.Timestamp = rawScalar(raw.Timestamp)
	}
	return nil
}

func rawScalar(msg json.RawMessage) string {
	s := strings.TrimSpace(string(msg))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(msg, &str); err == nil {
		return str
	}
	return s
}

// Message payload window.postMessage từ popup, được trình duyệt relay về server
type Message struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// IsURLChange true khi message mang return URL hợp lệ
func (m Message) IsURLChange() bool {
	return m.Type == MessageTypeURLChange && m.URL != ""
}

// =====================================================
// FORM STATE
// =====================================================

// Form trạng thái form tại thời điểm bấm thanh toán
type Form struct {
	Amount      *int64 // data-price của option đang chọn, nil = không có giá
	ProductID   string
	Description string
	Method      string // Selection State
}

// Validate chặn submit khi thiếu số tiền hoặc chưa chọn phương thức
func (f Form) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Amount, validation.NotNil),
		validation.Field(&f.Method, validation.Required),
	)
}

// ToPaymentRequest builds the backend request body
func (f Form) ToPaymentRequest() PaymentRequest {
	req := PaymentRequest{
		Description:   f.Description,
		PaymentMethod: f.Method,
		ProductID:     f.ProductID,
	}
	if f.Amount != nil {
		req.Amount = *f.Amount
	}
	return req
}

// =====================================================
// HTTP REQUEST/RESPONSE DTOs
// =====================================================

type SelectMethodRequest struct {
	Method string `json:"method" binding:"required"`
}

func (r SelectMethodRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Method, validation.Required, validation.Length(1, 64)),
	)
}

type InitiateRequest struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
}

func (r InitiateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

type CheckURLRequest struct {
	URL string `json:"url" binding:"required"`
}

func (r CheckURLRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required),
	)
}

type MessageRequest struct {
	Type string `json:"type" binding:"required"`
	URL  string `json:"url"`
}

// Validate: url_change cần url khác rỗng; url có thể là URL đầy đủ hoặc chỉ query string
func (r MessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.URL, validation.When(r.Type == MessageTypeURLChange, validation.Required)),
	)
}

// PopupAttempt thông tin để trình duyệt mở cửa sổ provider
type PopupAttempt struct {
	AttemptID string `json:"attempt_id"`
	URL       string `json:"url"`
}

// InitiateResponse kết quả của một lần bấm thanh toán
type InitiateResponse struct {
	Method string        `json:"method"`
	View   string        `json:"view,omitempty"`  // QR branch
	Popup  *PopupAttempt `json:"popup,omitempty"` // popup branch
}

// PageResponse trạng thái hiển thị của widget
type PageResponse struct {
	SelectedMethod string `json:"selected_method"`
	MarkedMethod   string `json:"marked_method"`
	BackVisible    bool   `json:"back_visible"`
	View           string `json:"view"`
}

type CheckURLResponse struct {
	Rendered bool   `json:"rendered"`
	Provider string `json:"provider,omitempty"`
	View     string `json:"view,omitempty"`
}

// Product một option trong product selector
type Product struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

// AttemptStatus trình duyệt đóng popup khi Open=false
type AttemptStatus struct {
	AttemptID string `json:"attempt_id"`
	Open      bool   `json:"open"`
}
