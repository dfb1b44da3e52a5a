package model

// =====================================================
// PAYMENT METHODS
// =====================================================
const (
	MethodQRCode = "qr_code"
	MethodMomo   = "momo"
	MethodVNPay  = "vnpay"
	MethodStripe = "stripe"
)

// =====================================================
// BACKEND STATUS
// =====================================================
const (
	StatusSuccess = "success"
)

// =====================================================
// CROSS-WINDOW MESSAGES
// =====================================================
const (
	MessageTypeURLChange = "url_change"
)

// =====================================================
// USER-FACING TEXT
// =====================================================
const (
	ViewPlaceholder = "Chọn phương thức thanh toán để xem giao diện"

	AlertIncompleteForm = "Vui lòng điền đầy đủ số tiền và chọn phương thức thanh toán!"
	AlertRejected       = "Cập nhật thất bại, vui lòng thử lại!"
	AlertTransport      = "Có lỗi xảy ra, vui lòng thử lại!"
)

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	ErrCodeIncompleteForm   = "CHK001"
	ErrCodePaymentRejected  = "CHK002"
	ErrCodeTransport        = "CHK003"
	ErrCodeAttemptNotFound  = "CHK004"
	ErrCodeInvalidMessage   = "CHK005"
	ErrCodeInvalidSignature = "CHK006"
	ErrCodeInternalError    = "CHK007"
)
