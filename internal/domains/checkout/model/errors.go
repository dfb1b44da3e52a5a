package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrIncompleteForm       = errors.New("amount or payment method missing")
	ErrPaymentRejected      = errors.New("payment backend rejected the request")
	ErrPaymentTransport     = errors.New("payment backend unreachable or returned an unreadable body")
	ErrAttemptNotFound      = errors.New("checkout attempt not found")
	ErrInvalidMessage       = errors.New("invalid cross-window message")
	ErrInvalidSignature     = errors.New("invalid return url signature")
	ErrUnrecognizedProvider = errors.New("unrecognized payment provider")
)

// =====================================================
// CUSTOM CHECKOUT ERROR
// =====================================================

// CheckoutError mang theo mã lỗi nội bộ và thông điệp hiển thị cho người dùng (alert)
type CheckoutError struct {
	Code    string
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// NewCheckoutError creates a new checkout error
func NewCheckoutError(code, message string, err error) *CheckoutError {
	return &CheckoutError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewIncompleteFormError(err error) *CheckoutError {
	return NewCheckoutError(ErrCodeIncompleteForm, AlertIncompleteForm, fmt.Errorf("%w: %v", ErrIncompleteForm, err))
}

func NewPaymentRejectedError(serverMessage string) *CheckoutError {
	return NewCheckoutError(
		ErrCodePaymentRejected,
		AlertRejected,
		fmt.Errorf("%w: %s", ErrPaymentRejected, serverMessage),
	)
}

func NewTransportError(err error) *CheckoutError {
	return NewCheckoutError(ErrCodeTransport, AlertTransport, fmt.Errorf("%w: %v", ErrPaymentTransport, err))
}

func NewAttemptNotFoundError(attemptID string) *CheckoutError {
	return NewCheckoutError(
		ErrCodeAttemptNotFound,
		fmt.Sprintf("Checkout attempt not found: %s", attemptID),
		ErrAttemptNotFound,
	)
}

func NewInvalidSignatureError(err error) *CheckoutError {
	return NewCheckoutError(ErrCodeInvalidSignature, "Chữ ký return URL không hợp lệ", err)
}

func NewInvalidMessageError(err error) *CheckoutError {
	return NewCheckoutError(ErrCodeInvalidMessage, "Invalid popup message", fmt.Errorf("%w: %v", ErrInvalidMessage, err))
}

func NewInternalError(err error) *CheckoutError {
	return NewCheckoutError(ErrCodeInternalError, AlertTransport, err)
}
