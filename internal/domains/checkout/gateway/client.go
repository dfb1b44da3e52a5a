package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
)

// =====================================================
// PAYMENT BACKEND CLIENT
// =====================================================

// PaymentBackend là hai endpoint REST của payment backend
type PaymentBackend interface {
	// CreatePayment POST payment request, trả về CreationResult như backend gửi
	CreatePayment(ctx context.Context, req model.PaymentRequest) (*model.CreationResult, error)

	// PaymentInfo GET payment-info theo session_id (provider session-based)
	PaymentInfo(ctx context.Context, sessionID string) (*model.PaymentInfo, error)
}

type Client struct {
	paymentURL string
	infoURL    string
	httpClient *http.Client
}

// NewClient creates new payment backend client
func NewClient(paymentURL, infoURL string, timeout time.Duration) *Client {
	return &Client{
		paymentURL: paymentURL,
		infoURL:    infoURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreatePayment gửi payment request. Body được decode bất kể HTTP status,
// caller quyết định dựa trên field status.
func (c *Client) CreatePayment(ctx context.Context, req model.PaymentRequest) (*model.CreationResult, error) {
	// Step 1: Build request body
	bodyJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.paymentURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Step 2: Call backend
	var result model.CreationResult
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// PaymentInfo tra cứu kết quả thanh toán theo session_id
func (c *Client) PaymentInfo(ctx context.Context, sessionID string) (*model.PaymentInfo, error) {
	u, err := url.Parse(c.infoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid payment-info url: %w", err)
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var info model.PaymentInfo
	if err := c.do(httpReq, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *Client) do(httpReq *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call payment backend: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	return nil
}
