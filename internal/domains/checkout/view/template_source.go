package view

import (
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"time"
)

//go:embed templates/payment_success.html
var templatesFS embed.FS

const embeddedTemplatePath = "templates/payment_success.html"

// TemplateSource cung cấp nội dung fragment payment_success.html
type TemplateSource interface {
	Load(ctx context.Context) (string, error)
}

// =====================================================
// HTTP TEMPLATE SOURCE
// =====================================================

// HTTPTemplateSource fetch fragment qua HTTP mỗi lần render
type HTTPTemplateSource struct {
	url        string
	httpClient *http.Client
}

func NewHTTPTemplateSource(url string, timeout time.Duration) *HTTPTemplateSource {
	return &HTTPTemplateSource{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTTPTemplateSource) Load(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create template request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch template: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch template: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	return string(body), nil
}

// =====================================================
// EMBEDDED TEMPLATE SOURCE
// =====================================================

// EmbeddedTemplateSource dùng bản payment_success.html đi kèm binary
type EmbeddedTemplateSource struct{}

func (EmbeddedTemplateSource) Load(_ context.Context) (string, error) {
	b, err := templatesFS.ReadFile(embeddedTemplatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded template: %w", err)
	}
	return string(b), nil
}

// NewTemplateSource chọn HTTP source khi có URL, ngược lại dùng bản embed
func NewTemplateSource(url string, timeout time.Duration) TemplateSource {
	if url == "" {
		return EmbeddedTemplateSource{}
	}
	return NewHTTPTemplateSource(url, timeout)
}
