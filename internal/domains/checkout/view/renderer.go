// Package view dựng HTML cho view surface của widget: trang xác nhận thanh toán và mã QR.
package view

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
)

// Placeholders trong payment_success.html
const (
	PlaceholderAmount = "{{payment-amount}}"
	PlaceholderMethod = "{{payment-method}}"
	PlaceholderInfo   = "{{payment-info}}"
	PlaceholderTime   = "{{payment-time}}"
)

// Renderer dựng trang xác nhận từ Record
type Renderer struct {
	source    TemplateSource
	formatter returnurl.Formatter
}

func NewRenderer(source TemplateSource, formatter returnurl.Formatter) *Renderer {
	return &Renderer{
		source:    source,
		formatter: formatter,
	}
}

// Fields là bốn giá trị hiển thị của trang xác nhận
type Fields struct {
	Amount string
	Method string
	Info   string
	Time   string
}

// DisplayFields: VNPay dùng packed date, provider khác dùng epoch millis;
// provider session-based hiển thị MethodType; amount không hợp lệ -> "NaN".
func DisplayFields(rec returnurl.Record, formatter returnurl.Formatter) Fields {
	f := Fields{
		Amount: "NaN",
		Method: rec.Method,
		Info:   rec.Description,
	}
	if rec.Amount.Valid {
		f.Amount = rec.Amount.Decimal.String()
	}
	if rec.Provider.SessionBased() {
		f.Method = rec.MethodType
	}
	if rec.Provider == returnurl.ProviderVNPay {
		f.Time = formatter.PackedDate(rec.Timestamp)
	} else {
		f.Time = formatter.EpochMillis(rec.Timestamp)
	}
	return f
}

// Render loads the template and fills the four placeholders from rec
func (r *Renderer) Render(ctx context.Context, rec returnurl.Record) (string, error) {
	tmpl, err := r.source.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load payment_success template: %w", err)
	}

	f := DisplayFields(rec, r.formatter)
	return Substitute(tmpl, map[string]string{
		PlaceholderAmount: f.Amount,
		PlaceholderMethod: f.Method,
		PlaceholderInfo:   f.Info,
		PlaceholderTime:   f.Time,
	}), nil
}

// Substitute thay lần xuất hiện đầu tiên của mỗi placeholder trong tmpl.
// Vị trí được xác định trên template gốc nên giá trị chèn vào không bị quét lại.
func Substitute(tmpl string, values map[string]string) string {
	type hit struct {
		at          int
		placeholder string
	}

	hits := make([]hit, 0, len(values))
	for placeholder := range values {
		if at := strings.Index(tmpl, placeholder); at >= 0 {
			hits = append(hits, hit{at: at, placeholder: placeholder})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	var b strings.Builder
	b.Grow(len(tmpl))
	last := 0
	for _, h := range hits {
		if h.at < last {
			continue
		}
		b.WriteString(tmpl[last:h.at])
		b.WriteString(values[h.placeholder])
		last = h.at + len(h.placeholder)
	}
	b.WriteString(tmpl[last:])

	return b.String()
}

// QRMarkup dựng fragment hiển thị ảnh QR ngân hàng
func QRMarkup(qrURL string) string {
	return fmt.Sprintf(`
                    <div style="text-align: center;">
                        <h3>Quét mã QR để thanh toán</h3>
                        <img src="%s" alt="Mã QR Ngân hàng" class="qr-image">
                    </div>
                `, html.EscapeString(qrURL))
}
