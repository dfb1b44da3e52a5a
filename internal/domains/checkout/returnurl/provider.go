package returnurl

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
)

// Provider là tập đóng các payment provider mà widget hỗ trợ
type Provider int

const (
	ProviderUnknown Provider = iota
	ProviderMomo             // return URL, marker partnerCode
	ProviderVNPay            // return URL, marker vnp_TmnCode
	ProviderStripe           // session-based, tra cứu qua payment-info endpoint
)

func (p Provider) String() string {
	switch p {
	case ProviderMomo:
		return model.MethodMomo
	case ProviderVNPay:
		return model.MethodVNPay
	case ProviderStripe:
		return model.MethodStripe
	default:
		return "unknown"
	}
}

// SessionBased true khi dữ liệu thanh toán lấy qua session_id thay vì return URL
func (p Provider) SessionBased() bool {
	return p == ProviderStripe
}

// ProviderFromMethod maps a backend payment method name to a provider
func ProviderFromMethod(method string) Provider {
	switch method {
	case model.MethodMomo:
		return ProviderMomo
	case model.MethodVNPay:
		return ProviderVNPay
	case model.MethodStripe:
		return ProviderStripe
	default:
		return ProviderUnknown
	}
}

// =====================================================
// RECOGNITION
// =====================================================

// recognizers theo thứ tự ưu tiên: MoMo trước VNPay
var recognizers = []struct {
	provider Provider
	match    func(map[string]string) bool
}{
	{ProviderMomo, isMomo},
	{ProviderVNPay, isVNPay},
}

func isMomo(params map[string]string) bool {
	return params["partnerCode"] != ""
}

func isVNPay(params map[string]string) bool {
	return params["vnp_TmnCode"] != ""
}

// Recognize xác định provider từ bộ tham số return URL
func Recognize(params map[string]string) (Provider, bool) {
	for _, r := range recognizers {
		if r.match(params) {
			return r.provider, true
		}
	}
	return ProviderUnknown, false
}

// =====================================================
// NORMALIZATION
// =====================================================

// Record dữ liệu thanh toán đã chuẩn hoá để hiển thị.
// Amount luôn ở đơn vị tiền cơ sở (VNPay đã chia 100).
type Record struct {
	Provider    Provider
	Amount      decimal.NullDecimal
	Method      string // tên hiển thị
	Description string
	Timestamp   string // raw, định dạng tuỳ provider
	MethodType  string // loại phương thức con của provider session-based
}

var hundred = decimal.NewFromInt(100)

// Normalize maps provider-specific return parameters to a Record.
// Provider không hỗ trợ return URL trả về false.
func Normalize(p Provider, params map[string]string) (Record, bool) {
	switch p {
	case ProviderMomo:
		return Record{
			Provider:    ProviderMomo,
			Amount:      parseLeadingInt(params["amount"]),
			Method:      "Momo",
			Description: params["orderInfo"],
			Timestamp:   params["responseTime"],
		}, true

	case ProviderVNPay:
		amount := parseLeadingInt(params["vnp_Amount"])
		if amount.Valid {
			amount.Decimal = amount.Decimal.Div(hundred)
		}
		return Record{
			Provider:    ProviderVNPay,
			Amount:      amount,
			Method:      "VNPay",
			Description: params["vnp_OrderInfo"],
			Timestamp:   params["vnp_PayDate"],
		}, true
	}

	return Record{}, false
}

// FromPaymentInfo builds a Record from a session lookup result
func FromPaymentInfo(info model.PaymentInfo) Record {
	return Record{
		Provider:    ProviderStripe,
		Amount:      info.Amount,
		Method:      info.Method,
		Description: info.Description,
		Timestamp:   info.Timestamp,
		MethodType:  info.PaymentMethodType,
	}
}

// parseLeadingInt đọc phần số nguyên ở đầu chuỗi ("123abc" -> 123).
// Không có chữ số nào -> NullDecimal không hợp lệ.
func parseLeadingInt(s string) decimal.NullDecimal {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s[:end], "+"))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
