package returnurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
)

// =====================================================
// RETURN URL SIGNATURE VERIFICATION
// =====================================================

// Verifier kiểm tra return URL: merchant code khớp cấu hình và chữ ký hợp lệ.
// Trường nào để trống thì bỏ qua bước kiểm tra tương ứng.
type Verifier struct {
	VNPayTmnCode    string
	VNPayHashSecret string
	MomoPartnerCode string
	MomoAccessKey   string
	MomoSecretKey   string
}

// Verify trả về model.ErrInvalidSignature khi merchant hoặc chữ ký không khớp.
// Chữ ký được tính lại trên giá trị decode theo query semantics (SignedParams).
func (v Verifier) Verify(p Provider, returnURL string) error {
	params := SignedParams(returnURL)

	switch p {
	case ProviderVNPay:
		if v.VNPayTmnCode != "" && params["vnp_TmnCode"] != v.VNPayTmnCode {
			return fmt.Errorf("%w: vnpay merchant %q", model.ErrInvalidSignature, params["vnp_TmnCode"])
		}
		if v.VNPayHashSecret != "" && !VerifyVNPay(params, v.VNPayHashSecret) {
			return fmt.Errorf("%w: vnpay", model.ErrInvalidSignature)
		}
	case ProviderMomo:
		if v.MomoPartnerCode != "" && params["partnerCode"] != v.MomoPartnerCode {
			return fmt.Errorf("%w: momo partner %q", model.ErrInvalidSignature, params["partnerCode"])
		}
		if v.MomoSecretKey != "" && !VerifyMomo(params, v.MomoAccessKey, v.MomoSecretKey) {
			return fmt.Errorf("%w: momo", model.ErrInvalidSignature)
		}
	}
	return nil
}

// VerifyVNPay verifies vnp_SecureHash of a VNPay return URL
//
// Algorithm:
// 1. Lấy tất cả tham số vnp_* trừ vnp_SecureHash, vnp_SecureHashType, bỏ giá trị rỗng
// 2. Sort theo key (ascending)
// 3. hashData = urlencode(key)=urlencode(value) nối bằng '&' (PHP urlencode)
// 4. HMAC-SHA512(hashData, secret), hex uppercase
func VerifyVNPay(params map[string]string, hashSecret string) bool {
	received := params["vnp_SecureHash"]
	if received == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if !strings.HasPrefix(k, "vnp_") || v == "" {
			continue
		}
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, phpURLEncode(k)+"="+phpURLEncode(params[k]))
	}

	mac := hmac.New(sha512.New, []byte(hashSecret))
	mac.Write([]byte(strings.Join(parts, "&")))
	expected := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))

	return hmac.Equal([]byte(strings.ToUpper(received)), []byte(expected))
}

// VerifyMomo verifies the signature of a MoMo redirect
// Format: accessKey=..&amount=..&extraData=..&message=..&orderId=..&orderInfo=..&orderType=..
// &partnerCode=..&payType=..&requestId=..&responseTime=..&resultCode=..&transId=..
func VerifyMomo(params map[string]string, accessKey, secretKey string) bool {
	received := params["signature"]
	if received == "" {
		return false
	}

	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		accessKey,
		params["amount"],
		params["extraData"],
		params["message"],
		params["orderId"],
		params["orderInfo"],
		params["orderType"],
		params["partnerCode"],
		params["payType"],
		params["requestId"],
		params["responseTime"],
		params["resultCode"],
		params["transId"],
	)

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(raw))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
}

// phpURLEncode encodes string like PHP's urlencode(): spaces become '+', '~' is escaped
func phpURLEncode(s string) string {
	return strings.NewReplacer("%20", "+", "~", "%7E").Replace(url.QueryEscape(s))
}

// =====================================================
// RESULT MESSAGES
// =====================================================

var vnpayMessages = map[string]string{
	"00": "Giao dịch thành công",
	"07": "Giao dịch hết hạn (timeout)",
	"09": "Giao dịch đang xử lý",
	"10": "Thẻ bị khóa",
	"11": "Mã OTP hết hạn",
	"13": "OTP không chính xác (nhập sai quá số lần)",
	"24": "Người dùng hủy giao dịch",
	"51": "Số dư tài khoản không đủ",
	"65": "Vượt quá hạn mức thanh toán",
	"75": "Ngân hàng đang bảo trì",
	"79": "Giao dịch hết hạn (timeout)",
}

var momoMessages = map[string]string{
	"0":    "Giao dịch thành công",
	"9000": "Người dùng hủy giao dịch",
	"1001": "Số dư tài khoản không đủ",
	"1002": "Giao dịch hết hạn",
	"1003": "Phương thức thanh toán không khả dụng",
	"1004": "Yêu cầu không hợp lệ",
	"1005": "Giao dịch thất bại",
	"1006": "Tài khoản bị khóa",
	"4001": "Chữ ký không hợp lệ",
}

// ResultMessage trả về thông điệp tiếng Việt cho mã kết quả của provider.
// Return URL không có mã kết quả -> chuỗi rỗng.
func ResultMessage(p Provider, params map[string]string) string {
	var (
		code     string
		messages map[string]string
	)
	switch p {
	case ProviderVNPay:
		code, messages = params["vnp_ResponseCode"], vnpayMessages
	case ProviderMomo:
		code, messages = params["resultCode"], momoMessages
	default:
		return ""
	}

	if code == "" {
		return ""
	}
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Lỗi không xác định"
}
