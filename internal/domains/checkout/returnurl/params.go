// Package returnurl đọc tham số return URL của các payment provider và chuẩn hoá
// chúng thành Record dùng cho trang xác nhận thanh toán.
package returnurl

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var paramPattern = regexp.MustCompile(`[?&]([^=#]+)=([^&#]*)`)

// ParseParams trích các cặp key=value nằm sau '?' hoặc '&' cho tới '#'.
// Key và value được percent-decode, '+' trong value thành khoảng trắng.
// Key trùng: giá trị cuối cùng thắng. Input lỗi không trả error.
func ParseParams(raw string) map[string]string {
	params := make(map[string]string)

	for _, match := range paramPattern.FindAllStringSubmatch(raw, -1) {
		key := decodeComponent(match[1])
		value := decodeComponent(match[2])
		value = strings.ReplaceAll(value, "+", " ")
		params[key] = value
	}

	return params
}

// SignedParams đọc query theo cách provider ký: '+' là khoảng trắng còn "%2B" là '+'.
// Chỉ dùng để verify chữ ký; giá trị hiển thị lấy từ ParseParams.
func SignedParams(raw string) map[string]string {
	params := make(map[string]string)

	for _, match := range paramPattern.FindAllStringSubmatch(raw, -1) {
		value, err := url.QueryUnescape(match[2])
		if err != nil {
			value = match[2]
		}
		params[decodeComponent(match[1])] = value
	}

	return params
}

// decodeComponent giữ nguyên chuỗi gốc khi escape sequence không hợp lệ
// hoặc kết quả decode không phải UTF-8
func decodeComponent(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil || !utf8.ValidString(decoded) {
		return s
	}
	return decoded
}
