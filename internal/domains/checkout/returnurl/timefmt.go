package returnurl

import (
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// InvalidDate hiển thị nguyên văn khi timestamp không đọc được
const InvalidDate = "Invalid Date"

// displayLayout: dd/MM/yyyy HH:mm:ss, 24h, không dấu phẩy
const displayLayout = "02/01/2006 15:04:05"

// maxEpochMillis giới hạn thời điểm biểu diễn được (±8.64e15 ms)
const maxEpochMillis = 8_640_000_000_000_000

var (
	errMalformedPackedDate = errors.New("malformed packed date")
	decimalMaxEpoch        = decimal.NewFromInt(maxEpochMillis)
)

// Formatter chuyển timestamp của provider sang chuỗi hiển thị.
// display: timezone hiển thị; packed: timezone dùng để dựng YYYYMMDDHHmmss.
type Formatter struct {
	display *time.Location
	packed  *time.Location
}

func NewFormatter(display, packed *time.Location) Formatter {
	if display == nil {
		display = time.UTC
	}
	if packed == nil {
		packed = time.Local
	}
	return Formatter{display: display, packed: packed}
}

// LoadLocation giống time.LoadLocation, "Asia/Bangkok" fallback về UTC+7 khi thiếu tzdata
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == "Asia/Bangkok" {
		return time.FixedZone("ICT", 7*60*60), nil
	}
	return nil, err
}

// EpochMillis formats an epoch-milliseconds string (MoMo responseTime)
func (f Formatter) EpochMillis(s string) string {
	ms := parseLeadingInt(s)
	if !ms.Valid || ms.Decimal.Abs().GreaterThan(decimalMaxEpoch) {
		return InvalidDate
	}

	t := time.UnixMilli(ms.Decimal.IntPart())
	return t.In(f.display).Format(displayLayout)
}

// PackedDate formats a YYYYMMDDHHmmss string (VNPay vnp_PayDate)
func (f Formatter) PackedDate(s string) string {
	t, err := ParsePackedDate(s, f.packed)
	if err != nil {
		return InvalidDate
	}
	return t.In(f.display).Format(displayLayout)
}

// ParsePackedDate dựng thời điểm từ các trường cố định độ rộng trong loc
func ParsePackedDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) < 14 {
		return time.Time{}, errMalformedPackedDate
	}

	fields := [6]int{}
	bounds := [7]int{0, 4, 6, 8, 10, 12, 14}
	for i := range fields {
		n, err := strconv.Atoi(s[bounds[i]:bounds[i+1]])
		if err != nil {
			return time.Time{}, errMalformedPackedDate
		}
		fields[i] = n
	}

	// month trên wire là 1-based; time.Date tự normalize giá trị tràn như Date của JS
	return time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc), nil
}
