package service

import (
	"context"

	"github.com/mthangit/demo-payment/internal/domains/checkout/model"
)

type ServiceInterface interface {
	// Products returns the product selector options in catalog order
	Products() []model.Product

	// Page trả về trạng thái hiển thị hiện tại của session
	Page(ctx context.Context, session string) (*model.PageResponse, error)

	// SelectPaymentMethod ghi Selection State, đánh dấu đúng một option, hiện nút back
	SelectPaymentMethod(ctx context.Context, session, method string) error

	// GoBack ẩn nút back, bỏ đánh dấu, đặt lại view placeholder
	GoBack(ctx context.Context, session string) error

	// Initiate chạy luồng bấm thanh toán
	// Returns: QR view hoặc popup attempt; CheckoutError cho các alert
	Initiate(ctx context.Context, session string, req model.InitiateRequest) (*model.InitiateResponse, error)

	// CheckReturnURL parse return URL dán tay và render nếu nhận ra provider
	CheckReturnURL(ctx context.Context, session, returnURL string) (*model.CheckURLResponse, error)

	// RelayMessage chuyển postMessage của popup tới attempt đang chờ
	RelayMessage(ctx context.Context, attemptID string, req model.MessageRequest) error

	// ReportClosed ghi nhận trình duyệt đã đóng popup
	ReportClosed(ctx context.Context, attemptID string) error

	AttemptStatus(ctx context.Context, attemptID string) (*model.AttemptStatus, error)

	// Close huỷ các attempt đang chờ và đợi chúng kết thúc
	Close()
}
