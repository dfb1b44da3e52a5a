package repository

import (
	"context"
)

// PageState trạng thái widget của một checkout session
type PageState struct {
	Method      string // Selection State: phương thức đang chọn, "" = chưa chọn
	Marked      string // option đang được đánh dấu active
	BackVisible bool
	View        string // nội dung view surface
}

// PageStateRepository lưu PageState theo session.
// Mỗi thao tác chỉ ghi các field của nó và gia hạn TTL.
type PageStateRepository interface {
	// Get trả về state rỗng khi session chưa có dữ liệu
	Get(ctx context.Context, session string) (*PageState, error)

	// Select ghi Method, Marked và hiện nút back
	Select(ctx context.Context, session, method string) error

	SetView(ctx context.Context, session, view string) error

	// Reset ẩn nút back, bỏ đánh dấu, đặt view; clearSelection xoá luôn Method
	Reset(ctx context.Context, session, view string, clearSelection bool) error
}
