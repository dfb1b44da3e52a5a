package response

import (
	"github.com/gin-gonic/gin"
)

// Response là envelope chung của mọi endpoint JSON.
// Với checkout, Error.Message chính là chuỗi alert hiển thị cho người dùng.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, failure(code, message))
}

// Abort ghi lỗi và dừng các handler phía sau (dùng trong middleware)
func Abort(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, failure(code, message))
}

func failure(code, message string) Response {
	return Response{
		Success: false,
		Error:   &Error{Code: code, Message: message},
	}
}
