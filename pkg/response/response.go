package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-identity/pkg/apperror"
)

// RequestIDKey is the gin context key the request id middleware writes.
const RequestIDKey = "request_id"

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString(RequestIDKey),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
}

func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString(RequestIDKey),
		Success:   false,
		Message:   message,
		Error:     err,
	}
}

// Write sends resp with its own status code.
func Write[T any](c *gin.Context, resp APIResponse[T]) {
	c.JSON(resp.Status, resp)
}

// Abort sends resp and stops the remaining handlers.
func Abort[T any](c *gin.Context, resp APIResponse[T]) {
	c.AbortWithStatusJSON(resp.Status, resp)
}

// FromError maps err through the apperror taxonomy and writes the envelope.
// Untyped errors surface as a generic 500.
func FromError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	var code any
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	Write(c, Error[any](c, status, apperror.Message(err), code))
}
