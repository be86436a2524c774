package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`

	// kind is the named error a WithMessage copy was derived from.
	kind *Error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code and message, or
// the named error e was derived from with WithMessage. Wrapped and reworded
// copies of the named errors below still match with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.kind != nil && e.kind == t.root() {
		return true
	}
	return e.Code == t.Code && e.Message == t.Message
}

func (e *Error) root() *Error {
	if e.kind != nil {
		return e.kind
	}
	return e
}

// Wrap returns a copy of e carrying err as its cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err, kind: e.kind}
}

// WithMessage returns a copy of e with a more specific client message. The
// copy keeps e's status code and still satisfies errors.Is(copy, e).
func (e *Error) WithMessage(message string, err error) *Error {
	return &Error{Code: e.Code, Message: message, Err: err, kind: e.root()}
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *Error { return New(http.StatusBadRequest, message, nil) }

func NotFound(message string) *Error { return New(http.StatusNotFound, message, nil) }

func Conflict(message string) *Error { return New(http.StatusConflict, message, nil) }

func Forbidden(message string) *Error { return New(http.StatusForbidden, message, nil) }

// Upstream wraps a failure of an external dependency such as the payment gateway.
func Upstream(message string, err error) *Error { return New(http.StatusBadGateway, message, err) }

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// From converts any error into an *Error. Unknown errors become a generic 500
// that keeps the original as its cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.Wrap(err)
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Authentication error types
var (
	ErrTokenExpired = New(http.StatusUnauthorized, "Token expired", nil)
	ErrInvalidToken = New(http.StatusUnauthorized, "Invalid token", nil)
)

// Checkout and order error types
var (
	ErrPaymentNotCompleted     = New(http.StatusBadRequest, "Payment has not been completed", nil)
	ErrInvalidCheckoutItems    = New(http.StatusBadRequest, "Checkout session has no valid items", nil)
	ErrNoPurchasableItems      = New(http.StatusBadRequest, "None of the purchased products are available", nil)
	ErrInsufficientStock       = New(http.StatusConflict, "Insufficient stock", nil)
	ErrCheckoutInProgress      = New(http.StatusConflict, "Checkout session is already being processed", nil)
	ErrSessionNotFound         = New(http.StatusNotFound, "Checkout session not found", nil)
	ErrPaymentIntentNotFound   = New(http.StatusNotFound, "Payment intent not found", nil)
	ErrOrderNotFound           = New(http.StatusNotFound, "Order not found", nil)
	ErrProductNotFound         = New(http.StatusNotFound, "Product not found", nil)
	ErrInvalidStatusTransition = New(http.StatusConflict, "Invalid order status transition", nil)
)

// Refund error types
var (
	ErrRefundNotFound      = New(http.StatusNotFound, "Refund not found", nil)
	ErrRefundNotAllowed    = New(http.StatusConflict, "Payment cannot be refunded", nil)
	ErrInvalidRefundAmount = New(http.StatusBadRequest, "Invalid refund amount", nil)
	ErrRefundNotPending    = New(http.StatusConflict, "Refund is not awaiting review", nil)
)

// Respond writes err as a {"error": message} JSON body with its status code.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}

// ErrorMiddleware renders the last error attached to the gin context.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}
