package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 呼び出し側が分岐に使うエラー種別
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeAddressInvalid     ErrorCode = "ADDRESS_INVALID"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeSelfPurchase       ErrorCode = "SELF_PURCHASE"
	CodeInvalidState       ErrorCode = "INVALID_STATE"
	CodeInsufficientStock  ErrorCode = "INSUFFICIENT_STOCK"
	CodeCouponInvalid      ErrorCode = "COUPON_INVALID"
	CodeCouponExpired      ErrorCode = "COUPON_EXPIRED"
	CodeCouponLimitReached ErrorCode = "COUPON_LIMIT_REACHED"
	CodeCouponAlreadyUsed  ErrorCode = "COUPON_ALREADY_USED"
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInternal           ErrorCode = "INTERNAL"
)

var codeStatus = map[ErrorCode]int{
	CodeNotFound:           http.StatusNotFound,
	CodeAddressInvalid:     http.StatusNotFound,
	CodePermissionDenied:   http.StatusForbidden,
	CodeSelfPurchase:       http.StatusForbidden,
	CodeInvalidState:       http.StatusConflict,
	CodeInsufficientStock:  http.StatusConflict,
	CodeCouponInvalid:      http.StatusBadRequest,
	CodeCouponExpired:      http.StatusBadRequest,
	CodeCouponLimitReached: http.StatusBadRequest,
	CodeCouponAlreadyUsed:  http.StatusBadRequest,
	CodeValidation:         http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeConflict:           http.StatusConflict,
	CodeInternal:           http.StatusInternalServerError,
}

// HTTPError は usecase が返す唯一のエラー型。Err は原因（ログ用、レスポンスには出さない）
type HTTPError struct {
	Status  int
	Code    ErrorCode
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// 同じ Code なら同じエラーとみなす（errors.Is(err, ErrNotFound) など）
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	return ok && t.Code == e.Code
}

func sentinel(code ErrorCode, msg string) *HTTPError {
	return &HTTPError{Status: codeStatus[code], Code: code, Message: msg}
}

var (
	ErrNotFound           = sentinel(CodeNotFound, "not found")
	ErrAddressInvalid     = sentinel(CodeAddressInvalid, "address not found")
	ErrPermissionDenied   = sentinel(CodePermissionDenied, "forbidden")
	ErrSelfPurchase       = sentinel(CodeSelfPurchase, "you cannot purchase your own product")
	ErrInvalidState       = sentinel(CodeInvalidState, "invalid state")
	ErrInsufficientStock  = sentinel(CodeInsufficientStock, "insufficient stock")
	ErrCouponInvalid      = sentinel(CodeCouponInvalid, "Invalid coupon code")
	ErrCouponExpired      = sentinel(CodeCouponExpired, "Coupon has expired")
	ErrCouponLimitReached = sentinel(CodeCouponLimitReached, "Coupon usage limit reached")
	ErrCouponAlreadyUsed  = sentinel(CodeCouponAlreadyUsed, "You have already used this coupon")
	ErrValidation         = sentinel(CodeValidation, "invalid request")
	ErrUnauthorized       = sentinel(CodeUnauthorized, "unauthorized")
	ErrConflict           = sentinel(CodeConflict, "conflict")
	ErrInternal           = sentinel(CodeInternal, "internal error")
)

// newError はコードの既定ステータスでメッセージ付きのエラーを作る
func newError(code ErrorCode, format string, args ...interface{}) error {
	return &HTTPError{Status: codeStatus[code], Code: code, Message: fmt.Sprintf(format, args...)}
}

// dbError はDB等の想定外エラー。原因は Err に残す
func dbError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "db error", Err: err}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
