package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーコード。handlerはStatusとCodeをそのままJSONに落とす。
const (
	CodeValidation             = "validation_error"
	CodeNotFound               = "not_found"
	CodeEmptyCart              = "empty_cart"
	CodeProductUnavailable     = "product_unavailable"
	CodeInsufficientStock      = "insufficient_stock"
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeConflict               = "conflict"
	CodeUnauthorized           = "unauthorized"
	CodeForbidden              = "forbidden"
	CodeInternal               = "internal"
)

// 業務エラー。呼び出し側で再試行するかはCodeで判断できる。
// このコアでプロセスを落とすエラーは無い。
type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func newValidationError(message string) error {
	return &AppError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

func newNotFoundError(message string) error {
	return &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func newEmptyCartError() error {
	return &AppError{Status: http.StatusBadRequest, Code: CodeEmptyCart, Message: "cart is empty"}
}

func newProductUnavailableError(name string) error {
	return &AppError{Status: http.StatusBadRequest, Code: CodeProductUnavailable, Message: fmt.Sprintf("product unavailable: %s", name)}
}

func newInsufficientStockError(name string) error {
	return &AppError{Status: http.StatusConflict, Code: CodeInsufficientStock, Message: fmt.Sprintf("insufficient stock for %s", name)}
}

func newInvalidStateTransitionError(from string, to string) error {
	return &AppError{Status: http.StatusConflict, Code: CodeInvalidStateTransition, Message: fmt.Sprintf("cannot change order status %s -> %s", from, to)}
}

func newConflictError() error {
	return &AppError{Status: http.StatusConflict, Code: CodeConflict, Message: "concurrent update conflict, please retry"}
}

func newUnauthorizedError() error {
	return &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "unauthorized"}
}

func newForbiddenError(message string) error {
	return &AppError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

func newInternalError() error {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "db error"}
}
