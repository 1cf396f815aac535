package pricing

import "net/http"

type ErrorCode string

const (
	ErrCartEmpty        ErrorCode = "CART_EMPTY"
	ErrCartInvalid      ErrorCode = "CART_INVALID"
	ErrMinOrderNotMet   ErrorCode = "MIN_ORDER_NOT_MET"
	ErrPostcodeRequired ErrorCode = "POSTCODE_REQUIRED"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func validationError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, StatusCode: http.StatusBadRequest, Details: details}
}
