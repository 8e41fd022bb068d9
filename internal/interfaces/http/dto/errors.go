package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes, format ERR_<CATEGORY>. Domain codes are
// translated into these by NormalizeErrorCode before they reach a response
// body.
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange  = "ERR_VALIDATION_RANGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	// ErrCodeInvalidState marks an operation that the aggregate's current
	// state does not allow, like paying a CANCELLED installment.
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeOverpayment marks a payment that would push the total past the
	// allowed ceiling.
	ErrCodeOverpayment = "ERR_OVERPAYMENT"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeValidationFormat: http.StatusBadRequest,
	ErrCodeValidationRange:  http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeOverpayment:  http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
}

// GetHTTPStatus maps an error code to its HTTP status. Domain validation
// codes that carry no explicit mapping (INVALID_DUE_DATE, INVALID_SEQUENCE,
// and the rest of the INVALID_ family) are business rule violations, not
// server faults, so they answer 422 rather than 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// domainErrorCodeMapping translates domain error codes into transport codes.
// Codes missing here pass through NormalizeErrorCode unchanged.
var domainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,

	// Payment recording
	"INVALID_PAYMENT_AMOUNT": ErrCodeValidationRange,
	"INVALID_PAID_DATE":      ErrCodeValidationRange,
	"INVALID_PAYMENT_NOTE":   ErrCodeValidationFormat,
	"OVERPAYMENT_EXCEEDED":   ErrCodeOverpayment,
}

// NormalizeErrorCode converts a domain error code to the transport-level
// format, or returns it unchanged when no mapping exists.
func NormalizeErrorCode(code string) string {
	if transportCode, ok := domainErrorCodeMapping[code]; ok {
		return transportCode
	}
	return code
}
