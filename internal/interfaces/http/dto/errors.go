package dto

import "net/http"

// Error codes raised by the HTTP layer itself.
// Domain errors keep their own codes (ITEM_NOT_FOUND, INSUFFICIENT_CAPACITY, ...).
const (
	ErrCodeInternal       = "ERR_INTERNAL"
	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeValidation     = "ERR_VALIDATION"
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
	ErrCodeTenantInvalid  = "ERR_TENANT_INVALID"
	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeTimeout        = "ERR_TIMEOUT"
	ErrCodeDuplicate      = "ERR_DUPLICATE_REQUEST"
)

// Capacity domain codes the HTTP layer maps explicitly
const (
	CodeItemNotFound          = "ITEM_NOT_FOUND"
	CodeBookingNotFound       = "BOOKING_NOT_FOUND"
	CodeBookingItemMismatch   = "BOOKING_ITEM_MISMATCH"
	CodeInvalidAction         = "INVALID_ACTION"
	CodeInvalidTravelerCount  = "INVALID_TRAVELER_COUNT"
	CodeInsufficientCapacity  = "INSUFFICIENT_CAPACITY"
	CodeInvalidManualValue    = "INVALID_MANUAL_VALUE"
	CodeUnsupportedResolution = "UNSUPPORTED_RESOLUTION"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeSyncInProgress        = "SYNC_IN_PROGRESS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeNotFound              = "NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:       http.StatusInternalServerError,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeValidation:     http.StatusBadRequest,
	ErrCodeTenantRequired: http.StatusBadRequest,
	ErrCodeTenantInvalid:  http.StatusBadRequest,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeTimeout:        http.StatusGatewayTimeout,
	ErrCodeDuplicate:      http.StatusConflict,

	// Missing resources -> 404
	CodeItemNotFound:    http.StatusNotFound,
	CodeBookingNotFound: http.StatusNotFound,
	CodeNotFound:        http.StatusNotFound,

	// Business rule violations -> 422
	CodeBookingItemMismatch:   http.StatusUnprocessableEntity,
	CodeInvalidAction:         http.StatusUnprocessableEntity,
	CodeInvalidTravelerCount:  http.StatusUnprocessableEntity,
	CodeInvalidManualValue:    http.StatusUnprocessableEntity,
	CodeUnsupportedResolution: http.StatusUnprocessableEntity,
	CodeInvalidInput:          http.StatusUnprocessableEntity,

	// State conflicts -> 409
	CodeInsufficientCapacity: http.StatusConflict,
	CodeConcurrencyConflict:  http.StatusConflict,
	CodeSyncInProgress:       http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
