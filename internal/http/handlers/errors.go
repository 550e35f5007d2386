// Package handlers defines the HTTP-layer error codes used across endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them for
// programmatic error handling, supplementing the HTTP status. Handlers pass
// the most specific matching code to fail().
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeBadIdempotencyKey = "bad_idempotency_key"
	ErrCodeProcessing        = "processing"
	ErrCodeDuplicateMessage  = "duplicate_message"
	ErrCodeStoreUnavailable  = "store_unavailable"
	ErrCodeSubmitFailed      = "submit_failed"
	ErrCodeListFailed        = "list_failed"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)
