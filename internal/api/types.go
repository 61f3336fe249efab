package api

import (
	"time"

	"github.com/dhruvsoni1802/dailydm/internal/jobs"
)

// Response Types

// HealthResponse returned by GET /healthz
type HealthResponse struct {
	Status      string     `json:"status"`
	Running     bool       `json:"running"`
	CookieStore string     `json:"cookie_store,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

// TodaysMessageResponse returned by GET /messages/today
type TodaysMessageResponse struct {
	Day     string `json:"day"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// RunResponse wraps a run record
type RunResponse struct {
	Run jobs.Run `json:"run"`
}

// Error Types

// ErrorResponse for all error cases
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`    // Machine-readable error code
	Message string `json:"message"` // Human-readable message
}

// Common error codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeRunInProgress      = "RUN_IN_PROGRESS"
	ErrCodeAlreadySentToday   = "ALREADY_SENT_TODAY"
	ErrCodeRunNotFound        = "RUN_NOT_FOUND"
	ErrCodeMessagesUnreadable = "MESSAGES_UNREADABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)
