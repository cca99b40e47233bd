package middleware

import (
	"net/http"

	"github.com/escalateai/api/internal/complaint"
	"github.com/gin-gonic/gin"
)

// APIError represents a structured error response. Detail keeps the name
// the front-end reads.
type APIError struct {
	Code       string                 `json:"code"`
	Detail     string                 `json:"detail"`
	Fields     []complaint.FieldError `json:"fields,omitempty"`
	RetryAfter int                    `json:"retry_after_ms,omitempty"`
}

// Common error codes
const (
	ErrCodeBadRequest            = "BAD_REQUEST"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeGenerationUnavailable = "GENERATION_UNAVAILABLE"
	ErrCodeCircuitOpen           = "CIRCUIT_OPEN"
	ErrCodeRateLimited           = "RATE_LIMITED"
)

// GenerationUnavailableDetail is the only text clients see when every model
// failed
const GenerationUnavailableDetail = "Failed to generate complaint (all models failed). Please try again later."

// RespondError sends a structured error response and stops the chain
func RespondError(c *gin.Context, status int, code string, detail string) {
	c.AbortWithStatusJSON(status, APIError{
		Code:   code,
		Detail: detail,
	})
}

// RespondErrorWithRetry sends a structured error response with retry hint
func RespondErrorWithRetry(c *gin.Context, status int, code string, detail string, retryAfterMs int) {
	c.AbortWithStatusJSON(status, APIError{
		Code:       code,
		Detail:     detail,
		RetryAfter: retryAfterMs,
	})
}

// ValidationFailed sends a 422 listing every invalid field
func ValidationFailed(c *gin.Context, verr *complaint.ValidationError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, APIError{
		Code:   ErrCodeValidationFailed,
		Detail: verr.Error(),
		Fields: verr.Fields,
	})
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, detail string) {
	RespondError(c, http.StatusInternalServerError, ErrCodeInternalError, detail)
}

// GenerationUnavailable sends a 503 without any backend detail
func GenerationUnavailable(c *gin.Context) {
	RespondErrorWithRetry(c, http.StatusServiceUnavailable, ErrCodeGenerationUnavailable, GenerationUnavailableDetail, 5000)
}
