package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
)

// Meta contains response metadata
type Meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorResponse represents an error response. Purchase failures carry the
// normalized native error in Purchase.
type ErrorResponse struct {
	Error    string                       `json:"error"`
	Message  string                       `json:"message,omitempty"`
	Field    string                       `json:"field,omitempty"`
	Purchase *domainErrors.PurchasesError `json:"purchase_error,omitempty"`
	Meta     Meta                         `json:"meta"`
}

func meta(c *gin.Context) Meta {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Meta{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
}

// Send sends a successful response
func Send(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, SuccessResponse{
		Data: data,
		Meta: meta(c),
	})
}

// OK sends a 200 OK response
func OK(c *gin.Context, data any) {
	Send(c, http.StatusOK, data)
}

// NoContent sends a 204 No Content response
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, errCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errCode,
		Message: message,
		Meta:    meta(c),
	})
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "INVALID_REQUEST", message)
}

// NotFound sends a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RateLimited sends a 429 Too Many Requests response
func RateLimited(c *gin.Context, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	Error(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
}

// InternalError sends a 500 Internal Server Error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// ServiceUnavailable sends a 503 Service Unavailable response
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message)
}

// FromError maps a service error onto a response.
//
//	*ValidationError  -> 400 INVALID_REQUEST
//	*NotFoundError    -> 404 NOT_FOUND
//	*PurchasesError   -> 422 PURCHASE_CANCELLED / PURCHASE_FAILED
//	*NativeError      -> 502 NATIVE_ERROR
//	anything else     -> 500 INTERNAL_ERROR
func FromError(c *gin.Context, err error) {
	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: validationErr.Error(),
			Field:   validationErr.Field,
			Meta:    meta(c),
		})
		return
	}

	var notFoundErr *domainErrors.NotFoundError
	if errors.As(err, &notFoundErr) {
		NotFound(c, notFoundErr.Error())
		return
	}

	var purchasesErr *domainErrors.PurchasesError
	if errors.As(err, &purchasesErr) {
		code := "PURCHASE_FAILED"
		if purchasesErr.UserCancelled {
			code = "PURCHASE_CANCELLED"
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:    code,
			Message:  purchasesErr.Message,
			Purchase: purchasesErr,
			Meta:     meta(c),
		})
		return
	}

	var nativeErr *domainErrors.NativeError
	if errors.As(err, &nativeErr) {
		Error(c, http.StatusBadGateway, "NATIVE_ERROR", nativeErr.Error())
		return
	}

	InternalError(c, err.Error())
}
