package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geo-search/geospatial"
	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeIndexNotFound    ErrorCode = "INDEX_NOT_FOUND"
	ErrorCodeDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrorCodeIndexExists      ErrorCode = "INDEX_ALREADY_EXISTS"
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery     ErrorCode = "INVALID_QUERY"
	ErrorCodeInvalidSource    ErrorCode = "INVALID_SOURCE"
	ErrorCodeUnknownMetric    ErrorCode = "UNKNOWN_METRIC"
	ErrorCodeRequestCancelled ErrorCode = "REQUEST_CANCELLED"

	// Server Error Codes (5xx)
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrorCodeIndexingFailed    ErrorCode = "INDEXING_FAILED"
	ErrorCodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	ErrorCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	ErrorCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"
)

// statusClientClosedRequest is the non-standard status used when the client
// went away before the response was ready.
const statusClientClosedRequest = 499

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendIndexNotFoundError sends a standardized index not found error
func SendIndexNotFoundError(c *gin.Context, indexName string) {
	SendError(c, http.StatusNotFound, ErrorCodeIndexNotFound,
		"Index '"+indexName+"' not found")
}

// SendDocumentNotFoundError sends a standardized document not found error
func SendDocumentNotFoundError(c *gin.Context, documentID, indexName string) {
	message := "Document '" + documentID + "' not found"
	if indexName != "" {
		message += " in index '" + indexName + "'"
	}
	SendError(c, http.StatusNotFound, ErrorCodeDocumentNotFound, message)
}

// SendIndexExistsError sends a standardized index already exists error
func SendIndexExistsError(c *gin.Context, indexName string) {
	SendError(c, http.StatusConflict, ErrorCodeIndexExists,
		"Index '"+indexName+"' already exists")
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendPersistenceError sends a standardized persistence error
func SendPersistenceError(c *gin.Context, indexName string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodePersistenceFailed,
		"Failed to persist index '"+indexName+"': "+err.Error())
}

// SendIndexingError maps an error returned by an indexing operation.
// Rejected input becomes a 400; anything else is a server failure.
func SendIndexingError(c *gin.Context, operation string, err error) {
	if errors.Is(err, internalErrors.ErrInvalidInput) {
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error(), indexingErrorDetails(err)...)
		return
	}
	SendError(c, http.StatusInternalServerError, ErrorCodeIndexingFailed,
		"Indexing operation failed ("+operation+"): "+err.Error())
}

func indexingErrorDetails(err error) []ErrorDetail {
	var locErr *internalErrors.LocationError
	if errors.As(err, &locErr) {
		return []ErrorDetail{{Field: locErr.Field, Message: locErr.Err.Error(), Code: "INVALID_LOCATION"}}
	}
	var valErr *internalErrors.ValidationError
	if errors.As(err, &valErr) {
		return []ErrorDetail{{Field: valErr.Field, Message: valErr.Message, Code: "VALIDATION_ERROR"}}
	}
	return nil
}

// SendSearchError maps an error returned by a search.
func SendSearchError(c *gin.Context, indexName string, err error) {
	switch {
	case errors.Is(err, internalErrors.ErrInvalidInput), errors.Is(err, geospatial.ErrInvalidArgument):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error())
	case errors.Is(err, geospatial.ErrUnknownMetric):
		SendError(c, http.StatusBadRequest, ErrorCodeUnknownMetric, err.Error())
	case errors.Is(err, geospatial.ErrSerialisation):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidSource, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		SendError(c, http.StatusGatewayTimeout, ErrorCodeSearchTimeout,
			"Search on index '"+indexName+"' timed out")
	case errors.Is(err, context.Canceled):
		SendError(c, statusClientClosedRequest, ErrorCodeRequestCancelled,
			"Search on index '"+indexName+"' was cancelled")
	default:
		SendError(c, http.StatusInternalServerError, ErrorCodeSearchFailed,
			"Search failed on index '"+indexName+"': "+err.Error())
	}
}
