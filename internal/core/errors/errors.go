package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidJsonError    = "invalid_json"
	HttpSeriesNotFoundError = "series_not_found"
	HttpValidationError     = "validation_failed"
	HttpInvalidQueryError   = "invalid_query"
	HttpStorageError        = "storage_unavailable"
)

// ErrorResponse is the error response body for ingestion and query errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
