package ingestion

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/pulsegrid-lab/pulsegrid/internal/api/v1"
	httperr "github.com/pulsegrid-lab/pulsegrid/internal/core/errors"
	"github.com/pulsegrid-lab/pulsegrid/internal/pipeline"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgUnknownSeries  = "Series is not configured"
)

// ingestionError carries the structured HTTP error shape from a helper
// back to the handler. Helpers return this instead of writing to
// gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles HTTP POST requests for a single sample.
func (s *Service) IngestHandler(c *gin.Context) {
	var sample v1.Sample
	if ierr := s.readJSON(c, &sample); ierr != nil {
		writeError(c, ierr)
		return
	}

	if err := sample.Validate(); err != nil {
		slog.Warn("Sample validation failed", "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		})
		return
	}

	if ierr := s.pushSample(sample); ierr != nil {
		writeError(c, ierr)
		return
	}

	// Sample buffered. The scheduler emits its bucket once the
	// interval fully elapses.
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// IngestBatchHandler handles HTTP POST requests for a sample batch.
// The batch is not atomic: every valid sample up to the first unknown
// series is buffered.
func (s *Service) IngestBatchHandler(c *gin.Context) {
	var batch v1.SampleBatch
	if ierr := s.readJSON(c, &batch); ierr != nil {
		writeError(c, ierr)
		return
	}

	if err := batch.Validate(); err != nil {
		slog.Warn("Sample batch validation failed", "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		})
		return
	}

	for i, sample := range batch.Samples {
		if ierr := s.pushSample(sample); ierr != nil {
			ierr.details = map[string]interface{}{"accepted": i}
			writeError(c, ierr)
			return
		}
	}

	slog.Info("Received sample batch", "samples", len(batch.Samples))
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "samples": len(batch.Samples)})
}

// readJSON reads the request body within the size limit and binds it
// into dst.
func (s *Service) readJSON(c *gin.Context, dst interface{}) *ingestionError {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	if err := c.ShouldBindJSON(dst); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return nil
}

func (s *Service) pushSample(sample v1.Sample) *ingestionError {
	if err := s.pusher.Push(sample.Series, sample.Timestamp, sample.Value); err != nil {
		if errors.Is(err, pipeline.ErrUnknownSeries) {
			slog.Warn("Sample for unknown series rejected", "series", sample.Series)
			return &ingestionError{
				statusCode: http.StatusNotFound,
				errorType:  httperr.HttpSeriesNotFoundError,
				message:    msgUnknownSeries,
				details:    map[string]interface{}{"series": sample.Series},
			}
		}

		slog.Error("Failed to buffer sample", "error", err, "series", sample.Series)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    err.Error(),
		}
	}
	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
