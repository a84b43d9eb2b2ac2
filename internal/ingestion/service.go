package ingestion

import (
	"time"

	"github.com/gin-gonic/gin"
)

// SamplePusher is the slice of the pipeline engine ingestion needs.
// Pushes are purely in-memory and never block, so no context parameter.
type SamplePusher interface {
	Push(seriesName string, ts time.Time, value *float64) error
}

// Service handles HTTP sample ingestion and hands samples to the
// pipeline engine.
type Service struct {
	pusher           SamplePusher
	maxBodySizeBytes int
}

func NewService(pusher SamplePusher, maxBodySizeMB int) *Service {
	if pusher == nil {
		panic("ingestion: pusher must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		pusher:           pusher,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/samples", s.IngestHandler)
	r.POST("/v1/samples/batch", s.IngestBatchHandler)
}
