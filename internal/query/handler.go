package query

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httperr "github.com/pulsegrid-lab/pulsegrid/internal/core/errors"
)

// RegisterRoutes registers the query API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/series", s.HandleListSeries)
	r.GET("/v1/series/:name/aggregates", s.HandleQueryAggregates)
}

// HandleListSeries handles GET /v1/series.
func (s *Service) HandleListSeries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"series": s.ListSeries()})
}

// HandleQueryAggregates handles GET /v1/series/:name/aggregates.
// Query parameters: from, to (RFC 3339).
func (s *Service) HandleQueryAggregates(c *gin.Context) {
	var uri struct {
		Name string `uri:"name" binding:"required"`
	}
	var query struct {
		From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
		To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.QueryAggregates(c.Request.Context(), uri.Name, query.From, query.To)
	if err != nil {
		switch {
		case errors.Is(err, ErrSeriesNotFound):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpSeriesNotFoundError,
				Message:   "Series is not configured",
				Details:   err.Error(),
			})
		case errors.Is(err, ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid aggregate query",
				Details:   err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to query aggregates",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
