package server

import (
	"context"
	"net/http"
	"time"

	"visitd/pkg/models"

	"github.com/labstack/echo/v4"
)

type statsResponse struct {
	TotalRequests int64                `json:"totalRequests"`
	HealthChecks  int64                `json:"healthChecks"`
	APICalls      int64                `json:"apiCalls"`
	StartTime     time.Time            `json:"startTime"`
	VisitCount    int64                `json:"visitCount"`
	LastVisits    []models.VisitRecord `json:"lastVisits"`
	DBSource      string               `json:"dbSource"`
	CurrentTime   time.Time            `json:"currentTime"`
}

// handleStats serves GET /api/stats: request counters plus the recent
// visits from whichever backend the aggregator picked.
func (s *Server) handleStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), queryTimeout)
	defer cancel()

	visitStats := s.aggregator.Stats(ctx)

	return c.JSON(http.StatusOK, statsResponse{
		TotalRequests: s.totalRequests.Load(),
		HealthChecks:  s.healthChecks.Load(),
		APICalls:      s.apiCalls.Load(),
		StartTime:     s.startTime,
		VisitCount:    visitStats.VisitCount,
		LastVisits:    visitStats.LastVisits,
		DBSource:      visitStats.Source,
		CurrentTime:   time.Now().UTC(),
	})
}
