package server

import (
	"net/http"
	"time"

	"visitd/pkg/health"
	"visitd/pkg/models"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// handleHealth serves GET /api/health: 200 when every configured backend
// is healthy, 503 otherwise. The evaluation reads cached status only, so
// the health check itself can never hang on a backend.
func (s *Server) handleHealth(c echo.Context) error {
	report := health.Evaluate(map[string]models.ConnectionStatus{
		s.document.Name:   s.document.Manager.Status(),
		s.relational.Name: s.relational.Manager.Status(),
	})

	code := http.StatusOK
	if !report.Healthy {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, healthResponse{
		Status:    report.Status,
		Timestamp: time.Now().UTC(),
		Checks:    report.Checks,
	})
}
