package server

import (
	"context"
	"net/http"

	"visitd/pkg/log"
	"visitd/pkg/models"

	"github.com/labstack/echo/v4"
)

type backendInfoResponse struct {
	Name   string                  `json:"name"`
	Status models.ConnectionStatus `json:"status"`
	Info   *models.BackendInfo     `json:"info,omitempty"`
}

// backendInfoHandler serves the per-backend status endpoints. The
// introspection block is populated only while the backend is connected;
// a failed introspection query degrades to status-only, never to a 5xx.
func (s *Server) backendInfoHandler(b Backend) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := backendInfoResponse{
			Name:   b.Name,
			Status: b.Manager.Status(),
		}

		if resp.Status.Connected && b.Store != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), queryTimeout)
			defer cancel()

			info, err := b.Store.Info(ctx)
			if err != nil {
				log.Warn().Str("backend", b.Name).Err(err).Msg("Backend introspection failed")
			} else {
				resp.Info = info
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}
