package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>visitd</title></head>
<body>
<h1>visitd</h1>
<p>Visit recorded. Endpoints:</p>
<ul>
<li><a href="/api/health">/api/health</a></li>
<li><a href="/api/stats">/api/stats</a></li>
<li><a href="/api/system">/api/system</a></li>
<li><a href="/api/mongodb">/api/mongodb</a></li>
<li><a href="/api/postgres">/api/postgres</a></li>
</ul>
</body>
</html>
`

// handleIndex serves the landing page. Loading it is what gets recorded
// as a visit by the instrument middleware.
func (s *Server) handleIndex(c echo.Context) error {
	return c.HTML(http.StatusOK, indexPage)
}
