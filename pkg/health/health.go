package health

import "visitd/pkg/models"

// Check values reported per backend.
const (
	CheckOK            = "ok"
	CheckError         = "error"
	CheckNotConfigured = "not_configured"
)

// Overall status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Report is the composite health of the service.
type Report struct {
	Healthy bool
	Status  string
	Checks  map[string]string
}

// Evaluate composes overall health purely from cached status snapshots;
// it performs no I/O and cannot block. A backend counts as healthy when
// it is connected or not configured. With zero backends the service is
// healthy.
func Evaluate(statuses map[string]models.ConnectionStatus) Report {
	checks := make(map[string]string, len(statuses)+1)
	healthy := true

	for name, status := range statuses {
		switch {
		case status.State == models.StateNotConfigured:
			checks[name] = CheckNotConfigured
		case status.Connected:
			checks[name] = CheckOK
		default:
			checks[name] = CheckError
			healthy = false
		}
	}
	checks["server"] = CheckOK

	overall := StatusHealthy
	if !healthy {
		overall = StatusDegraded
	}
	return Report{Healthy: healthy, Status: overall, Checks: checks}
}
