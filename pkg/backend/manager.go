package backend

import (
	"context"
	"sync"
	"time"

	"visitd/pkg/log"
	"visitd/pkg/models"
)

const defaultAttemptTimeout = 5 * time.Second

// Connector establishes the pooled resource for one storage backend.
// Implementations are expected to be safe for repeated calls.
type Connector interface {
	Connect(ctx context.Context) error
}

// Manager owns the connection lifecycle for a single storage backend: the
// bounded retry loop, the lazy pre-write attempt, and the passive fault
// path all funnel through one transition function, so status can never be
// mutated from two code paths at once.
type Manager struct {
	name           string
	connector      Connector
	attemptTimeout time.Duration

	mu          sync.Mutex
	state       models.State
	lastError   string
	connectedAt time.Time
	closing     bool
}

// NewManager creates a manager for a configured backend. No connection
// attempt is made until Connect is called.
func NewManager(name string, connector Connector) *Manager {
	return &Manager{
		name:           name,
		connector:      connector,
		attemptTimeout: defaultAttemptTimeout,
		state:          models.StateNeverAttempted,
	}
}

// NewNotConfigured creates a manager for a backend with no supplied
// address. The state is terminal: Connect and ReportFault are no-ops and
// the backend counts as healthy.
func NewNotConfigured(name string) *Manager {
	return &Manager{
		name:  name,
		state: models.StateNotConfigured,
	}
}

// Name returns the backend name ("mongodb", "postgresql").
func (m *Manager) Name() string {
	return m.name
}

// Connect runs up to maxRetries sequential attempts with a fixed delay
// between them. It is a no-op when an attempt is already in flight, the
// backend is already connected or not configured, or the manager is
// closing. The outcome is recorded in the status snapshot; the returned
// error is the last attempt's error, for caller-side logging only.
func (m *Manager) Connect(ctx context.Context, maxRetries int, delay time.Duration) error {
	if !m.begin() {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = m.attempt(ctx)
		if lastErr == nil {
			m.mu.Lock()
			m.transition(models.StateConnected, nil)
			m.mu.Unlock()

			log.Info().
				Str("backend", m.name).
				Int("attempt", attempt).
				Msg("Backend connected")
			return nil
		}

		log.Warn().
			Str("backend", m.name).
			Int("attempt", attempt).
			Int("max_retries", maxRetries).
			Err(lastErr).
			Msg("Backend connection attempt failed")

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = maxRetries // stop retrying
			case <-time.After(delay):
			}
		}
	}

	m.mu.Lock()
	m.transition(models.StateDisconnected, lastErr)
	m.mu.Unlock()

	log.Error().
		Str("backend", m.name).
		Int("max_retries", maxRetries).
		Err(lastErr).
		Msg("Backend connection retries exhausted")
	return lastErr
}

// ReportFault records an asynchronous fault observed outside an active
// attempt (a failed write, a pool error). Stale reports against a backend
// that is not currently connected are dropped.
func (m *Manager) ReportFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.StateConnected {
		return
	}
	m.transition(models.StateDisconnected, err)

	log.Warn().
		Str("backend", m.name).
		Err(err).
		Msg("Backend marked disconnected after fault")
}

// Status returns a copy of the current connection status.
func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := models.ConnectionStatus{
		State:     m.state,
		Connected: m.state == models.StateConnected,
		Error:     m.lastError,
	}
	if status.Connected && !m.connectedAt.IsZero() {
		connectedAt := m.connectedAt
		status.ConnectedAt = &connectedAt
	}
	return status
}

// State returns the current lifecycle state.
func (m *Manager) State() models.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the backend was usable at last check. Callers
// must still handle operation failures: the flag is best-effort.
func (m *Manager) Connected() bool {
	return m.State() == models.StateConnected
}

// Idle reports whether no attempt is in flight and the manager is not
// closing, i.e. a lazy connect attempt is allowed right now.
func (m *Manager) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closing &&
		(m.state == models.StateNeverAttempted || m.state == models.StateDisconnected)
}

// Close marks the manager as tearing down. Subsequent connect attempts
// become no-ops; closing the underlying resource is the store's job.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closing = true
}

// begin claims the Connecting state. It fails when the manager is closing,
// not configured, already connected, or another attempt is in flight.
func (m *Manager) begin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return false
	}
	switch m.state {
	case models.StateNeverAttempted, models.StateDisconnected:
		m.transition(models.StateConnecting, nil)
		return true
	default:
		return false
	}
}

// attempt runs a single bounded connection attempt.
func (m *Manager) attempt(ctx context.Context) error {
	attemptCtx, cancel := context.WithTimeout(ctx, m.attemptTimeout)
	defer cancel()
	return m.connector.Connect(attemptCtx)
}

// transition is the single place connection status is mutated. Callers
// must hold m.mu.
func (m *Manager) transition(to models.State, err error) {
	m.state = to
	switch to {
	case models.StateConnected:
		m.lastError = ""
		m.connectedAt = time.Now()
	case models.StateDisconnected:
		if err != nil {
			m.lastError = err.Error()
		}
	case models.StateConnecting:
		// keep the last error until the loop resolves
	}
}
