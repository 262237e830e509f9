package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"visitd/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConnector returns the scripted error for each attempt, nil once
// the script runs out. When block is set, attempts stall until it closes.
type scriptedConnector struct {
	mu      sync.Mutex
	results []error
	calls   int
	block   chan struct{}
}

func (c *scriptedConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	idx := c.calls
	c.calls++
	block := c.block
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if idx < len(c.results) {
		return c.results[idx]
	}
	return nil
}

func (c *scriptedConnector) attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestConnectFirstAttemptSucceeds(t *testing.T) {
	conn := &scriptedConnector{}
	mgr := NewManager("mongodb", conn)

	require.NoError(t, mgr.Connect(context.Background(), 5, 0))

	status := mgr.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, models.StateConnected, status.State)
	assert.Empty(t, status.Error)
	require.NotNil(t, status.ConnectedAt)
	assert.Equal(t, 1, conn.attempts())
}

func TestConnectSucceedsBeforeRetriesExhausted(t *testing.T) {
	// 3 failures then success with max_retries=5: connected after
	// attempt 4, no 5th attempt.
	connectErr := errors.New("connection refused")
	conn := &scriptedConnector{results: []error{connectErr, connectErr, connectErr, nil}}
	mgr := NewManager("mongodb", conn)

	require.NoError(t, mgr.Connect(context.Background(), 5, 0))

	assert.True(t, mgr.Connected())
	assert.Equal(t, 4, conn.attempts())
}

func TestConnectExhaustsRetries(t *testing.T) {
	firstErr := errors.New("no route to host")
	lastErr := errors.New("connection refused")
	conn := &scriptedConnector{results: []error{firstErr, firstErr, lastErr}}
	mgr := NewManager("postgresql", conn)

	err := mgr.Connect(context.Background(), 3, 0)
	require.Error(t, err)

	status := mgr.Status()
	assert.False(t, status.Connected)
	assert.Equal(t, models.StateDisconnected, status.State)
	assert.Equal(t, lastErr.Error(), status.Error)
	assert.Nil(t, status.ConnectedAt)
	assert.Equal(t, 3, conn.attempts())
}

func TestConnectNoOpWhileAttemptInFlight(t *testing.T) {
	block := make(chan struct{})
	conn := &scriptedConnector{block: block}
	mgr := NewManager("mongodb", conn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = mgr.Connect(context.Background(), 1, 0)
	}()

	// Wait until the first attempt claims the Connecting state.
	require.Eventually(t, func() bool {
		return mgr.State() == models.StateConnecting
	}, time.Second, time.Millisecond)

	require.NoError(t, mgr.Connect(context.Background(), 5, 0))
	assert.Equal(t, 1, conn.attempts())

	close(block)
	<-done
	assert.True(t, mgr.Connected())
}

func TestConnectNoOpWhenAlreadyConnected(t *testing.T) {
	conn := &scriptedConnector{}
	mgr := NewManager("mongodb", conn)

	require.NoError(t, mgr.Connect(context.Background(), 1, 0))
	require.NoError(t, mgr.Connect(context.Background(), 5, 0))

	assert.Equal(t, 1, conn.attempts())
}

func TestConnectAllowedAgainAfterDisconnect(t *testing.T) {
	conn := &scriptedConnector{results: []error{errors.New("down")}}
	mgr := NewManager("postgresql", conn)

	require.Error(t, mgr.Connect(context.Background(), 1, 0))
	assert.True(t, mgr.Idle())

	require.NoError(t, mgr.Connect(context.Background(), 1, 0))
	assert.True(t, mgr.Connected())
}

func TestNotConfiguredIsTerminal(t *testing.T) {
	mgr := NewNotConfigured("postgresql")

	require.NoError(t, mgr.Connect(context.Background(), 5, 0))
	assert.Equal(t, models.StateNotConfigured, mgr.State())

	mgr.ReportFault(errors.New("late fault"))
	assert.Equal(t, models.StateNotConfigured, mgr.State())
	assert.False(t, mgr.Idle())
}

func TestReportFaultDisconnects(t *testing.T) {
	conn := &scriptedConnector{}
	mgr := NewManager("mongodb", conn)
	require.NoError(t, mgr.Connect(context.Background(), 1, 0))

	poolErr := errors.New("connection reset by peer")
	mgr.ReportFault(poolErr)

	status := mgr.Status()
	assert.Equal(t, models.StateDisconnected, status.State)
	assert.Equal(t, poolErr.Error(), status.Error)
}

func TestReportFaultIgnoredWhenNotConnected(t *testing.T) {
	mgr := NewManager("mongodb", &scriptedConnector{})

	mgr.ReportFault(errors.New("stale"))

	status := mgr.Status()
	assert.Equal(t, models.StateNeverAttempted, status.State)
	assert.Empty(t, status.Error)
}

func TestCloseBlocksFurtherAttempts(t *testing.T) {
	conn := &scriptedConnector{}
	mgr := NewManager("mongodb", conn)

	mgr.Close()

	require.NoError(t, mgr.Connect(context.Background(), 5, 0))
	assert.Equal(t, 0, conn.attempts())
	assert.False(t, mgr.Idle())
}
