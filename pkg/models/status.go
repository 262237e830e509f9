package models

import (
	"fmt"
	"time"
)

// State enumerates the connection lifecycle of a storage backend.
type State int

const (
	// StateNeverAttempted means no connection attempt has been made yet.
	StateNeverAttempted State = iota

	// StateConnecting means an attempt (or retry loop) is in flight.
	StateConnecting

	// StateConnected means the backend was usable at last check.
	StateConnected

	// StateDisconnected means the retry budget was exhausted or an
	// asynchronous fault was reported.
	StateDisconnected

	// StateNotConfigured means no address was supplied for the backend.
	// The state is terminal: never retried, counted as healthy.
	StateNotConfigured
)

// String returns the lowercase name used in logs and API responses.
func (s State) String() string {
	switch s {
	case StateNeverAttempted:
		return "never_attempted"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// ConnectionStatus is a point-in-time snapshot of one backend's connection
// state. Connected is best-effort: it implies the resource was usable at
// last check, not that the next operation will succeed.
type ConnectionStatus struct {
	State       State      `json:"state"`
	Connected   bool       `json:"connected"`
	Error       string     `json:"error,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// MarshalText lets the state render as its name in JSON maps.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "never_attempted":
		*s = StateNeverAttempted
	case "connecting":
		*s = StateConnecting
	case "connected":
		*s = StateConnected
	case "disconnected":
		*s = StateDisconnected
	case "not_configured":
		*s = StateNotConfigured
	default:
		return fmt.Errorf("unknown connection state %q", text)
	}
	return nil
}
