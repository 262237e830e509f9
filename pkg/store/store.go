package store

import (
	"context"
	"errors"

	"visitd/pkg/models"
)

// ErrNotConnected is returned by store operations before a successful
// Connect, or after Close.
var ErrNotConnected = errors.New("store not connected")

// VisitStore is the persistence contract shared by both backends. Connect
// establishes the pooled handle and is safe to call repeatedly; every
// other operation requires a prior successful Connect.
type VisitStore interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// InsertVisit persists one visit.
	InsertVisit(ctx context.Context, visit models.VisitRecord) error

	// CountVisits returns the total number of persisted visits.
	CountVisits(ctx context.Context) (int64, error)

	// RecentVisits returns up to limit visits, most recent first.
	RecentVisits(ctx context.Context, limit int) ([]models.VisitRecord, error)

	// Info returns introspection data for the backend status endpoint.
	Info(ctx context.Context) (*models.BackendInfo, error)
}
