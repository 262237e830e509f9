package stats

import (
	"context"

	"visitd/pkg/backend"
	"visitd/pkg/log"
	"visitd/pkg/models"
	"visitd/pkg/store"
)

const (
	// MaxLastVisits caps the lastVisits list in a stats response.
	MaxLastVisits = 10

	// SourceNone is the stats source when neither backend is connected.
	SourceNone = "none"
)

// Backend pairs a backend's connection manager with its store for reads.
type Backend struct {
	Name    string
	Manager *backend.Manager
	Store   store.VisitStore
}

// Aggregator answers "recent visits" queries, preferring the relational
// backend and falling back to the document backend.
type Aggregator struct {
	relational Backend
	document   Backend
}

// New creates an aggregator over the two backends.
func New(relational, document Backend) *Aggregator {
	return &Aggregator{relational: relational, document: document}
}

// Stats returns the visit count and the most recent visits. The relational
// backend is preferred whenever its manager reports connected, regardless
// of the document backend's state. A query failure on the chosen backend
// yields the empty result for that backend; the call does not fall through
// to the secondary backend within the same invocation.
func (a *Aggregator) Stats(ctx context.Context) models.VisitStats {
	if a.relational.Manager.Connected() {
		return a.query(ctx, a.relational)
	}
	if a.document.Manager.Connected() {
		return a.query(ctx, a.document)
	}
	return models.VisitStats{LastVisits: []models.VisitRecord{}, Source: SourceNone}
}

func (a *Aggregator) query(ctx context.Context, b Backend) models.VisitStats {
	empty := models.VisitStats{LastVisits: []models.VisitRecord{}, Source: b.Name}

	count, err := b.Store.CountVisits(ctx)
	if err != nil {
		log.Warn().Str("backend", b.Name).Err(err).Msg("Visit count query failed")
		return empty
	}

	visits, err := b.Store.RecentVisits(ctx, MaxLastVisits)
	if err != nil {
		log.Warn().Str("backend", b.Name).Err(err).Msg("Recent visits query failed")
		return empty
	}
	if visits == nil {
		visits = []models.VisitRecord{}
	}

	return models.VisitStats{
		VisitCount: count,
		LastVisits: visits,
		Source:     b.Name,
	}
}
