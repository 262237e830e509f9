package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"visitd/pkg/backend"
	"visitd/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	connectErr error
	countErr   error
	recentErr  error
	visits     []models.VisitRecord
	queries    int
}

func (f *fakeStore) Connect(_ context.Context) error { return f.connectErr }
func (f *fakeStore) Close(_ context.Context) error   { return nil }

func (f *fakeStore) InsertVisit(_ context.Context, visit models.VisitRecord) error {
	f.visits = append(f.visits, visit)
	return nil
}

func (f *fakeStore) CountVisits(_ context.Context) (int64, error) {
	f.queries++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.visits)), nil
}

func (f *fakeStore) RecentVisits(_ context.Context, limit int) ([]models.VisitRecord, error) {
	f.queries++
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	recent := make([]models.VisitRecord, 0, limit)
	for i := len(f.visits) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, f.visits[i])
	}
	return recent, nil
}

func (f *fakeStore) Info(_ context.Context) (*models.BackendInfo, error) {
	return &models.BackendInfo{}, nil
}

func visitsNamed(n int) []models.VisitRecord {
	visits := make([]models.VisitRecord, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range visits {
		visits[i] = models.VisitRecord{
			IP:        "203.0.113.9",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			URL:       "/",
		}
	}
	return visits
}

func newBackend(t *testing.T, name string, store *fakeStore, connect bool) Backend {
	t.Helper()
	mgr := backend.NewManager(name, store)
	if connect {
		require.NoError(t, mgr.Connect(context.Background(), 1, 0))
	}
	return Backend{Name: name, Manager: mgr, Store: store}
}

func TestStatsPrefersRelational(t *testing.T) {
	relStore := &fakeStore{visits: visitsNamed(3)}
	docStore := &fakeStore{visits: visitsNamed(7)}
	agg := New(
		newBackend(t, "postgresql", relStore, true),
		newBackend(t, "mongodb", docStore, true),
	)

	result := agg.Stats(context.Background())

	assert.Equal(t, "postgresql", result.Source)
	assert.EqualValues(t, 3, result.VisitCount)
	assert.Len(t, result.LastVisits, 3)
	assert.Zero(t, docStore.queries)
}

func TestStatsFallsBackToDocument(t *testing.T) {
	relStore := &fakeStore{connectErr: errors.New("postgres down")}
	docStore := &fakeStore{visits: visitsNamed(2)}
	agg := New(
		newBackend(t, "postgresql", relStore, false),
		newBackend(t, "mongodb", docStore, true),
	)

	result := agg.Stats(context.Background())

	assert.Equal(t, "mongodb", result.Source)
	assert.EqualValues(t, 2, result.VisitCount)
}

func TestStatsNoneWhenNothingConnected(t *testing.T) {
	relStore := &fakeStore{}
	docStore := &fakeStore{}
	agg := New(
		newBackend(t, "postgresql", relStore, false),
		newBackend(t, "mongodb", docStore, false),
	)

	result := agg.Stats(context.Background())

	assert.Equal(t, SourceNone, result.Source)
	assert.Zero(t, result.VisitCount)
	assert.Empty(t, result.LastVisits)
	assert.NotNil(t, result.LastVisits)
}

func TestStatsPreferredQueryFailureDoesNotFallThrough(t *testing.T) {
	relStore := &fakeStore{countErr: errors.New("relation vanished")}
	docStore := &fakeStore{visits: visitsNamed(4)}
	agg := New(
		newBackend(t, "postgresql", relStore, true),
		newBackend(t, "mongodb", docStore, true),
	)

	result := agg.Stats(context.Background())

	// Empty result for the preferred backend; the secondary is not
	// consulted within the same call.
	assert.Equal(t, "postgresql", result.Source)
	assert.Zero(t, result.VisitCount)
	assert.Empty(t, result.LastVisits)
	assert.Zero(t, docStore.queries)
}

func TestStatsCapsLastVisits(t *testing.T) {
	relStore := &fakeStore{visits: visitsNamed(25)}
	agg := New(
		newBackend(t, "postgresql", relStore, true),
		newBackend(t, "mongodb", &fakeStore{}, false),
	)

	result := agg.Stats(context.Background())

	require.Len(t, result.LastVisits, MaxLastVisits)
	// Most recent first.
	assert.True(t, result.LastVisits[0].Timestamp.After(result.LastVisits[1].Timestamp))
	assert.EqualValues(t, 25, result.VisitCount)
}
