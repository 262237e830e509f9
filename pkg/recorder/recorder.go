package recorder

import (
	"context"
	"sync"
	"time"

	"visitd/pkg/backend"
	"visitd/pkg/log"
	"visitd/pkg/models"
	"visitd/pkg/store"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultWriteTimeout   = 5 * time.Second
)

// Target pairs a backend's connection manager with its store.
type Target struct {
	Name    string
	Manager *backend.Manager
	Store   store.VisitStore
}

// Recorder dispatches visit writes to every configured backend. Record is
// fire-and-forget: each backend gets its own detached goroutine, faults
// are caught and logged there, and nothing propagates to the caller.
type Recorder struct {
	targets        []Target
	connectTimeout time.Duration
	writeTimeout   time.Duration
	wg             sync.WaitGroup
}

// New creates a recorder over the given targets.
func New(targets ...Target) *Recorder {
	return &Recorder{
		targets:        targets,
		connectTimeout: defaultConnectTimeout,
		writeTimeout:   defaultWriteTimeout,
	}
}

// Record dispatches one concurrent write per target and returns
// immediately. A fault on one backend never affects, delays, or rolls
// back the other.
func (r *Recorder) Record(visit models.VisitRecord) {
	for _, target := range r.targets {
		r.wg.Add(1)
		go func(t Target) {
			defer r.wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Str("backend", t.Name).
						Interface("panic", rec).
						Msg("Visit write panicked")
				}
			}()
			r.recordOne(t, visit)
		}(target)
	}
}

// Wait blocks until all in-flight writes finish. Used on shutdown and in
// tests; request handlers never call it.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) recordOne(t Target, visit models.VisitRecord) {
	if t.Manager.State() == models.StateNotConfigured {
		return
	}

	if !t.Manager.Connected() {
		if !t.Manager.Idle() {
			log.Debug().
				Str("backend", t.Name).
				Str("state", t.Manager.State().String()).
				Msg("Skipping visit write, backend busy")
			return
		}

		// One short bounded attempt inline; no synchronous retries.
		ctx, cancel := context.WithTimeout(context.Background(), r.connectTimeout)
		_ = t.Manager.Connect(ctx, 1, 0)
		cancel()

		if !t.Manager.Connected() {
			log.Debug().
				Str("backend", t.Name).
				Msg("Skipping visit write, backend unreachable")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := t.Store.InsertVisit(ctx, visit); err != nil {
		log.Warn().
			Str("backend", t.Name).
			Err(err).
			Msg("Visit write failed")
		t.Manager.ReportFault(err)
		return
	}

	log.Debug().
		Str("backend", t.Name).
		Str("ip", visit.IP).
		Msg("Visit recorded")
}
