// Package settings maintains the single shared settings snapshot and keeps
// it consistent with the engine's persistence.
package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cieldm/ciel/internal/domain"
)

// Observer receives the full snapshot after every change.
type Observer func(domain.Snapshot)

// Synchronizer owns the process-wide settings snapshot. Mutations are
// applied optimistically: the local snapshot changes and observers are
// notified synchronously before the persistence call is issued. A failed
// persistence call is corrected by a full reload from the engine rather than
// a targeted rollback.
type Synchronizer struct {
	backend domain.Backend
	logger  *slog.Logger

	mu       sync.RWMutex
	snapshot domain.Snapshot

	obsMu     sync.Mutex
	observers map[string]Observer
}

// New creates a synchronizer seeded with the engine's default values, so
// reads are meaningful before the first Load.
func New(backend domain.Backend, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		backend:   backend,
		logger:    logger,
		snapshot:  domain.DefaultSettings(),
		observers: make(map[string]Observer),
	}
}

// Current returns a copy of the live snapshot.
func (s *Synchronizer) Current() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Seed installs a cached snapshot without persisting or reloading; used at
// startup to warm the UI from the local store before the first Load.
func (s *Synchronizer) Seed(snap domain.Snapshot) {
	if len(snap) == 0 {
		return
	}
	s.mu.Lock()
	s.snapshot = snap.Clone()
	s.mu.Unlock()
	s.broadcast()
}

// Subscribe registers an observer and returns a disposer. Disposal is
// idempotent; a removed observer receives no further notifications.
func (s *Synchronizer) Subscribe(obs Observer) func() {
	token := uuid.NewString()

	s.obsMu.Lock()
	s.observers[token] = obs
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, token)
		s.obsMu.Unlock()
	}
}

func (s *Synchronizer) broadcast() {
	snap := s.Current()

	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.obsMu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

// Load pulls the full snapshot from the engine. Failure leaves the previous
// snapshot untouched and is non-fatal: the UI continues with what it has.
func (s *Synchronizer) Load(ctx context.Context) error {
	snap, err := s.backend.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("settings load failed, keeping current snapshot", "error", err)
		return err
	}

	s.mu.Lock()
	s.snapshot = snap.Clone()
	s.mu.Unlock()

	s.broadcast()
	s.logger.Debug("settings loaded", "count", len(snap))
	return nil
}

// UpdateOne applies a single-key change optimistically, notifies all
// observers, then persists it. On persistence failure the snapshot is
// resynchronized from the engine; a brief flash of the optimistic value is
// the accepted tradeoff.
func (s *Synchronizer) UpdateOne(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.snapshot[key] = value
	s.mu.Unlock()

	s.broadcast()

	if err := s.backend.UpdateSetting(ctx, key, value); err != nil {
		s.logger.Error("setting persist failed, reloading", "key", key, "error", err)
		if lerr := s.Load(ctx); lerr != nil {
			s.logger.Error("settings resync failed", "error", lerr)
		}
		return err
	}
	return nil
}

// SaveAll replaces the whole snapshot optimistically, then persists every
// key. Any failure triggers a reload; successes before the failure are not
// rolled back individually.
func (s *Synchronizer) SaveAll(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	s.snapshot = snap.Clone()
	s.mu.Unlock()

	s.broadcast()

	var failed error
	for key, value := range snap {
		if err := s.backend.UpdateSetting(ctx, key, value); err != nil {
			s.logger.Error("bulk setting persist failed", "key", key, "error", err)
			failed = err
		}
	}

	if failed != nil {
		if lerr := s.Load(ctx); lerr != nil {
			s.logger.Error("settings resync failed", "error", lerr)
		}
		return failed
	}
	return nil
}
