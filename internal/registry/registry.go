// Package registry holds the client-side view of the download queue and the
// reconciler that folds engine push events into it.
package registry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cieldm/ciel/internal/domain"
)

// Observer is notified after every registry mutation. Observers run
// synchronously on the mutating call; they must not mutate the registry
// re-entrantly.
type Observer func()

// Registry is the in-memory, insertion-ordered collection of download
// records keyed by id. All mutation goes through its methods so that
// observers stay consistent; consumers never modify a record in place.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Download

	obsMu     sync.Mutex
	observers map[string]Observer

	logger *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:      make(map[string]domain.Download),
		observers: make(map[string]Observer),
		logger:    logger,
	}
}

// Subscribe registers an observer and returns a disposer. The disposer is
// safe to call multiple times; after the first call the observer receives no
// further notifications.
func (r *Registry) Subscribe(obs Observer) func() {
	token := uuid.NewString()

	r.obsMu.Lock()
	r.observers[token] = obs
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, token)
		r.obsMu.Unlock()
	}
}

// notify runs all current observers. A snapshot of the table is taken so
// that a subscriber removed mid-flight neither receives the callback nor
// breaks iteration.
func (r *Registry) notify() {
	r.obsMu.Lock()
	snapshot := make([]Observer, 0, len(r.observers))
	for _, obs := range r.observers {
		snapshot = append(snapshot, obs)
	}
	r.obsMu.Unlock()

	for _, obs := range snapshot {
		obs()
	}
}

// ReplaceAll discards all prior state and installs the given records. Used
// after a full refresh pull; the engine's ordering is preserved.
func (r *Registry) ReplaceAll(downloads []domain.Download) {
	r.mu.Lock()
	r.order = make([]string, 0, len(downloads))
	r.byID = make(map[string]domain.Download, len(downloads))
	for _, d := range downloads {
		if _, dup := r.byID[d.ID]; dup {
			r.logger.Warn("duplicate id in refresh payload", "id", d.ID)
			continue
		}
		r.order = append(r.order, d.ID)
		r.byID[d.ID] = d
	}
	r.mu.Unlock()

	r.notify()
}

// Patch applies a partial update to exactly one record. Unknown ids are
// silently ignored: an event may race ahead of or behind a refresh.
func (r *Registry) Patch(id string, p domain.Patch) {
	r.mu.Lock()
	d, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	// Checked under the lock: a refresh may install the completed record
	// after the caller looked and before the patch lands, and a stale
	// progress tick must not resurrect it.
	if d.Status.IsTerminal() && p.Status != nil && !p.Status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	if p.Filename != nil {
		d.Filename = *p.Filename
	}
	if p.Size != nil {
		d.Size = *p.Size
	}
	if p.Downloaded != nil {
		d.Downloaded = *p.Downloaded
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.StatusText != nil {
		d.StatusText = *p.StatusText
	}
	if p.Speed != nil {
		d.Speed = *p.Speed
	}
	if p.ETA != nil {
		d.ETA = *p.ETA
	}
	if p.Connections != nil {
		d.Connections = *p.Connections
	}
	r.byID[id] = d
	r.mu.Unlock()

	r.notify()
}

// Remove deletes one record; used after a confirmed deletion. Unknown ids
// are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	if _, ok := r.byID[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.notify()
}

// Get returns the record for id.
func (r *Registry) Get(id string) (domain.Download, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// All returns every record in insertion order.
func (r *Registry) All() []domain.Download {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Download, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Filter returns the records matching the predicate, in insertion order.
// The result is a derived read-only view; filtering never mutates the
// registry.
func (r *Registry) Filter(pred func(domain.Download) bool) []domain.Download {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Download
	for _, id := range r.order {
		if d := r.byID[id]; pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Active matches records in the active queue view.
func Active(d domain.Download) bool { return d.IsActive() }

// Completed matches finished records.
func Completed(d domain.Download) bool { return d.Status == domain.StatusCompleted }

// InCategory matches records of the given engine-derived category.
// "All" matches everything.
func InCategory(category string) func(domain.Download) bool {
	return func(d domain.Download) bool {
		return category == "All" || d.Category == category
	}
}
