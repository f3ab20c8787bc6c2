package registry

import (
	"context"
	"log/slog"

	"github.com/cieldm/ciel/internal/domain"
)

// pausedMarker is the status text the engine emits alongside a synthetic
// progress tick when a transfer is paused.
const pausedMarker = "Paused"

// SettingsReader exposes the current settings snapshot to the reconciler.
// The autocatch and sound-on-finish gates are checked at event-delivery time
// so a toggle takes effect without resubscribing.
type SettingsReader interface {
	Current() domain.Snapshot
}

// Reconciler applies engine push events to the registry with the defined
// precedence rules. It is order-independent for the one race the transport
// allows: a progress tick trailing a completion must not resurrect the
// finished record.
type Reconciler struct {
	registry *Registry
	settings SettingsReader
	logger   *slog.Logger

	// refresh pulls the full queue from the engine; completion events go
	// through it instead of a local patch because completion can change
	// engine-side fields (category, auto-organize placement).
	refresh func(ctx context.Context) error

	// notifySound fires the sound-on-finish side effect. Never blocks the
	// reconciler; failures are logged and dropped.
	notifySound func(d domain.Download)

	// onCatch offers an autocatch URL to the add-download surface.
	onCatch func(url string)
}

// NewReconciler wires a reconciler to its registry and collaborators.
// notifySound and onCatch may be nil.
func NewReconciler(
	reg *Registry,
	settings SettingsReader,
	refresh func(ctx context.Context) error,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		registry: reg,
		settings: settings,
		refresh:  refresh,
		logger:   logger,
	}
}

// SetSoundNotifier installs the completion sound side effect.
func (rc *Reconciler) SetSoundNotifier(fn func(d domain.Download)) {
	rc.notifySound = fn
}

// SetCatchHandler installs the autocatch delivery target.
func (rc *Reconciler) SetCatchHandler(fn func(url string)) {
	rc.onCatch = fn
}

// Apply folds one event into the registry.
func (rc *Reconciler) Apply(ctx context.Context, ev domain.Event) {
	switch e := ev.(type) {
	case domain.ProgressEvent:
		rc.applyProgress(e)
	case domain.CompletedEvent:
		rc.applyCompleted(ctx, e)
	case domain.ErrorEvent:
		rc.applyError(e)
	case domain.NameUpdatedEvent:
		rc.applyNameUpdated(e)
	case domain.AutocatchEvent:
		rc.applyAutocatch(e)
	default:
		rc.logger.Warn("unknown event type dropped")
	}
}

func (rc *Reconciler) applyProgress(e domain.ProgressEvent) {
	d, ok := rc.registry.Get(e.ID)
	if !ok {
		// Event raced a refresh or a delete; nothing to do.
		return
	}

	// Completed absorbs all: a late tick after the completion notification
	// must leave the finished record untouched.
	if d.Status.IsTerminal() {
		rc.logger.Debug("progress after completion ignored", "id", e.ID)
		return
	}

	status := domain.StatusDownloading
	if e.StatusText == pausedMarker {
		status = domain.StatusPaused
	}

	rc.registry.Patch(e.ID, domain.Patch{
		Size:        &e.Total,
		Downloaded:  &e.Downloaded,
		Speed:       &e.Speed,
		ETA:         &e.ETA,
		Connections: &e.Connections,
		StatusText:  &e.StatusText,
		Status:      &status,
	})
}

func (rc *Reconciler) applyCompleted(ctx context.Context, e domain.CompletedEvent) {
	// Grab the record before the refresh replaces it, for the notification.
	finished, known := rc.registry.Get(e.ID)

	if err := rc.refresh(ctx); err != nil {
		rc.logger.Error("refresh after completion failed", "id", e.ID, "error", err)
	}

	if known && rc.notifySound != nil {
		if rc.settings.Current().Bool(domain.SettingSoundOnFinish, false) {
			rc.notifySound(finished)
		}
	}
}

func (rc *Reconciler) applyError(e domain.ErrorEvent) {
	status := domain.StatusError
	rc.registry.Patch(e.ID, domain.Patch{
		Status:     &status,
		StatusText: &e.Message,
	})
	rc.logger.Info("download errored", "id", e.ID, "message", e.Message)
}

func (rc *Reconciler) applyNameUpdated(e domain.NameUpdatedEvent) {
	rc.registry.Patch(e.ID, domain.Patch{Filename: &e.Filename})
}

func (rc *Reconciler) applyAutocatch(e domain.AutocatchEvent) {
	// Gate checked at delivery time, not subscription time.
	if !rc.settings.Current().Bool(domain.SettingAutocatchEnabled, true) {
		return
	}
	if rc.onCatch != nil {
		rc.onCatch(e.URL)
	}
}

// Run consumes events from the subscription until its channel closes or the
// context is cancelled. Meant to be driven from a single goroutine.
func (rc *Reconciler) Run(ctx context.Context, sub domain.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			rc.Apply(ctx, ev)
		}
	}
}
