// Package scheduler drives the timed download window: when enabled, every
// queued or paused download resumes at the configured start time and every
// active download pauses at the configured pause time.
package scheduler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cieldm/ciel/internal/domain"
)

// tickInterval is short enough that a minute boundary is never skipped.
const tickInterval = 30 * time.Second

// Queue is the subset of dispatcher behavior the scheduler needs.
type Queue interface {
	ResumeAll(ctx context.Context)
	PauseAll(ctx context.Context)
}

// SettingsReader exposes the current settings snapshot.
type SettingsReader interface {
	Current() domain.Snapshot
}

// Scheduler checks the clock twice a minute against the configured start and
// pause times.
type Scheduler struct {
	queue    Queue
	settings SettingsReader
	logger   *slog.Logger

	// lastFired guards against double-firing within the same minute.
	lastResumed string
	lastPaused  string

	now func() time.Time
}

func New(queue Queue, settings SettingsReader, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		queue:    queue,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Call from its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	snap := s.settings.Current()
	if !snap.Bool(domain.SettingSchedulerEnabled, false) {
		return
	}

	now := s.now()
	clock := now.Format("15:04")
	today := now.Format("2006-01-02") + " " + clock

	if start := snap.Str(domain.SettingSchedulerStartTime, ""); MatchesClock(clock, start) {
		if s.lastResumed != today {
			s.lastResumed = today
			s.logger.Info("scheduler window opened, resuming downloads", "time", start)
			s.queue.ResumeAll(ctx)
		}
	}

	if pause := snap.Str(domain.SettingSchedulerPauseTime, ""); MatchesClock(clock, pause) {
		if s.lastPaused != today {
			s.lastPaused = today
			s.logger.Info("scheduler window closed, pausing downloads", "time", pause)
			s.queue.PauseAll(ctx)
		}
	}
}

// MatchesClock reports whether the wall clock "HH:MM" equals the configured
// time. Malformed configured values never match.
func MatchesClock(clock, configured string) bool {
	configured = strings.TrimSpace(configured)
	if !ValidClock(configured) {
		return false
	}
	return clock == configured
}

// ValidClock reports whether s is a well-formed 24h "HH:MM" time.
func ValidClock(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return false
	}
	return true
}
