package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/cieldm/ciel/internal/domain"
	"github.com/cieldm/ciel/internal/log"
)

type fakeQueue struct {
	resumes int
	pauses  int
}

func (f *fakeQueue) ResumeAll(context.Context) { f.resumes++ }
func (f *fakeQueue) PauseAll(context.Context)  { f.pauses++ }

type fakeSettings struct {
	snap domain.Snapshot
}

func (f *fakeSettings) Current() domain.Snapshot { return f.snap }

func schedulerAt(t *testing.T, snap domain.Snapshot, clock time.Time) (*Scheduler, *fakeQueue) {
	t.Helper()
	q := &fakeQueue{}
	s := New(q, &fakeSettings{snap: snap}, log.Null())
	s.now = func() time.Time { return clock }
	return s, q
}

func TestValidClock(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"00:00", true},
		{"09:30", true},
		{"23:59", true},
		{"24:00", false},
		{"12:60", false},
		{"9:30", false},
		{"09:5", false},
		{"0930", false},
		{"", false},
		{"ab:cd", false},
	}
	for _, tt := range tests {
		if got := ValidClock(tt.in); got != tt.want {
			t.Errorf("ValidClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMatchesClock(t *testing.T) {
	tests := []struct {
		clock      string
		configured string
		want       bool
	}{
		{"09:30", "09:30", true},
		{"09:30", " 09:30 ", true},
		{"09:30", "09:31", false},
		{"09:30", "9:30", false},
		{"09:30", "", false},
	}
	for _, tt := range tests {
		if got := MatchesClock(tt.clock, tt.configured); got != tt.want {
			t.Errorf("MatchesClock(%q, %q) = %v, want %v", tt.clock, tt.configured, got, tt.want)
		}
	}
}

func TestTickResumesAtStartTime(t *testing.T) {
	snap := domain.Snapshot{
		domain.SettingSchedulerEnabled:   "true",
		domain.SettingSchedulerStartTime: "09:00",
		domain.SettingSchedulerPauseTime: "17:00",
	}
	s, q := schedulerAt(t, snap, time.Date(2026, 3, 4, 9, 0, 15, 0, time.UTC))

	s.tick(context.Background())
	if q.resumes != 1 || q.pauses != 0 {
		t.Errorf("resumes = %d, pauses = %d, want 1/0", q.resumes, q.pauses)
	}
}

func TestTickPausesAtPauseTime(t *testing.T) {
	snap := domain.Snapshot{
		domain.SettingSchedulerEnabled:   "true",
		domain.SettingSchedulerStartTime: "09:00",
		domain.SettingSchedulerPauseTime: "17:00",
	}
	s, q := schedulerAt(t, snap, time.Date(2026, 3, 4, 17, 0, 45, 0, time.UTC))

	s.tick(context.Background())
	if q.resumes != 0 || q.pauses != 1 {
		t.Errorf("resumes = %d, pauses = %d, want 0/1", q.resumes, q.pauses)
	}
}

func TestTickFiresOncePerMinute(t *testing.T) {
	snap := domain.Snapshot{
		domain.SettingSchedulerEnabled:   "true",
		domain.SettingSchedulerStartTime: "09:00",
	}
	s, q := schedulerAt(t, snap, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))

	// Both half-minute ticks land inside the same minute.
	s.tick(context.Background())
	s.now = func() time.Time { return time.Date(2026, 3, 4, 9, 0, 30, 0, time.UTC) }
	s.tick(context.Background())

	if q.resumes != 1 {
		t.Errorf("resumes = %d, want exactly 1 per minute", q.resumes)
	}

	// The same minute on the next day fires again.
	s.now = func() time.Time { return time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) }
	s.tick(context.Background())
	if q.resumes != 2 {
		t.Errorf("resumes = %d, want 2 after day rollover", q.resumes)
	}
}

func TestTickSkipsWhenDisabled(t *testing.T) {
	snap := domain.Snapshot{
		domain.SettingSchedulerEnabled:   "false",
		domain.SettingSchedulerStartTime: "09:00",
		domain.SettingSchedulerPauseTime: "09:00",
	}
	s, q := schedulerAt(t, snap, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))

	s.tick(context.Background())
	if q.resumes != 0 || q.pauses != 0 {
		t.Errorf("disabled scheduler must not act, got resumes %d pauses %d", q.resumes, q.pauses)
	}
}

func TestTickIgnoresMalformedTimes(t *testing.T) {
	snap := domain.Snapshot{
		domain.SettingSchedulerEnabled:   "true",
		domain.SettingSchedulerStartTime: "9am",
		domain.SettingSchedulerPauseTime: "whenever",
	}
	s, q := schedulerAt(t, snap, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))

	s.tick(context.Background())
	if q.resumes != 0 || q.pauses != 0 {
		t.Errorf("malformed times must never match, got resumes %d pauses %d", q.resumes, q.pauses)
	}
}
