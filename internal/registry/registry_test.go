package registry

import (
	"testing"

	"github.com/cieldm/ciel/internal/domain"
	"github.com/cieldm/ciel/internal/log"
)

func sample() []domain.Download {
	return []domain.Download{
		{ID: "a", Filename: "alpha.iso", Status: domain.StatusDownloading, Category: "Software"},
		{ID: "b", Filename: "beta.mp4", Status: domain.StatusPaused, Category: "Video"},
		{ID: "c", Filename: "gamma.zip", Status: domain.StatusCompleted, Category: "Software"},
	}
}

func TestReplaceAllPreservesOrder(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %q, want %q", i, all[i].ID, want)
		}
	}
}

func TestReplaceAllSkipsDuplicateIDs(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll([]domain.Download{
		{ID: "a", Filename: "first"},
		{ID: "a", Filename: "second"},
	})

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	d, _ := r.Get("a")
	if d.Filename != "first" {
		t.Errorf("kept %q, want the first occurrence", d.Filename)
	}
}

func TestPatchUnknownIDIsNoOp(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	notified := 0
	r.Subscribe(func() { notified++ })

	status := domain.StatusError
	r.Patch("missing", domain.Patch{Status: &status})

	if notified != 0 {
		t.Errorf("observer fired %d times for an unknown-id patch", notified)
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

func TestPatchUpdatesOnlySetFields(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	downloaded := int64(42)
	r.Patch("a", domain.Patch{Downloaded: &downloaded})

	d, ok := r.Get("a")
	if !ok {
		t.Fatal("record vanished")
	}
	if d.Downloaded != 42 {
		t.Errorf("Downloaded = %d, want 42", d.Downloaded)
	}
	if d.Filename != "alpha.iso" || d.Status != domain.StatusDownloading {
		t.Error("unset patch fields must be left untouched")
	}
}

func TestRemove(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	r.Remove("b")

	if _, ok := r.Get("b"); ok {
		t.Error("record still present after Remove")
	}
	all := r.All()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "c" {
		t.Errorf("order after remove = %v", all)
	}

	r.Remove("b") // second remove is a no-op
	if r.Len() != 2 {
		t.Errorf("Len = %d after repeated remove, want 2", r.Len())
	}
}

func TestFilterDoesNotMutate(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	active := r.Filter(Active)
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}

	// Mutating the derived view must not touch the registry.
	active[0].Filename = "mutated"
	d, _ := r.Get(active[0].ID)
	if d.Filename == "mutated" {
		t.Error("filter result aliases registry storage")
	}

	if r.Len() != 3 {
		t.Errorf("Len = %d after filter, want 3", r.Len())
	}
}

func TestFilterPredicates(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	if got := len(r.Filter(Completed)); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
	if got := len(r.Filter(InCategory("Software"))); got != 2 {
		t.Errorf("software = %d, want 2", got)
	}
	if got := len(r.Filter(InCategory("All"))); got != 3 {
		t.Errorf("All category = %d, want 3", got)
	}
}

func TestSubscribeDisposerIsIdempotent(t *testing.T) {
	r := New(log.Null())

	calls := 0
	dispose := r.Subscribe(func() { calls++ })

	r.ReplaceAll(sample())
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	dispose()
	dispose() // must be safe

	r.ReplaceAll(sample())
	if calls != 1 {
		t.Errorf("calls = %d after dispose, want 1", calls)
	}
}

func TestMultipleObserversEachNotified(t *testing.T) {
	r := New(log.Null())

	var first, second int
	r.Subscribe(func() { first++ })
	r.Subscribe(func() { second++ })

	r.ReplaceAll(sample())
	r.Remove("a")

	if first != 2 || second != 2 {
		t.Errorf("observer counts = %d, %d, want 2, 2", first, second)
	}
}

func TestPatchNeverResurrectsCompletedRecord(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	notified := 0
	r.Subscribe(func() { notified++ })

	// A stale progress tick lands after a refresh installed the completed
	// record: the whole patch is absorbed, byte counts included.
	status := domain.StatusDownloading
	downloaded := int64(10)
	r.Patch("c", domain.Patch{Status: &status, Downloaded: &downloaded})

	d, _ := r.Get("c")
	if d.Status != domain.StatusCompleted {
		t.Errorf("Status = %v, completed must absorb late progress", d.Status)
	}
	if d.Downloaded != 0 {
		t.Errorf("Downloaded = %d, stale bytes must not be written", d.Downloaded)
	}
	if notified != 0 {
		t.Errorf("observer fired %d times for an absorbed patch", notified)
	}
}

func TestPatchFilenameOnCompletedRecord(t *testing.T) {
	r := New(log.Null())
	r.ReplaceAll(sample())

	// Non-status patches still apply; late name resolution is not a
	// resurrection.
	name := "gamma-final.zip"
	r.Patch("c", domain.Patch{Filename: &name})

	d, _ := r.Get("c")
	if d.Filename != name {
		t.Errorf("Filename = %q, want %q", d.Filename, name)
	}
	if d.Status != domain.StatusCompleted {
		t.Errorf("Status = %v, want completed", d.Status)
	}
}
