package search

import (
	"testing"

	"github.com/cieldm/ciel/internal/domain"
)

func queue() []domain.Download {
	return []domain.Download{
		{ID: "1", Filename: "ubuntu-24.04-desktop-amd64.iso"},
		{ID: "2", Filename: "fedora-workstation-42.iso"},
		{ID: "3", Filename: "holiday-photos.zip"},
		{ID: "4", Filename: "Ubuntu Server Guide.pdf"},
	}
}

func TestFilterMatchesSubsequences(t *testing.T) {
	idx := NewIndex(queue())

	matches := idx.Filter("ubnt")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %#v", len(matches), matches)
	}
	for _, m := range matches {
		if m.Download.ID != "1" && m.Download.ID != "4" {
			t.Errorf("unexpected match %q", m.Download.Filename)
		}
		if len(m.MatchedIndexes) != 4 {
			t.Errorf("MatchedIndexes = %v, want one per query rune", m.MatchedIndexes)
		}
	}
}

func TestFilterCaseInsensitive(t *testing.T) {
	idx := NewIndex(queue())

	matches := idx.Filter("UBUNTU")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
}

func TestFilterEmptyQuery(t *testing.T) {
	idx := NewIndex(queue())

	if got := idx.Filter(""); got != nil {
		t.Errorf("empty query = %#v, want nil", got)
	}
	if got := idx.Filter("   "); got != nil {
		t.Errorf("whitespace query = %#v, want nil", got)
	}
}

func TestFilterNoMatches(t *testing.T) {
	idx := NewIndex(queue())

	if got := idx.Filter("xyzzy"); len(got) != 0 {
		t.Errorf("got %#v, want none", got)
	}
}

func TestFilterEmptyIndex(t *testing.T) {
	idx := NewIndex(nil)

	if got := idx.Filter("iso"); got != nil {
		t.Errorf("got %#v, want nil", got)
	}
}

func TestRankByName(t *testing.T) {
	got := RankByName("fedora", queue())
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1: %#v", len(got), got)
	}
	if got[0].ID != "2" {
		t.Errorf("best match = %q", got[0].Filename)
	}
}

func TestRankByNameClosestFirst(t *testing.T) {
	downloads := []domain.Download{
		{ID: "far", Filename: "ubuntu-24.04-desktop-amd64.iso"},
		{ID: "near", Filename: "ubuntu.iso"},
	}

	got := RankByName("ubuntu.iso", downloads)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != "near" {
		t.Errorf("closest match = %q, want the exact filename first", got[0].Filename)
	}
}

func TestRankByNameEmptyQuery(t *testing.T) {
	if got := RankByName("", queue()); got != nil {
		t.Errorf("got %#v, want nil", got)
	}
}
