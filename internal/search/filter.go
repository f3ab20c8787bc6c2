// Package search provides fuzzy filename filtering over the download queue.
package search

import (
	"sort"
	"strings"

	"github.com/cieldm/ciel/internal/domain"
	rankfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// Match is one filtered download with match metadata for highlighting.
type Match struct {
	Download       domain.Download
	MatchedIndexes []int // Character positions in the filename that matched
	Score          int   // Higher is better (sahilm/fuzzy convention)
}

// Index implements sahilm/fuzzy.Source over download filenames.
// Lowercase names are pre-computed at build time so filtering while the
// user types does not re-allocate.
type Index struct {
	downloads  []domain.Download
	lowerNames []string
}

// NewIndex builds a filter index over the given queue snapshot.
func NewIndex(downloads []domain.Download) *Index {
	lowerNames := make([]string, len(downloads))
	for i, d := range downloads {
		lowerNames[i] = strings.ToLower(d.Filename)
	}
	return &Index{downloads: downloads, lowerNames: lowerNames}
}

// String returns the lowercase filename at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.lowerNames[i] }

// Len returns the number of indexed downloads (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.downloads) }

// Filter returns downloads whose filename fuzzy-matches query, best first.
// An empty query returns nil; callers show the unfiltered queue instead.
func (idx *Index) Filter(query string) []Match {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" || idx.Len() == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(query, idx)

	results := make([]Match, len(matches))
	for i, m := range matches {
		results[i] = Match{
			Download:       idx.downloads[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// RankByName orders downloads by fuzzy distance of their filename to query,
// closest first, dropping non-matches. Used where match positions are not
// needed, e.g. picking the autocatch suggestion.
func RankByName(query string, downloads []domain.Download) []domain.Download {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	names := make([]string, len(downloads))
	byName := make(map[string][]domain.Download, len(downloads))
	for i, d := range downloads {
		name := strings.ToLower(d.Filename)
		names[i] = name
		byName[name] = append(byName[name], d)
	}

	ranks := rankfuzzy.RankFindFold(query, names)
	sort.Slice(ranks, func(i, j int) bool {
		return ranks[i].Distance < ranks[j].Distance
	})

	seen := make(map[string]bool, len(ranks))
	results := make([]domain.Download, 0, len(ranks))
	for _, r := range ranks {
		if seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		results = append(results, byName[r.Target]...)
	}
	return results
}
