package commands

import (
	"context"
	"sort"
	"strings"

	"marginalia/internal/domain"
	"marginalia/internal/ports"
)

// SearchResult is an entry ranked by how well its name matches the query
type SearchResult struct {
	domain.EntryRow
	Score int
}

// SearchCommand searches indexed names with fuzzy matching
type SearchCommand struct {
	store    ports.MetadataStore
	Query    string
	Location string // optional recursive scope
	Limit    int
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(store ports.MetadataStore, query string) *SearchCommand {
	return &SearchCommand{
		store: store,
		Query: query,
	}
}

// Execute runs the search command and returns scored, sorted results
func (c *SearchCommand) Execute(ctx context.Context) ([]SearchResult, error) {
	if len(c.Query) < 2 {
		return nil, nil
	}

	q := domain.EntryQuery{}
	if c.Location != "" {
		q.Location = c.Location
		q.Recursive = true
	}
	rows, err := c.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	results := FuzzySort(rows, c.Query)
	if c.Limit > 0 && len(results) > c.Limit {
		results = results[:c.Limit]
	}
	return results, nil
}

// FuzzyScore calculates a relevance score for how well target matches query
func FuzzyScore(target, query string) int {
	target = strings.ToLower(target)
	query = strings.ToLower(query)

	if len(query) == 0 {
		return 0
	}

	if strings.Contains(target, query) {
		score := 100
		if strings.HasPrefix(target, query) {
			score += 50
		}
		return score
	}

	// chars must appear in order
	score := 0
	queryIdx := 0
	prevMatchIdx := -1

	for i := 0; i < len(target) && queryIdx < len(query); i++ {
		if target[i] == query[queryIdx] {
			if prevMatchIdx == i-1 {
				score += 10 // consecutive chars
			}
			if i == 0 {
				score += 15
			}
			if i > 0 && isSeparator(target[i-1]) {
				score += 10
			}
			score++
			prevMatchIdx = i
			queryIdx++
		}
	}

	if queryIdx == len(query) {
		return score
	}
	return 0
}

func isSeparator(b byte) bool {
	switch b {
	case ' ', '.', '-', '_', '/':
		return true
	}
	return false
}

// FuzzySort ranks entries by the better of their name and comment scores
// and drops entries that do not match at all
func FuzzySort(rows []domain.EntryRow, query string) []SearchResult {
	scored := make([]SearchResult, 0, len(rows))

	for _, r := range rows {
		best := max(FuzzyScore(r.Name, query), FuzzyScore(r.Comment, query))
		if best > 0 {
			scored = append(scored, SearchResult{EntryRow: r, Score: best})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
