package commands

import (
	"context"
	"testing"

	"marginalia/internal/domain"
)

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		query     string
		wantScore int
		wantMin   int // use this for relative comparisons
	}{
		{
			name:      "exact match",
			target:    "holiday",
			query:     "holiday",
			wantScore: 150, // 100 for contains + 50 for prefix
		},
		{
			name:      "prefix match",
			target:    "holiday-2024.jpg",
			query:     "holiday",
			wantScore: 150, // 100 for contains + 50 for prefix
		},
		{
			name:      "substring match",
			target:    "summer-holiday.jpg",
			query:     "holiday",
			wantScore: 100, // contains only
		},
		{
			name:    "fuzzy match all chars at start",
			target:  "holiday.jpg",
			query:   "hol",
			wantMin: 100, // should be high due to prefix
		},
		{
			name:      "no match",
			target:    "holiday.jpg",
			query:     "xyz",
			wantScore: 0,
		},
		{
			name:      "empty query",
			target:    "holiday.jpg",
			query:     "",
			wantScore: 0,
		},
		{
			name:    "case insensitive",
			target:  "HOLIDAY.JPG",
			query:   "holiday",
			wantMin: 100,
		},
		{
			name:    "numbered scan",
			target:  "scan_0042.tiff",
			query:   "0042",
			wantMin: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := FuzzyScore(tt.target, tt.query)

			if tt.wantScore > 0 {
				if score != tt.wantScore {
					t.Errorf("expected score %d, got %d", tt.wantScore, score)
				}
			} else if tt.wantMin > 0 {
				if score < tt.wantMin {
					t.Errorf("expected score >= %d, got %d", tt.wantMin, score)
				}
			} else {
				if score != 0 {
					t.Errorf("expected score 0, got %d", score)
				}
			}
		})
	}
}

func TestFuzzyScore_Ordering(t *testing.T) {
	// Test that better matches score higher
	query := "holiday"

	exactScore := FuzzyScore("holiday", query)           // exact + prefix = 150
	prefixScore := FuzzyScore("holiday 2024", query)     // contains + prefix = 150
	containsScore := FuzzyScore("summer holiday", query) // contains only = 100
	fuzzyScore := FuzzyScore("h.o.l.i.d.a.y", query)     // fuzzy match only

	if exactScore < prefixScore {
		t.Errorf("exact match should score >= prefix: %d < %d", exactScore, prefixScore)
	}
	if prefixScore < containsScore {
		t.Errorf("prefix match should score >= contains: %d < %d", prefixScore, containsScore)
	}
	if containsScore <= fuzzyScore {
		t.Errorf("contains match should score higher than fuzzy: %d <= %d", containsScore, fuzzyScore)
	}
}

func TestFuzzySort(t *testing.T) {
	row := func(name, comment string) domain.EntryRow {
		return domain.EntryRow{IndexedEntry: domain.IndexedEntry{Name: name, Comment: comment}}
	}
	rows := []domain.EntryRow{
		row("random.txt", "nothing"),
		row("theatre-season.pdf", ""),
		row("cooking.md", "recipes"),
		row("ticket.pdf", "old theatre"),
	}

	sorted := FuzzySort(rows, "theatre")

	if len(sorted) != 2 {
		t.Fatalf("expected 2 results, got %d", len(sorted))
	}
	if sorted[0].Name != "theatre-season.pdf" {
		t.Errorf("expected prefix match first, got %s", sorted[0].Name)
	}
	if sorted[1].Name != "ticket.pdf" {
		t.Errorf("expected comment match second, got %s", sorted[1].Name)
	}

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Score > sorted[i-1].Score {
			t.Errorf("results not sorted by score: %d > %d at index %d",
				sorted[i].Score, sorted[i-1].Score, i)
		}
	}
}

func TestSearchCommand_Execute(t *testing.T) {
	s := openStore(t)
	seed(t, s, "/docs", "invoice-2024.pdf")
	seed(t, s, "/docs/old", "invoice-2019.pdf")
	seed(t, s, "/photos", "beach.jpg")

	cmd := NewSearchCommand(s, "invoice")
	results, err := cmd.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	cmd.Location = "/docs/old"
	results, err = cmd.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Name != "invoice-2019.pdf" {
		t.Errorf("expected only the scoped match, got %v", results)
	}

	short, err := NewSearchCommand(s, "i").Execute(context.Background())
	if err != nil || short != nil {
		t.Errorf("single-character queries return nothing, got %v, %v", short, err)
	}
}
