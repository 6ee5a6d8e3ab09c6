package core

import (
	"testing"

	"cloud.google.com/go/civil"
)

var today = civil.Date{Year: 2026, Month: 3, Day: 31}

func TestParseFilterLists(t *testing.T) {
	f := ParseFilter(FilterParams{
		Categories: " Food, ,transport,",
		Tags:       "work, ,trip ",
	}, today)

	if len(f.Categories) != 2 || f.Categories[0] != "food" || f.Categories[1] != "transport" {
		t.Errorf("Categories = %v", f.Categories)
	}
	if len(f.Tags) != 2 || f.Tags[0] != "work" || f.Tags[1] != "trip" {
		t.Errorf("Tags = %v", f.Tags)
	}
	names := f.CategoryTagNames()
	if names[0] != "category:food" {
		t.Errorf("CategoryTagNames()[0] = %q", names[0])
	}
}

func TestParseFilterRanges(t *testing.T) {
	tests := []struct {
		rng  string
		want string
	}{
		{"7d", "2026-03-24"},
		{"30d", "2026-03-01"},
		{"90d", "2025-12-31"},
		{"current_month", "2026-03-01"},
		{"3_months", "2025-12-31"},
		{"6_months", "2025-10-01"},
		{"1_year", "2025-03-31"},
	}
	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			f := ParseFilter(FilterParams{Range: tt.rng}, today)
			if f.Start == nil {
				t.Fatal("Start not set")
			}
			if f.Start.String() != tt.want {
				t.Errorf("Start = %s, want %s", f.Start, tt.want)
			}
			if f.End != nil {
				t.Errorf("End = %s, want nil", f.End)
			}
		})
	}
}

func TestParseFilterIgnoresMalformed(t *testing.T) {
	f := ParseFilter(FilterParams{Range: "forever", StartDate: "yesterday", EndDate: "2026-13-01"}, today)
	if !f.IsEmpty() {
		t.Errorf("expected empty filter, got %+v", f)
	}

	// A malformed explicit bound does not disable the range.
	f = ParseFilter(FilterParams{Range: "7d", StartDate: "not-a-date"}, today)
	if f.Start == nil || f.Start.String() != "2026-03-24" {
		t.Errorf("Start = %v, want 2026-03-24", f.Start)
	}
}

func TestParseFilterExplicitBoundsOverrideRange(t *testing.T) {
	f := ParseFilter(FilterParams{Range: "7d", StartDate: "2026-01-01", EndDate: "2026-01-31"}, today)
	if f.Range != "" {
		t.Errorf("Range = %q, want empty", f.Range)
	}
	if f.Start.String() != "2026-01-01" || f.End.String() != "2026-01-31" {
		t.Errorf("bounds = %s..%s", f.Start, f.End)
	}

	f = ParseFilter(FilterParams{Range: "7d", EndDate: "2026-01-31"}, today)
	if f.Start != nil {
		t.Errorf("Start = %s, want nil", f.Start)
	}
}

func TestFilterKey(t *testing.T) {
	a := ParseFilter(FilterParams{Categories: "food", Tags: "x"}, today)
	b := ParseFilter(FilterParams{Categories: " FOOD ", Tags: "x,"}, today)
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	c := ParseFilter(FilterParams{Categories: "food"}, today)
	if a.Key() == c.Key() {
		t.Error("different filters share a key")
	}
}
