package core

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	Last7Days    TimeRange = "7d"
	Last30Days   TimeRange = "30d"
	Last90Days   TimeRange = "90d"
	CurrentMonth TimeRange = "current_month"
	Last3Months  TimeRange = "3_months"
	Last6Months  TimeRange = "6_months"
	LastYear     TimeRange = "1_year"
)

type (
	// TimeRange is a relative date window ending today.
	TimeRange string

	// FilterParams holds raw filter values as received from a request.
	FilterParams struct {
		Categories string
		Tags       string
		Range      string
		StartDate  string
		EndDate    string
	}

	// Filter is the validated filter vocabulary shared by listing and stats.
	// Categories match any-of, Tags match all-of. Start and End are inclusive.
	Filter struct {
		Categories []string
		Tags       []string
		Range      TimeRange
		Start      *civil.Date
		End        *civil.Date
	}
)

func (r TimeRange) IsValid() bool {
	switch r {
	case Last7Days, Last30Days, Last90Days, CurrentMonth, Last3Months, Last6Months, LastYear:
		return true
	}
	return false
}

// Start returns the first day included by the range.
func (r TimeRange) Start(today civil.Date) civil.Date {
	t := today.In(time.UTC)
	switch r {
	case Last7Days:
		return today.AddDays(-7)
	case Last30Days:
		return today.AddDays(-30)
	case Last90Days:
		return today.AddDays(-90)
	case CurrentMonth:
		return civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	case Last3Months:
		return civil.DateOf(t.AddDate(0, -3, 0))
	case Last6Months:
		return civil.DateOf(t.AddDate(0, -6, 0))
	case LastYear:
		return civil.DateOf(t.AddDate(-1, 0, 0))
	}
	return today
}

// SplitList splits a comma-separated list, trimming tokens and dropping empties.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseFilter turns raw parameters into a Filter. Malformed dates and
// unknown ranges are ignored. A valid explicit bound disables the range.
func ParseFilter(p FilterParams, today civil.Date) Filter {
	var f Filter

	for _, c := range SplitList(p.Categories) {
		if c = NormalizeCategory(c); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}
	f.Tags = SplitList(p.Tags)

	if d, err := ParseDate(p.StartDate); err == nil {
		f.Start = &d
	}
	if d, err := ParseDate(p.EndDate); err == nil {
		f.End = &d
	}

	if f.Start == nil && f.End == nil {
		if r := TimeRange(strings.TrimSpace(p.Range)); r.IsValid() {
			f.Range = r
			start := r.Start(today)
			f.Start = &start
		}
	}
	return f
}

// CategoryTagNames returns the prefixed tag names of the category filter.
func (f Filter) CategoryTagNames() []string {
	names := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		names[i] = CategoryTagName(c)
	}
	return names
}

func (f Filter) IsEmpty() bool {
	return len(f.Categories) == 0 && len(f.Tags) == 0 && f.Start == nil && f.End == nil
}

// Key is a stable representation used for cache keys.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString("c=")
	b.WriteString(strings.Join(f.Categories, ","))
	b.WriteString("|t=")
	b.WriteString(strings.Join(f.Tags, ","))
	b.WriteString("|s=")
	if f.Start != nil {
		b.WriteString(f.Start.String())
	}
	b.WriteString("|e=")
	if f.End != nil {
		b.WriteString(f.End.String())
	}
	return b.String()
}
