package google

import "ledger/internal/core"

var (
	monthlyHeader   = []any{"Month", "Expenses", "Income", "Net"}
	breakdownHeader = []any{"Category", "Expenses", "Income", "Total"}
)

// monthlyValues lays out one header row and one row per month.
func monthlyValues(rows []core.MonthTotal) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, monthlyHeader)
	for _, r := range rows {
		out = append(out, []any{r.Month, dollars(r.Expenses), dollars(r.Income), dollars(r.Net())})
	}
	return out
}

func breakdownValues(rows []core.CategoryTotal) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, breakdownHeader)
	for _, r := range rows {
		out = append(out, []any{r.Category, dollars(r.Expenses), dollars(r.Income), dollars(r.Total())})
	}
	return out
}

func dollars(m core.Money) float64 {
	return m.Dollars().InexactFloat64()
}
