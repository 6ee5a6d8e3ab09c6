package http

import (
	"time"

	"ledger/internal/core"
)

// JSON shapes returned by the API. Amounts are dollar values with two
// decimals; amount_cents carries the exact integer.

type transactionDTO struct {
	ID              int64     `json:"id"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	AmountCents     int64     `json:"amount_cents"`
	Type            string    `json:"type"`
	Date            string    `json:"date"`
	Tags            []string  `json:"tags"`
	Category        *string   `json:"category"`
	NonCategoryTags []string  `json:"non_category_tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type transactionPageDTO struct {
	Transactions []transactionDTO `json:"transactions"`
	CurrentMonth *string          `json:"current_month"`
	Total        int              `json:"total"`
	Page         int              `json:"page"`
	TotalPages   int              `json:"total_pages"`
	Months       []string         `json:"months"`
}

type summaryDTO struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

type categoryTotalDTO struct {
	Category string  `json:"category"`
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
	Total    float64 `json:"total"`
}

type monthTotalDTO struct {
	Month    string  `json:"month"`
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
	Net      float64 `json:"net"`
}

type statsDTO struct {
	Summary    summaryDTO         `json:"summary"`
	Breakdown  []categoryTotalDTO `json:"breakdown"`
	Monthly    []monthTotalDTO    `json:"monthly"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
}

type seriesDTO struct {
	Labels   []string  `json:"labels"`
	Expenses []float64 `json:"expenses"`
	Income   []float64 `json:"income"`
}

type chartDataDTO struct {
	Categories seriesDTO `json:"categories"`
	Monthly    seriesDTO `json:"monthly"`
}

type categoryDTO struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

type importDTO struct {
	Success  bool     `json:"success"`
	ImportID string   `json:"import_id"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

func dollars(m core.Money) float64 {
	return m.Dollars().InexactFloat64()
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:              t.ID,
		Description:     t.Description,
		Amount:          dollars(t.Amount),
		AmountCents:     t.Amount.Cents,
		Type:            string(t.Type),
		Date:            t.Date.String(),
		Tags:            t.TagNames(),
		NonCategoryTags: t.NonCategoryTags(),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if c := t.Category(); c != "" {
		dto.Category = &c
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	if dto.NonCategoryTags == nil {
		dto.NonCategoryTags = []string{}
	}
	return dto
}

func toTransactionPageDTO(p core.TransactionPage) transactionPageDTO {
	txs := make([]transactionDTO, len(p.Transactions))
	for i, t := range p.Transactions {
		txs[i] = toTransactionDTO(t)
	}
	months := p.Months
	if months == nil {
		months = []string{}
	}
	return transactionPageDTO{
		Transactions: txs,
		CurrentMonth: p.CurrentMonth,
		Total:        p.Total,
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		Months:       months,
	}
}

func toBreakdownDTO(rows []core.CategoryTotal) []categoryTotalDTO {
	out := make([]categoryTotalDTO, len(rows))
	for i, c := range rows {
		out[i] = categoryTotalDTO{
			Category: c.Category,
			Expenses: dollars(c.Expenses),
			Income:   dollars(c.Income),
			Total:    dollars(c.Total()),
		}
	}
	return out
}

func toMonthlyDTO(rows []core.MonthTotal) []monthTotalDTO {
	out := make([]monthTotalDTO, len(rows))
	for i, m := range rows {
		out[i] = monthTotalDTO{
			Month:    m.Month,
			Expenses: dollars(m.Expenses),
			Income:   dollars(m.Income),
			Net:      dollars(m.Net()),
		}
	}
	return out
}

func toStatsDTO(r core.StatsReport) statsDTO {
	return statsDTO{
		Summary: summaryDTO{
			Income:   dollars(r.Summary.Income),
			Expenses: dollars(r.Summary.Expenses),
			Net:      dollars(r.Summary.Net()),
		},
		Breakdown:  toBreakdownDTO(r.Breakdown),
		Monthly:    toMonthlyDTO(r.Monthly),
		Page:       r.Page,
		TotalPages: r.TotalPages,
	}
}

func toChartDataDTO(c core.ChartData) chartDataDTO {
	out := chartDataDTO{
		Categories: seriesDTO{Labels: []string{}, Expenses: []float64{}, Income: []float64{}},
		Monthly:    seriesDTO{Labels: []string{}, Expenses: []float64{}, Income: []float64{}},
	}
	for _, row := range c.Breakdown {
		out.Categories.Labels = append(out.Categories.Labels, row.Category)
		out.Categories.Expenses = append(out.Categories.Expenses, dollars(row.Expenses))
		out.Categories.Income = append(out.Categories.Income, dollars(row.Income))
	}
	for _, row := range c.Monthly {
		out.Monthly.Labels = append(out.Monthly.Labels, row.Month)
		out.Monthly.Expenses = append(out.Monthly.Expenses, dollars(row.Expenses))
		out.Monthly.Income = append(out.Monthly.Income, dollars(row.Income))
	}
	return out
}
