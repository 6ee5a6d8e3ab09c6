package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// StatsMonthsPerPage is the monthly trend page size of the stats report.
	StatsMonthsPerPage = 6
	// ChartMonths caps the monthly series of the chart data.
	ChartMonths = 12
)

type StatsConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// StatsService computes summaries, category breakdowns and monthly trends.
// Reports are cached per filter until the next change.
type StatsService struct {
	store   Store
	reports *cache.LRUCache[core.StatsReport]
	charts  *cache.LRUCache[core.ChartData]
	group   singleflight.Group
}

func NewStatsService(store Store, cfg StatsConfig) *StatsService {
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 64
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &StatsService{
		store:   store,
		reports: cache.NewLRUCache[core.StatsReport](cfg.CacheSize, cfg.CacheTTL),
		charts:  cache.NewLRUCache[core.ChartData](cfg.CacheSize, cfg.CacheTTL),
	}
}

// RegisterCaches hands the report caches to a cleanup manager.
func (s *StatsService) RegisterCaches(m *cache.Manager) {
	m.Register(s.reports)
	m.Register(s.charts)
}

// OnChange drops every cached report.
func (s *StatsService) OnChange(ctx context.Context, c core.Change) {
	s.reports.Purge()
	s.charts.Purge()
	slog.DebugContext(ctx, "Stats cache invalidated", applog.FieldEventKind, string(c.Kind))
}

func (s *StatsService) Summary(ctx context.Context, f core.Filter) (core.Summary, error) {
	sum, err := s.store.Queries().SumByType(ctx, f)
	if err != nil {
		return core.Summary{}, fmt.Errorf("stats summary: %w", err)
	}
	return sum, nil
}

// Breakdown returns per-category totals, largest combined total first,
// ties by category name.
func (s *StatsService) Breakdown(ctx context.Context, f core.Filter) ([]core.CategoryTotal, error) {
	rows, err := s.store.Queries().SumByCategory(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats breakdown: %w", err)
	}
	if rows == nil {
		rows = []core.CategoryTotal{}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := rows[i].Total().Cents, rows[j].Total().Cents
		if ti != tj {
			return ti > tj
		}
		return rows[i].Category < rows[j].Category
	})
	return rows, nil
}

// Monthly returns per-month totals oldest first. A positive limit keeps only
// the most recent limit months.
func (s *StatsService) Monthly(ctx context.Context, f core.Filter, limit int) ([]core.MonthTotal, error) {
	rows, err := s.store.Queries().SumByMonth(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats monthly: %w", err)
	}
	if rows == nil {
		rows = []core.MonthTotal{}
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

// Report combines summary, breakdown and one page of the monthly trend.
// Page 1 holds the most recent StatsMonthsPerPage months.
func (s *StatsService) Report(ctx context.Context, f core.Filter, page int) (core.StatsReport, error) {
	key := "report|" + strconv.Itoa(page) + "|" + f.Key()
	if r, ok := s.reports.Get(key); ok {
		return r, nil
	}

	gen := s.reports.Generation()
	v, err, _ := s.group.Do(key, func() (any, error) {
		r, err := s.buildReport(ctx, f, page)
		if err != nil {
			return nil, err
		}
		s.reports.SetIfGeneration(key, r, gen)
		return r, nil
	})
	if err != nil {
		return core.StatsReport{}, err
	}
	return v.(core.StatsReport), nil
}

func (s *StatsService) buildReport(ctx context.Context, f core.Filter, page int) (core.StatsReport, error) {
	var (
		r       core.StatsReport
		monthly []core.MonthTotal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Summary, err = s.Summary(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		r.Breakdown, err = s.Breakdown(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.Monthly(gctx, f, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.StatsReport{}, err
	}

	r.Monthly, r.Page, r.TotalPages = pageMonths(monthly, page, StatsMonthsPerPage)
	return r, nil
}

// pageMonths slices an ascending month series into pages counted from the
// newest end. Each page stays in ascending order.
func pageMonths(months []core.MonthTotal, page, perPage int) ([]core.MonthTotal, int, int) {
	totalPages := (len(months) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	page = clampPage(page, totalPages)

	end := len(months) - (page-1)*perPage
	start := max(0, end-perPage)
	out := make([]core.MonthTotal, end-start)
	copy(out, months[start:end])
	return out, page, totalPages
}

// ChartData returns the breakdown and the last ChartMonths months.
func (s *StatsService) ChartData(ctx context.Context, f core.Filter) (core.ChartData, error) {
	key := "chart|" + f.Key()
	if c, ok := s.charts.Get(key); ok {
		return c, nil
	}

	gen := s.charts.Generation()
	v, err, _ := s.group.Do(key, func() (any, error) {
		breakdown, err := s.Breakdown(ctx, f)
		if err != nil {
			return nil, err
		}
		monthly, err := s.Monthly(ctx, f, ChartMonths)
		if err != nil {
			return nil, err
		}
		c := core.ChartData{Breakdown: breakdown, Monthly: monthly}
		s.charts.SetIfGeneration(key, c, gen)
		return c, nil
	})
	if err != nil {
		return core.ChartData{}, err
	}
	return v.(core.ChartData), nil
}
