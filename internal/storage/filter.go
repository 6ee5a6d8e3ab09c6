package storage

import (
	"fmt"

	"ledger/internal/core"

	sq "github.com/Masterminds/squirrel"
)

// monthExpr truncates the stored YYYY-MM-DD date to its YYYY-MM bucket.
const monthExpr = "substr(t.date, 1, 7)"

// applyFilter adds the filter predicates to a query over "transactions t".
// Categories match any-of, tags all-of; each name is a bound parameter.
func applyFilter(b sq.SelectBuilder, f core.Filter) (sq.SelectBuilder, error) {
	if len(f.Categories) > 0 {
		sub, args, err := hasAnyTag(f.CategoryTagNames())
		if err != nil {
			return b, err
		}
		b = b.Where("EXISTS ("+sub+")", args...)
	}

	for _, tag := range f.Tags {
		sub, args, err := hasAnyTag([]string{tag})
		if err != nil {
			return b, err
		}
		b = b.Where("EXISTS ("+sub+")", args...)
	}

	if f.Start != nil {
		b = b.Where(sq.GtOrEq{"t.date": f.Start.String()})
	}
	if f.End != nil {
		b = b.Where(sq.LtOrEq{"t.date": f.End.String()})
	}
	return b, nil
}

// hasAnyTag builds a correlated subquery with "?" placeholders; the outer
// builder rewrites them for the dialect.
func hasAnyTag(names []string) (string, []any, error) {
	sub, args, err := sq.Select("1").
		From("transaction_tags ft").
		Join("tags fg ON fg.id = ft.tag_id").
		Where("ft.transaction_id = t.id").
		Where(sq.Eq{"fg.name": names}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build tag filter: %w", err)
	}
	return sub, args, nil
}
