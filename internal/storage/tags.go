package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"

	sq "github.com/Masterminds/squirrel"
)

const categoryPrefixLen = len(core.CategoryPrefix)

func scanTag(row interface{ Scan(...any) error }) (core.Tag, error) {
	var (
		tag     core.Tag
		created dbTime
	)
	if err := row.Scan(&tag.ID, &tag.Name, &created); err != nil {
		return core.Tag{}, err
	}
	tag.CreatedAt = created.Time
	return tag, nil
}

// GetTagByName returns a core.NotFoundError when no tag has exactly that name.
func (q *Queries) GetTagByName(ctx context.Context, name string) (core.Tag, error) {
	row := q.db.QueryRowContext(ctx, q.rebind(`SELECT id, name, created_at FROM tags WHERE name = ?`), name)
	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Tag{}, core.NewNotFoundError("tag", name)
	}
	if err != nil {
		return core.Tag{}, fmt.Errorf("get tag %q: %w", name, err)
	}
	return tag, nil
}

// InsertTag creates a tag. A unique violation becomes a core.ConflictError.
func (q *Queries) InsertTag(ctx context.Context, name string, now time.Time) (core.Tag, error) {
	row := q.db.QueryRowContext(ctx,
		q.rebind(`INSERT INTO tags (name, created_at) VALUES (?, ?) RETURNING id, name, created_at`),
		name, now.UTC())
	tag, err := scanTag(row)
	if isUniqueViolation(err) {
		return core.Tag{}, core.NewConflictError("tag", name)
	}
	if err != nil {
		return core.Tag{}, fmt.Errorf("insert tag %q: %w", name, err)
	}
	return tag, nil
}

// RenameTag changes a tag name in place.
func (q *Queries) RenameTag(ctx context.Context, id int64, name string) error {
	n, err := q.exec(ctx, `UPDATE tags SET name = ? WHERE id = ?`, name, id)
	if isUniqueViolation(err) {
		return core.NewConflictError("tag", name)
	}
	if err != nil {
		return fmt.Errorf("rename tag %d: %w", id, err)
	}
	if n == 0 {
		return core.NewNotFoundError("tag", fmt.Sprint(id))
	}
	return nil
}

// DeleteTag removes a tag and its associations; transactions are kept.
func (q *Queries) DeleteTag(ctx context.Context, id int64) (bool, error) {
	if _, err := q.exec(ctx, `DELETE FROM transaction_tags WHERE tag_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete tag %d associations: %w", id, err)
	}
	n, err := q.exec(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete tag %d: %w", id, err)
	}
	return n > 0, nil
}

// MoveTagAssociations gives every transaction holding source the target tag
// (skipping those that already hold it) and detaches source.
// Returns the number of transactions that held source.
func (q *Queries) MoveTagAssociations(ctx context.Context, sourceID, targetID int64) (int64, error) {
	held, err := q.CountTagUsage(ctx, sourceID)
	if err != nil {
		return 0, err
	}

	if _, err := q.exec(ctx, `
		INSERT INTO transaction_tags (transaction_id, tag_id)
		SELECT transaction_id, CAST(? AS BIGINT) FROM transaction_tags WHERE tag_id = ?
		ON CONFLICT (transaction_id, tag_id) DO NOTHING`, targetID, sourceID); err != nil {
		return 0, fmt.Errorf("copy tag %d associations to %d: %w", sourceID, targetID, err)
	}

	if _, err := q.exec(ctx, `DELETE FROM transaction_tags WHERE tag_id = ?`, sourceID); err != nil {
		return 0, fmt.Errorf("detach tag %d: %w", sourceID, err)
	}
	return held, nil
}

// ListTags returns category tags or plain tags ordered by name.
func (q *Queries) ListTags(ctx context.Context, categories bool) ([]core.Tag, error) {
	op := "<>"
	if categories {
		op = "="
	}
	query, args, err := q.sb.Select("id", "name", "created_at").
		From("tags").
		Where(sq.Expr("substr(name, 1, ?) "+op+" ?", categoryPrefixLen, core.CategoryPrefix)).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tags query: %w", err)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []core.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// CountTagUsage returns how many transactions hold the tag.
func (q *Queries) CountTagUsage(ctx context.Context, tagID int64) (int64, error) {
	var n int64
	row := q.db.QueryRowContext(ctx,
		q.rebind(`SELECT COUNT(*) FROM transaction_tags WHERE tag_id = ?`), tagID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count tag %d usage: %w", tagID, err)
	}
	return n, nil
}
