package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// tagStore is the slice of *storage.Queries the resolver needs.
type tagStore interface {
	GetTagByName(ctx context.Context, name string) (core.Tag, error)
	InsertTag(ctx context.Context, name string, now time.Time) (core.Tag, error)
	RenameTag(ctx context.Context, id int64, name string) error
	DeleteTag(ctx context.Context, id int64) (bool, error)
	MoveTagAssociations(ctx context.Context, sourceID, targetID int64) (int64, error)
}

// getOrCreateTag returns the tag named exactly name, creating it when
// missing. A concurrent insert surfaces as a core.ConflictError.
func getOrCreateTag(ctx context.Context, q tagStore, name string, now time.Time) (core.Tag, error) {
	tag, err := q.GetTagByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !core.IsNotFoundError(err) {
		return core.Tag{}, err
	}
	return q.InsertTag(ctx, name, now)
}

// tagKind maps the names callers use onto stored tag names.
type tagKind struct {
	entity  string
	tagName func(name string) string
}

var (
	plainTags    = tagKind{entity: "tag", tagName: func(name string) string { return name }}
	categoryTags = tagKind{entity: "category", tagName: core.CategoryTagName}
)

// renameTag renames oldName in place. Same-name renames succeed untouched.
func renameTag(ctx context.Context, q tagStore, kind tagKind, oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	tag, err := q.GetTagByName(ctx, kind.tagName(oldName))
	if core.IsNotFoundError(err) {
		return core.NewNotFoundError(kind.entity, oldName)
	}
	if err != nil {
		return err
	}
	if _, err := q.GetTagByName(ctx, kind.tagName(newName)); err == nil {
		return core.NewConflictError(kind.entity, newName)
	} else if !core.IsNotFoundError(err) {
		return err
	}
	err = q.RenameTag(ctx, tag.ID, kind.tagName(newName))
	if core.IsConflictError(err) {
		return core.NewConflictError(kind.entity, newName)
	}
	return err
}

// mergeTags moves every association of source onto target and deletes source.
// Returns how many transactions held source.
func mergeTags(ctx context.Context, q tagStore, kind tagKind, sourceName, targetName string) (int64, error) {
	if sourceName == targetName {
		return 0, core.NewValidationError("target", "cannot merge a "+kind.entity+" into itself")
	}
	source, err := q.GetTagByName(ctx, kind.tagName(sourceName))
	if core.IsNotFoundError(err) {
		return 0, core.NewNotFoundError(kind.entity, sourceName)
	}
	if err != nil {
		return 0, err
	}
	target, err := q.GetTagByName(ctx, kind.tagName(targetName))
	if core.IsNotFoundError(err) {
		return 0, core.NewNotFoundError(kind.entity, targetName)
	}
	if err != nil {
		return 0, err
	}

	moved, err := q.MoveTagAssociations(ctx, source.ID, target.ID)
	if err != nil {
		return 0, err
	}
	if _, err := q.DeleteTag(ctx, source.ID); err != nil {
		return 0, err
	}
	return moved, nil
}

// deleteTagByName is idempotent: a missing tag reports false, nil.
func deleteTagByName(ctx context.Context, q tagStore, name string) (bool, error) {
	tag, err := q.GetTagByName(ctx, name)
	if core.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return q.DeleteTag(ctx, tag.ID)
}

// TagService manages categories and plain tags.
type TagService struct {
	store    Store
	notifier *Notifier
	now      func() time.Time
}

func NewTagService(store Store, notifier *Notifier) *TagService {
	return &TagService{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// GetOrCreateTag resolves a plain tag or a prefixed category tag by exact name.
func (s *TagService) GetOrCreateTag(ctx context.Context, name string) (core.Tag, error) {
	if name == "" {
		return core.Tag{}, core.NewValidationError("tag", "tag name cannot be empty")
	}
	var tag core.Tag
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		tag, err = getOrCreateTag(ctx, q, name, s.now())
		return err
	})
	if err != nil {
		return core.Tag{}, fmt.Errorf("get or create tag: %w", err)
	}
	return tag, nil
}

func (s *TagService) ListCategories(ctx context.Context) ([]core.CategoryInfo, error) {
	tags, err := s.store.Queries().ListTags(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.CategoryInfo, 0, len(tags))
	for _, t := range tags {
		out = append(out, core.CategoryInfo{FullName: t.Name, Name: t.CategoryName()})
	}
	return out, nil
}

// ListTags returns the plain (non-category) tags.
func (s *TagService) ListTags(ctx context.Context) ([]core.Tag, error) {
	tags, err := s.store.Queries().ListTags(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tags == nil {
		tags = []core.Tag{}
	}
	return tags, nil
}

func (s *TagService) AddCategory(ctx context.Context, name string) (core.CategoryInfo, error) {
	name, err := categoryArg(name)
	if err != nil {
		return core.CategoryInfo{}, err
	}

	var tag core.Tag
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		tag, err = q.InsertTag(ctx, core.CategoryTagName(name), s.now())
		if core.IsConflictError(err) {
			return core.NewConflictError("category", name)
		}
		return err
	})
	if err != nil {
		return core.CategoryInfo{}, fmt.Errorf("add category: %w", err)
	}

	slog.InfoContext(ctx, "Category added", applog.FieldCategory, name)
	s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, At: s.now()})
	return core.CategoryInfo{FullName: tag.Name, Name: name}, nil
}

func (s *TagService) RenameCategory(ctx context.Context, oldName, newName string) error {
	oldName, err := categoryArg(oldName)
	if err != nil {
		return err
	}
	newName, err = categoryArg(newName)
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		return renameTag(ctx, q, categoryTags, oldName, newName)
	})
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}

	slog.InfoContext(ctx, "Category renamed", applog.FieldCategory, oldName, applog.FieldTarget, newName)
	s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, At: s.now()})
	return nil
}

// MergeCategories folds source into target and deletes source.
func (s *TagService) MergeCategories(ctx context.Context, source, target string) error {
	source, err := categoryArg(source)
	if err != nil {
		return err
	}
	target, err = categoryArg(target)
	if err != nil {
		return err
	}

	var moved int64
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		moved, err = mergeTags(ctx, q, categoryTags, source, target)
		return err
	})
	if err != nil {
		return fmt.Errorf("merge category: %w", err)
	}

	slog.InfoContext(ctx, "Category merged", applog.FieldCategory, source, applog.FieldTarget, target, applog.FieldCount, moved)
	s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, Count: int(moved), At: s.now()})
	return nil
}

// DeleteCategory removes the category from every transaction. Missing
// categories are a no-op.
func (s *TagService) DeleteCategory(ctx context.Context, name string) error {
	name, err := categoryArg(name)
	if err != nil {
		return err
	}

	var deleted bool
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		deleted, err = deleteTagByName(ctx, q, core.CategoryTagName(name))
		return err
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if deleted {
		slog.InfoContext(ctx, "Category deleted", applog.FieldCategory, name)
		s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, At: s.now()})
	}
	return nil
}

func (s *TagService) RenameTag(ctx context.Context, oldName, newName string) error {
	if err := core.ValidateTagName(oldName); err != nil {
		return err
	}
	if err := core.ValidateTagName(newName); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		return renameTag(ctx, q, plainTags, oldName, newName)
	})
	if err != nil {
		return fmt.Errorf("rename tag: %w", err)
	}

	slog.InfoContext(ctx, "Tag renamed", applog.FieldTag, oldName, applog.FieldTarget, newName)
	s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, At: s.now()})
	return nil
}

func (s *TagService) MergeTags(ctx context.Context, source, target string) error {
	if err := core.ValidateTagName(source); err != nil {
		return err
	}
	if err := core.ValidateTagName(target); err != nil {
		return err
	}

	var moved int64
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		moved, err = mergeTags(ctx, q, plainTags, source, target)
		return err
	})
	if err != nil {
		return fmt.Errorf("merge tag: %w", err)
	}

	slog.InfoContext(ctx, "Tag merged", applog.FieldTag, source, applog.FieldTarget, target, applog.FieldCount, moved)
	s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, Count: int(moved), At: s.now()})
	return nil
}

// DeleteTag removes a plain tag from every transaction. Missing tags are a no-op.
func (s *TagService) DeleteTag(ctx context.Context, name string) error {
	if err := core.ValidateTagName(name); err != nil {
		return err
	}

	var deleted bool
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		var err error
		deleted, err = deleteTagByName(ctx, q, name)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if deleted {
		slog.InfoContext(ctx, "Tag deleted", applog.FieldTag, name)
		s.notifier.Notify(ctx, core.Change{Kind: core.TagsChanged, At: s.now()})
	}
	return nil
}

// categoryArg normalizes and validates a bare category name.
func categoryArg(name string) (string, error) {
	name = core.NormalizeCategory(name)
	if err := core.ValidateCategoryName(name); err != nil {
		return "", err
	}
	return name, nil
}
