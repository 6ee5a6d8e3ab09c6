package core

import "strings"

// CategoryPrefix marks a tag as a category.
const CategoryPrefix = "category:"

// DefaultCategories are seeded by the initial migration.
var DefaultCategories = []string{
	"food", "transport", "entertainment", "utilities", "shopping",
	"healthcare", "other", "salary", "investment",
}

func IsCategoryName(tagName string) bool {
	return strings.HasPrefix(tagName, CategoryPrefix)
}

// CategoryTagName returns the tag name backing a category.
func CategoryTagName(category string) string {
	return CategoryPrefix + category
}

// CategoryName strips the category prefix from a tag name.
func CategoryName(tagName string) (string, bool) {
	if !IsCategoryName(tagName) {
		return "", false
	}
	return strings.TrimPrefix(tagName, CategoryPrefix), true
}

func NormalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateCategoryName checks a bare category name.
func ValidateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("category", "category name cannot be empty")
	}
	if IsCategoryName(name) {
		return NewValidationError("category", "category name must not include the '"+CategoryPrefix+"' prefix")
	}
	return nil
}

// ValidateTagName checks a plain tag name. Category-prefixed names are
// rejected so tags and categories never share a namespace.
func ValidateTagName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("tag", "tag name cannot be empty")
	}
	if name != strings.TrimSpace(name) {
		return NewValidationError("tag", "tag name cannot start or end with spaces")
	}
	if IsCategoryName(name) {
		return NewValidationError("tag", "cannot use a category-prefixed name for a tag")
	}
	return nil
}
