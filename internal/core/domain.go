package core

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// MaxDescriptionLength bounds transaction descriptions in runes.
const MaxDescriptionLength = 255

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	Tag struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	// Transaction tags are ordered by tag id ascending.
	Transaction struct {
		ID          int64
		Description string
		Amount      Money
		Type        TransactionType
		Date        civil.Date
		Tags        []Tag
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// TransactionInput is what callers supply to create or update a transaction.
	// Category is a bare name; Tags are plain tag names.
	TransactionInput struct {
		Description string
		Amount      Money
		Type        TransactionType
		Date        civil.Date
		Category    string
		Tags        []string
	}
)

// ParseTransactionType accepts income/credit and expense/debit, any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "credit":
		return Income, nil
	case "expense", "debit":
		return Expense, nil
	default:
		return "", NewValidationError("type", "type must be 'income' or 'expense', got '"+s+"'")
	}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, NewValidationError("date", "invalid date format: "+s+". Expected YYYY-MM-DD")
	}
	return d, nil
}

// MonthKey returns the YYYY-MM bucket of a date.
func MonthKey(d civil.Date) string {
	return d.String()[:7]
}

// Category returns the bare name of the first category tag, or "".
func (t Transaction) Category() string {
	for _, tag := range t.Tags {
		if name, ok := CategoryName(tag.Name); ok {
			return name
		}
	}
	return ""
}

// NonCategoryTags returns the names of the plain tags in tag order.
func (t Transaction) NonCategoryTags() []string {
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		if !IsCategoryName(tag.Name) {
			names = append(names, tag.Name)
		}
	}
	return names
}

func (t Transaction) TagNames() []string {
	names := make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		names[i] = tag.Name
	}
	return names
}

func (t Transaction) Month() string {
	return MonthKey(t.Date)
}

func (t Tag) IsCategory() bool {
	return IsCategoryName(t.Name)
}

// CategoryName returns the bare category name, or "" for plain tags.
func (t Tag) CategoryName() string {
	name, _ := CategoryName(t.Name)
	return name
}

// Normalize validates the input and returns a cleaned copy: trimmed
// description, lower-cased category, trimmed and de-duplicated tags.
// Category-prefixed entries in Tags are dropped; the category travels
// in its own field.
func (in TransactionInput) Normalize() (TransactionInput, error) {
	out := in
	out.Description = strings.TrimSpace(in.Description)
	if out.Description == "" {
		return TransactionInput{}, NewValidationError("description", "description cannot be empty")
	}
	if len([]rune(out.Description)) > MaxDescriptionLength {
		return TransactionInput{}, NewValidationError("description", "description too long")
	}
	if err := in.Amount.Validate(); err != nil {
		return TransactionInput{}, err
	}
	if !in.Type.IsValid() {
		return TransactionInput{}, NewValidationError("type", "type must be 'income' or 'expense'")
	}
	if !in.Date.IsValid() {
		return TransactionInput{}, NewValidationError("date", "invalid date")
	}

	out.Category = NormalizeCategory(in.Category)
	if out.Category != "" {
		if err := ValidateCategoryName(out.Category); err != nil {
			return TransactionInput{}, err
		}
	}

	seen := make(map[string]bool, len(in.Tags))
	out.Tags = make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || IsCategoryName(tag) || seen[tag] {
			continue
		}
		seen[tag] = true
		out.Tags = append(out.Tags, tag)
	}
	return out, nil
}
