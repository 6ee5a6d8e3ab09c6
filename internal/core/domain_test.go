package core

import (
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
)

func validInput() TransactionInput {
	return TransactionInput{
		Description: "  Coffee ",
		Amount:      Money{Cents: 450},
		Type:        Expense,
		Date:        civil.Date{Year: 2026, Month: 2, Day: 1},
		Category:    " Food ",
		Tags:        []string{"work", " ", "work", "category:food", "morning"},
	}
}

func TestTransactionInputNormalize(t *testing.T) {
	got, err := validInput().Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.Description != "Coffee" {
		t.Errorf("Description = %q, want %q", got.Description, "Coffee")
	}
	if got.Category != "food" {
		t.Errorf("Category = %q, want %q", got.Category, "food")
	}
	if strings.Join(got.Tags, ",") != "work,morning" {
		t.Errorf("Tags = %v, want [work morning]", got.Tags)
	}
}

func TestTransactionInputNormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TransactionInput)
		field  string
	}{
		{"empty description", func(in *TransactionInput) { in.Description = "   " }, "description"},
		{"long description", func(in *TransactionInput) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) }, "description"},
		{"negative amount", func(in *TransactionInput) { in.Amount = Money{Cents: -1} }, "amount"},
		{"bad type", func(in *TransactionInput) { in.Type = "transfer" }, "type"},
		{"zero date", func(in *TransactionInput) { in.Date = civil.Date{} }, "date"},
		{"invalid date", func(in *TransactionInput) { in.Date = civil.Date{Year: 2026, Month: 2, Day: 30} }, "date"},
		{"prefixed category", func(in *TransactionInput) { in.Category = "category:food" }, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := in.Normalize()
			if err == nil {
				t.Fatal("expected error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("errors.Is(err, ErrValidation) = false")
			}
		})
	}
}

func TestTransactionCategory(t *testing.T) {
	tx := Transaction{Tags: []Tag{
		{ID: 1, Name: "work"},
		{ID: 2, Name: "category:food"},
		{ID: 5, Name: "category:other"},
		{ID: 7, Name: "lunch"},
	}}
	if got := tx.Category(); got != "food" {
		t.Errorf("Category() = %q, want %q", got, "food")
	}
	if got := strings.Join(tx.NonCategoryTags(), ","); got != "work,lunch" {
		t.Errorf("NonCategoryTags() = %q", got)
	}
	if (Transaction{}).Category() != "" {
		t.Error("Category() of untagged transaction should be empty")
	}
}

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"CREDIT", Income, true},
		{" Expense ", Expense, true},
		{"debit", Expense, true},
		{"refund", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q, err %v", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2026-02-01", "2024-02-29"} {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "2026-2-1", "2026-02-30", "01/02/2026", "2026-02-01T10:00:00"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) expected error", s)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	conflict := NewConflictError("category", "food")
	if !errors.Is(conflict, ErrConflict) || !IsConflictError(conflict) {
		t.Error("conflict error not recognised")
	}
	if errors.Is(conflict, ErrNotFound) {
		t.Error("conflict error matched ErrNotFound")
	}
	notFound := NewNotFoundError("tag", "x")
	if !errors.Is(notFound, ErrNotFound) || !IsNotFoundError(notFound) {
		t.Error("not found error not recognised")
	}
	if notFound.Error() != `tag "x" not found` {
		t.Errorf("unexpected message %q", notFound.Error())
	}
}
