// Package csvimport turns uploaded CSV files into validated transaction
// inputs. File-level problems abort the import; row-level problems are
// collected and the remaining rows still go through.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"ledger/internal/core"
)

// DefaultMaxBytes bounds an upload when no limit is configured.
const DefaultMaxBytes int64 = 10 << 20

const (
	colDescription = "description"
	colAmount      = "amount"
	colDate        = "date"
	colType        = "type"
	colCategory    = "category"
	colTags        = "tags"
)

// headerAliases maps lower-cased header names onto canonical columns.
var headerAliases = map[string]string{
	"description":      colDescription,
	"name":             colDescription,
	"memo":             colDescription,
	"payee":            colDescription,
	"amount":           colAmount,
	"value":            colAmount,
	"date":             colDate,
	"transaction date": colDate,
	"transaction_date": colDate,
	"type":             colType,
	"transaction type": colType,
	"category":         colCategory,
	"tags":             colTags,
	"labels":           colTags,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one valid data row. Number counts data rows from 1.
type Row struct {
	Number int
	Input  core.TransactionInput
}

// RowError reports why a data row was rejected.
type RowError struct {
	Number int
	Msg    string
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Number, e.Msg)
}

type Result struct {
	Rows   []Row
	Errors []RowError
}

// ValidateFilename accepts names ending in .csv, any case.
func ValidateFilename(name string) error {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".csv") {
		return core.NewValidationError("csv_file", "file must be a CSV file")
	}
	return nil
}

// Parse reads a whole CSV upload. It fails before looking at any row when
// the file is larger than maxBytes, is not UTF-8, or has no readable header.
func Parse(r io.Reader, maxBytes int64) (Result, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return Result{}, core.NewValidationError("csv_file", fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}
	if !utf8.Valid(data) {
		return Result{}, core.NewValidationError("csv_file", "file must be UTF-8 encoded")
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, core.NewValidationError("csv_file", "could not read CSV header")
	}
	cols := mapHeader(header)

	var res Result
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.Errors = append(res.Errors, RowError{Number: n, Msg: parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv row %d: %w", n, err)
		}
		in, err := cols.parseRow(record)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Number: n, Msg: err.Error()})
			continue
		}
		res.Rows = append(res.Rows, Row{Number: n, Input: in})
	}
	return res, nil
}

// columns holds the record index of each canonical column, or -1.
type columns map[string]int

func mapHeader(header []string) columns {
	cols := columns{}
	for _, c := range []string{colDescription, colAmount, colDate, colType, colCategory, colTags} {
		cols[c] = -1
	}
	for i, h := range header {
		canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if ok && cols[canonical] == -1 {
			cols[canonical] = i
		}
	}
	return cols
}

func (c columns) get(record []string, col string) string {
	i := c[col]
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseRow validates one record into a normalized transaction input.
func (c columns) parseRow(record []string) (core.TransactionInput, error) {
	desc := c.get(record, colDescription)
	amountStr := c.get(record, colAmount)
	dateStr := c.get(record, colDate)

	var missing []string
	if desc == "" {
		missing = append(missing, colDescription)
	}
	if amountStr == "" {
		missing = append(missing, colAmount)
	}
	if dateStr == "" {
		missing = append(missing, colDate)
	}
	if len(missing) > 0 {
		return core.TransactionInput{}, fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	cents, err := core.ParseSignedCents(amountStr)
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("invalid amount %q", amountStr)
	}

	var txType core.TransactionType
	if typeStr := c.get(record, colType); typeStr != "" {
		txType, err = core.ParseTransactionType(typeStr)
		if err != nil {
			return core.TransactionInput{}, fmt.Errorf("invalid type %q", typeStr)
		}
		if cents <= 0 {
			return core.TransactionInput{}, fmt.Errorf("amount must be positive when a type is given")
		}
	} else {
		switch {
		case cents < 0:
			txType = core.Expense
			cents = -cents
		case cents > 0:
			txType = core.Income
		default:
			return core.TransactionInput{}, fmt.Errorf("amount cannot be zero without a type")
		}
	}

	if i := strings.IndexByte(dateStr, 'T'); i >= 0 {
		dateStr = dateStr[:i]
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dateStr)
	}

	in, err := core.TransactionInput{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        txType,
		Date:        date,
		Category:    c.get(record, colCategory),
		Tags:        core.SplitList(c.get(record, colTags)),
	}.Normalize()
	if err != nil {
		return core.TransactionInput{}, err
	}
	return in, nil
}
