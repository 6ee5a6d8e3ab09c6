// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies, filter query parameters, page numbers and path ids.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds JSON and form bodies. CSV uploads have their own limit.
const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = core.NewValidationError("body", "request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = core.NewValidationError("body", "invalid JSON body")
			return p.err
		}
		return nil
	}
	if body[0] == '[' {
		p.err = core.NewValidationError("body", "expected a JSON object")
		return p.err
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = core.NewValidationError("body", "invalid form body")
	}
	return p.err
}

// Has reports whether key was supplied at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetList returns a list value. JSON arrays are taken element by element;
// strings and repeated form fields are split on commas.
func (p *RequestBodyParser) GetList(key string) []string {
	var raw []string
	switch {
	case p.jsonData != nil:
		switch val := p.jsonData[key].(type) {
		case []any:
			for _, item := range val {
				raw = append(raw, stringValue(item))
			}
		case nil:
		default:
			raw = core.SplitList(stringValue(val))
		}
	case p.formData != nil:
		for _, v := range p.formData[key] {
			raw = append(raw, core.SplitList(v)...)
		}
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(sanitizeInput(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseTransactionInput builds a TransactionInput from a JSON or form body.
// Field-level validation beyond parsing is left to the service.
func parseTransactionInput(r *http.Request) (core.TransactionInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.TransactionInput{}, err
	}

	typeStr := p.Get("type")
	if typeStr == "" {
		typeStr = string(core.Expense)
	}
	txType, err := core.ParseTransactionType(typeStr)
	if err != nil {
		return core.TransactionInput{}, err
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.TransactionInput{}, err
	}

	dateStr := p.Get("date")
	if dateStr == "" {
		return core.TransactionInput{}, core.NewValidationError("date", "date is required")
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.TransactionInput{}, err
	}

	return core.TransactionInput{
		Description: p.Get("description"),
		Amount:      amount,
		Type:        txType,
		Date:        date,
		Category:    p.Get("category"),
		Tags:        p.GetList("tags"),
	}, nil
}

// parseNameField reads a single required name field from a JSON or form body.
func parseNameField(r *http.Request, field, missingMsg string) (string, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return "", err
	}
	name := p.Get(field)
	if name == "" {
		return "", core.NewValidationError(field, missingMsg)
	}
	return name, nil
}

// parseFilterParams reads the shared filter vocabulary from the query string.
func parseFilterParams(q url.Values) core.FilterParams {
	return core.FilterParams{
		Categories: q.Get("categories"),
		Tags:       q.Get("tags"),
		Range:      q.Get("range"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
	}
}

// parsePage returns the 1-based page parameter. Missing or malformed values
// mean page 1; services clamp out-of-range pages.
func parsePage(q url.Values) int {
	page, err := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

var errInvalidID = core.NewValidationError("id", "invalid transaction id")

// parseID reads a positive integer id from the {id} path parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

// pathName reads and unescapes a {name} path parameter.
func pathName(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", core.NewValidationError("name", fmt.Sprintf("invalid name %q", raw))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.NewValidationError("name", "name is required")
	}
	return name, nil
}
