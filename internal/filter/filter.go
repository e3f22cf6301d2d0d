// Package filter turns list query parameters into a TransactionQuery and
// evaluates such queries over in-memory transaction sets.
package filter

import (
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/Dan9191/expense-service/internal/models"
)

// Query parameter names
const (
	ParamTransactionType = "transaction_type"
	ParamTaxType         = "tax_type"
	ParamCreatedAt       = "created_at"
	ParamUpdatedAt       = "updated_at"
	ParamSearch          = "search"
	ParamOrdering        = "ordering"
)

// Sortable fields
const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldAmount    = "amount"
	FieldTitle     = "title"
)

var orderable = map[string]bool{
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
	FieldAmount:    true,
	FieldTitle:     true,
}

// DefaultOrdering is used when the caller does not ask for one
var DefaultOrdering = []models.OrderField{{Field: FieldCreatedAt, Desc: true}}

// Orderable reports whether field may appear in an ordering
func Orderable(field string) bool {
	return orderable[field]
}

// Parse reads the allow-listed parameters from values. Anything it does not
// recognize, including malformed filter values, is ignored.
func Parse(values url.Values) models.TransactionQuery {
	var q models.TransactionQuery

	if v := values.Get(ParamTransactionType); v != "" {
		t := models.TransactionType(v)
		q.TransactionType = &t
	}
	if v := values.Get(ParamTaxType); v != "" {
		t := models.TaxType(v)
		q.TaxType = &t
	}
	q.CreatedAt = parseTime(values.Get(ParamCreatedAt))
	q.UpdatedAt = parseTime(values.Get(ParamUpdatedAt))
	q.Search = strings.TrimSpace(values.Get(ParamSearch))
	q.Ordering = parseOrdering(values.Get(ParamOrdering))

	return q
}

func parseTime(v string) *models.TimeFilter {
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return &models.TimeFilter{At: t}
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return &models.TimeFilter{At: t, WholeDay: true}
	}
	return nil
}

func parseOrdering(v string) []models.OrderField {
	var out []models.OrderField
	seen := map[string]bool{}
	for _, term := range strings.Split(v, ",") {
		term = strings.TrimSpace(term)
		desc := strings.HasPrefix(term, "-")
		name := strings.TrimPrefix(term, "-")
		if !orderable[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, models.OrderField{Field: name, Desc: desc})
	}
	return out
}

// SearchTerms splits a search value on whitespace and commas. Every term must
// match the title or the description.
func SearchTerms(search string) []string {
	search = strings.ReplaceAll(search, "\x00", "")
	return strings.FieldsFunc(search, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// Ordering returns the query's ordering or the default one
func Ordering(q models.TransactionQuery) []models.OrderField {
	if len(q.Ordering) == 0 {
		return DefaultOrdering
	}
	return q.Ordering
}

// Match reports whether tx passes every filter of q, owner scope included
func Match(tx *models.Transaction, q models.TransactionQuery) bool {
	if q.OwnerID != nil && tx.OwnerID != *q.OwnerID {
		return false
	}
	if q.TransactionType != nil && tx.TransactionType != *q.TransactionType {
		return false
	}
	if q.TaxType != nil && tx.TaxType != *q.TaxType {
		return false
	}
	if q.CreatedAt != nil && !q.CreatedAt.Match(tx.CreatedAt) {
		return false
	}
	if q.UpdatedAt != nil && !q.UpdatedAt.Match(tx.UpdatedAt) {
		return false
	}
	if terms := SearchTerms(q.Search); len(terms) > 0 {
		title := strings.ToLower(tx.Title)
		desc := ""
		if tx.Description != nil {
			desc = strings.ToLower(*tx.Description)
		}
		for _, term := range terms {
			needle := strings.ToLower(term)
			if !strings.Contains(title, needle) && !strings.Contains(desc, needle) {
				return false
			}
		}
	}
	return true
}

// Apply filters and sorts txs. It returns the number of matches before
// Limit/Offset are applied, and the requested window.
func Apply(txs []models.Transaction, q models.TransactionQuery) (int, []models.Transaction) {
	matched := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		if Match(&txs[i], q) {
			matched = append(matched, txs[i])
		}
	}

	Sort(matched, Ordering(q))

	count := len(matched)
	if q.Offset >= count {
		return count, []models.Transaction{}
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return count, matched
}

// Sort orders txs by the given fields, breaking ties by descending id
func Sort(txs []models.Transaction, ordering []models.OrderField) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := &txs[i], &txs[j]
		for _, o := range ordering {
			c := compare(a, b, o.Field)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return a.ID > b.ID
	})
}

func compare(a, b *models.Transaction, field string) int {
	switch field {
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case FieldAmount:
		return a.Amount.Cmp(b.Amount)
	case FieldTitle:
		return strings.Compare(a.Title, b.Title)
	}
	return 0
}
