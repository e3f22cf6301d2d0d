package models

import "time"

// OrderField is one term of an ORDER BY over the transaction columns
type OrderField struct {
	Field string
	Desc  bool
}

// TimeFilter matches a timestamp either to a calendar day (UTC) or to an exact instant
type TimeFilter struct {
	At       time.Time
	WholeDay bool
}

// Match reports whether t satisfies the filter
func (f TimeFilter) Match(t time.Time) bool {
	if f.WholeDay {
		start := f.At.UTC().Truncate(24 * time.Hour)
		u := t.UTC()
		return !u.Before(start) && u.Before(start.Add(24*time.Hour))
	}
	return t.Equal(f.At)
}

// TransactionQuery narrows and orders a set of transactions.
// OwnerID nil means every owner is visible.
type TransactionQuery struct {
	OwnerID         *int64
	TransactionType *TransactionType
	TaxType         *TaxType
	CreatedAt       *TimeFilter
	UpdatedAt       *TimeFilter
	Search          string
	Ordering        []OrderField
	Limit           int
	Offset          int
}

