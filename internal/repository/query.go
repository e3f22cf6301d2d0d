package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/expense-service/internal/filter"
	"github.com/Dan9191/expense-service/internal/models"
)

// column expressions of the orderable fields; anything else never reaches SQL.
// Titles compare bytewise so the order matches the in-memory sort.
var orderColumns = map[string]string{
	filter.FieldCreatedAt: "created_at",
	filter.FieldUpdatedAt: "updated_at",
	filter.FieldAmount:    "amount",
	filter.FieldTitle:     `title COLLATE "C"`,
}

func whereClause(q models.TransactionQuery) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.OwnerID != nil {
		conds = append(conds, "user_id = "+arg(*q.OwnerID))
	}
	if q.TransactionType != nil {
		conds = append(conds, "transaction_type = "+arg(string(*q.TransactionType)))
	}
	if q.TaxType != nil {
		conds = append(conds, "tax_type = "+arg(string(*q.TaxType)))
	}
	if q.CreatedAt != nil {
		conds = append(conds, timeCond("created_at", *q.CreatedAt, arg))
	}
	if q.UpdatedAt != nil {
		conds = append(conds, timeCond("updated_at", *q.UpdatedAt, arg))
	}
	for _, term := range filter.SearchTerms(q.Search) {
		p := arg("%" + escapeLike(term) + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func timeCond(column string, f models.TimeFilter, arg func(any) string) string {
	if f.WholeDay {
		start := f.At.UTC().Truncate(24 * time.Hour)
		return fmt.Sprintf("(%s >= %s AND %s < %s)", column, arg(start), column, arg(start.Add(24*time.Hour)))
	}
	return fmt.Sprintf("%s = %s", column, arg(f.At))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func orderClause(q models.TransactionQuery) string {
	var terms []string
	for _, o := range filter.Ordering(q) {
		col, ok := orderColumns[o.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	terms = append(terms, "id DESC")
	return " ORDER BY " + strings.Join(terms, ", ")
}

func limitClause(q models.TransactionQuery) string {
	var b strings.Builder
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String()
}
