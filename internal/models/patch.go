package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionPatch holds the fields present in a create or update request.
// A nil pointer means the field was not sent. Description may legitimately
// be set to null, so its presence is tracked separately.
type TransactionPatch struct {
	Title           *string
	Description     *string
	DescriptionSet  bool
	Amount          *decimal.Decimal
	TransactionType *TransactionType
	Tax             *decimal.Decimal
	TaxType         *TaxType
}

// Apply merges the patch onto base. Unless partial is set, title, amount and
// transaction_type must be present. Text fields are trimmed, then the merged
// fields are validated.
func (p TransactionPatch) Apply(base TransactionFields, partial bool) (TransactionFields, error) {
	if !partial {
		verr := NewValidationError()
		if p.Title == nil {
			verr.Add("title", MsgRequired)
		}
		if p.Amount == nil {
			verr.Add("amount", MsgRequired)
		}
		if p.TransactionType == nil {
			verr.Add("transaction_type", MsgRequired)
		}
		if !verr.Empty() {
			return base, verr
		}
	}

	out := base
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.DescriptionSet {
		out.Description = nil
		if p.Description != nil {
			desc := strings.TrimSpace(*p.Description)
			out.Description = &desc
		}
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.TransactionType != nil {
		out.TransactionType = *p.TransactionType
	}
	if p.Tax != nil {
		out.Tax = *p.Tax
	}
	if p.TaxType != nil {
		out.TaxType = *p.TaxType
	}

	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}
