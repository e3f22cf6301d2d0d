package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes income from expense records
type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

// TaxType controls how Tax is combined with Amount
type TaxType string

const (
	TaxFlat       TaxType = "flat"
	TaxPercentage TaxType = "percentage"
)

// Valid reports whether t is one of the known tax types
func (t TaxType) Valid() bool {
	return t == TaxFlat || t == TaxPercentage
}

var hundred = decimal.NewFromInt(100)

// Transaction represents an expense or income record owned by a single user
type Transaction struct {
	ID              int64           `json:"id"`
	OwnerID         int64           `json:"owner_id"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	Tax             decimal.Decimal `json:"tax"`
	TaxType         TaxType         `json:"tax_type"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Total returns the tax-inclusive value of the transaction
func (t *Transaction) Total() decimal.Decimal {
	return Total(&t.Amount, &t.Tax, t.TaxType)
}

// Fields returns the writable part of the transaction
func (t *Transaction) Fields() TransactionFields {
	return TransactionFields{
		Title:           t.Title,
		Description:     t.Description,
		Amount:          t.Amount,
		TransactionType: t.TransactionType,
		Tax:             t.Tax,
		TaxType:         t.TaxType,
	}
}

// Total combines amount and tax according to taxType.
// Nil values count as zero. An unknown tax type leaves the amount untouched.
func Total(amount, tax *decimal.Decimal, taxType TaxType) decimal.Decimal {
	a, x := decimal.Zero, decimal.Zero
	if amount != nil {
		a = *amount
	}
	if tax != nil {
		x = *tax
	}

	switch taxType {
	case TaxFlat:
		return a.Add(x)
	case TaxPercentage:
		return a.Add(a.Mul(x).Div(hundred))
	}
	return a
}
