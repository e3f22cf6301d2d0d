package models

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	TitleMaxLength = 200
	moneyDigits    = 10
	moneyPlaces    = 2
)

// Field-level messages shared by the validation code paths
const (
	MsgRequired = "This field is required."
	MsgNull     = "This field may not be null."
	MsgBlank    = "This field may not be blank."
	MsgNumber   = "A valid number is required."
	MsgString   = "Not a valid string."
)

// ValidationError carries field-level messages for a rejected request
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty error ready for Add
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records msg against field
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field has been rejected
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns e when it holds messages and nil otherwise
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// TransactionFields is the client-writable part of a transaction
type TransactionFields struct {
	Title           string
	Description     *string
	Amount          decimal.Decimal
	TransactionType TransactionType
	Tax             decimal.Decimal
	TaxType         TaxType
}

// DefaultTransactionFields returns the values a new record starts from
func DefaultTransactionFields() TransactionFields {
	return TransactionFields{
		Tax:     decimal.Zero,
		TaxType: TaxFlat,
	}
}

// Validate checks field constraints and returns a *ValidationError on failure
func (f TransactionFields) Validate() error {
	verr := NewValidationError()

	if strings.TrimSpace(f.Title) == "" {
		verr.Add("title", MsgBlank)
	} else if utf8.RuneCountInString(f.Title) > TitleMaxLength {
		verr.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", TitleMaxLength))
	}
	if msg := checkMoney(f.Amount); msg != "" {
		verr.Add("amount", msg)
	}
	if !f.TransactionType.Valid() {
		verr.Add("transaction_type", fmt.Sprintf("%q is not a valid choice.", string(f.TransactionType)))
	}
	if msg := checkMoney(f.Tax); msg != "" {
		verr.Add("tax", msg)
	}
	if !f.TaxType.Valid() {
		verr.Add("tax_type", fmt.Sprintf("%q is not a valid choice.", string(f.TaxType)))
	}

	return verr.OrNil()
}

// checkMoney enforces a NUMERIC(10,2) column: ten digits, two after the point.
// Sign is not restricted. Digits are counted from the coefficient and the
// exponent, so the cost does not depend on the magnitude of the exponent.
func checkMoney(d decimal.Decimal) string {
	coef := new(big.Int).Abs(d.Coefficient())
	if coef.Sign() == 0 {
		return ""
	}

	// trailing zeros after the point do not count
	digits := coef.String()
	significant := strings.TrimRight(digits, "0")
	exp := int64(d.Exponent()) + int64(len(digits)-len(significant))

	places := int64(0)
	if exp < 0 {
		places = -exp
	}
	whole := int64(len(significant)) + exp
	if whole < 0 {
		whole = 0
	}

	if places > moneyPlaces {
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", moneyPlaces)
	}
	if whole+places > moneyDigits {
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", moneyDigits)
	}
	if whole > moneyDigits-moneyPlaces {
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", moneyDigits-moneyPlaces)
	}
	return ""
}
