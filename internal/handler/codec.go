package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dan9191/expense-service/internal/models"
)

const (
	maxBodyBytes     = 1 << 20
	maxDecimalLength = 1000
)

// transactionResponse is the wire form of a transaction; the owner is never exposed
type transactionResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description"`
	Amount          string    `json:"amount"`
	TransactionType string    `json:"transaction_type"`
	Tax             string    `json:"tax"`
	TaxType         string    `json:"tax_type"`
	Total           string    `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newTransactionResponse(tx *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		Title:           tx.Title,
		Description:     tx.Description,
		Amount:          formatMoney(tx.Amount),
		TransactionType: string(tx.TransactionType),
		Tax:             formatMoney(tx.Tax),
		TaxType:         string(tx.TaxType),
		Total:           formatMoney(tx.Total()),
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

// formatMoney renders at least two decimal places and keeps any further
// significant ones, so a percentage tax is never rounded away
func formatMoney(d decimal.Decimal) string {
	places := int32(2)
	for !d.Equal(d.Truncate(places)) {
		places++
	}
	return d.StringFixed(places)
}

// decodeObject reads a JSON object or a url-encoded form into raw field values
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && err != http.ErrNotMultipart {
			return nil, badRequest("Malformed form body.")
		}
		out := map[string]json.RawMessage{}
		for key, values := range r.PostForm {
			if len(values) == 0 {
				continue
			}
			raw, _ := json.Marshal(values[len(values)-1])
			out[key] = raw
		}
		return out, nil
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		return nil, badRequest("Request body too large or unreadable.")
	}
	if strings.TrimSpace(body.String()) == "" {
		return map[string]json.RawMessage{}, nil
	}

	var v any
	if err := json.Unmarshal(body.Bytes(), &v); err != nil {
		return nil, badRequest(fmt.Sprintf("JSON parse error - %v", err))
	}
	if _, ok := v.(map[string]any); !ok {
		verr := models.NewValidationError()
		verr.Add("non_field_errors", fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonKind(v)))
		return nil, verr
	}

	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(body.Bytes(), &out); err != nil {
		return nil, badRequest(fmt.Sprintf("JSON parse error - %v", err))
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "list"
	case string:
		return "str"
	case float64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	}
	return "value"
}

// badRequestError is a body that could not be decoded at all
type badRequestError struct{ detail string }

func (e *badRequestError) Error() string { return e.detail }

func badRequest(detail string) error { return &badRequestError{detail: detail} }

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeDecimal accepts a JSON number or a numeric string. On failure it
// returns the field message.
func decodeDecimal(raw json.RawMessage) (decimal.Decimal, string) {
	text := strings.TrimSpace(string(raw))
	if s, ok := decodeString(raw); ok {
		text = strings.TrimSpace(s)
	}
	if len(text) > maxDecimalLength {
		return decimal.Zero, "String value too large."
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, models.MsgNumber
	}
	return d, ""
}

// decodeTransactionPatch converts raw fields into a patch. Unknown and
// read-only fields (id, owner, total, timestamps) are ignored.
func decodeTransactionPatch(fields map[string]json.RawMessage) (models.TransactionPatch, error) {
	var p models.TransactionPatch
	verr := models.NewValidationError()

	if raw, ok := fields["title"]; ok {
		if s, ok := decodeString(raw); ok {
			p.Title = &s
		} else if isNull(raw) {
			verr.Add("title", models.MsgNull)
		} else {
			verr.Add("title", models.MsgString)
		}
	}

	if raw, ok := fields["description"]; ok {
		p.DescriptionSet = true
		if s, ok := decodeString(raw); ok {
			p.Description = &s
		} else if !isNull(raw) {
			verr.Add("description", models.MsgString)
		}
	}

	for name, dst := range map[string]**decimal.Decimal{"amount": &p.Amount, "tax": &p.Tax} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if isNull(raw) {
			verr.Add(name, models.MsgNull)
			continue
		}
		d, msg := decodeDecimal(raw)
		if msg != "" {
			verr.Add(name, msg)
			continue
		}
		*dst = &d
	}

	if raw, ok := fields["transaction_type"]; ok {
		if isNull(raw) {
			verr.Add("transaction_type", models.MsgNull)
		} else {
			s, ok := decodeString(raw)
			if !ok {
				s = strings.TrimSpace(string(raw))
			}
			t := models.TransactionType(s)
			p.TransactionType = &t
		}
	}

	if raw, ok := fields["tax_type"]; ok {
		if isNull(raw) {
			verr.Add("tax_type", models.MsgNull)
		} else {
			s, ok := decodeString(raw)
			if !ok {
				s = strings.TrimSpace(string(raw))
			}
			t := models.TaxType(s)
			p.TaxType = &t
		}
	}

	if err := verr.OrNil(); err != nil {
		return p, err
	}
	return p, nil
}
