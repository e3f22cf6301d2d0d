package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Dan9191/expense-service/internal/filter"
	"github.com/Dan9191/expense-service/internal/middleware"
	"github.com/Dan9191/expense-service/internal/models"
	"github.com/Dan9191/expense-service/internal/service"
)

const pageParam = "page"

type listResponse struct {
	Count    int                   `json:"count"`
	Next     *string               `json:"next"`
	Previous *string               `json:"previous"`
	Results  []transactionResponse `json:"results"`
}

// requireFields reports every nil entry as a missing required field
func requireFields(fields map[string]*string) error {
	verr := models.NewValidationError()
	for name, v := range fields {
		if v == nil {
			verr.Add(name, models.MsgRequired)
		}
	}
	return verr.OrNil()
}

// transactionID reads the {id} route variable. Ids that overflow int64
// cannot exist and are reported as not found.
func transactionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, service.ErrNotFound
	}
	return id, nil
}

// pageURL returns the absolute URL of the current request with page replaced.
// Page 1 drops the parameter entirely.
func pageURL(r *http.Request, page int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := r.URL.Query()
	if page <= 1 {
		query.Del(pageParam)
	} else {
		query.Set(pageParam, strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: query.Encode()}
	s := u.String()
	return &s
}

// ListTransactions returns one page of the caller's visible transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get(pageParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = n
	}

	q := filter.Parse(r.URL.Query())
	q.Limit = h.pageSize
	q.Offset = (page - 1) * h.pageSize

	count, txs, err := h.svc.ListTransactions(r.Context(), middleware.UserFromContext(r.Context()), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if page > 1 && q.Offset >= count {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	resp := listResponse{Count: count, Results: make([]transactionResponse, 0, len(txs))}
	for i := range txs {
		resp.Results = append(resp.Results, newTransactionResponse(&txs[i]))
	}
	if q.Offset+len(txs) < count {
		resp.Next = pageURL(r, page+1)
	}
	if page > 1 {
		resp.Previous = pageURL(r, page-1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTransaction stores a new transaction owned by the caller
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		h.writeError(w, r, service.ErrUnauthenticated)
		return
	}

	fields, err := decodeObject(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	patch, err := decodeTransactionPatch(fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.svc.CreateTransaction(r.Context(), caller, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

// GetTransaction returns a single transaction
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.svc.GetTransaction(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// UpdateTransaction replaces every writable field (PUT)
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// PatchTransaction changes only the supplied fields (PATCH)
func (h *Handler) PatchTransaction(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	caller := middleware.UserFromContext(r.Context())
	if caller == nil {
		h.writeError(w, r, service.ErrUnauthenticated)
		return
	}
	id, err := transactionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fields, err := decodeObject(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	patch, err := decodeTransactionPatch(fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.svc.UpdateTransaction(r.Context(), caller, id, patch, partial)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

// DeleteTransaction removes a transaction
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.DeleteTransaction(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
