package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/expense-service/internal/middleware"
	"github.com/Dan9191/expense-service/internal/ratelimit"
	"github.com/Dan9191/expense-service/internal/service"
)

// Options configures the HTTP surface
type Options struct {
	PageSize int
	AnonRate ratelimit.Rate
	UserRate ratelimit.Rate
}

type Handler struct {
	svc      *service.Service
	log      *logrus.Logger
	pageSize int
	anon     *ratelimit.Limiter
	user     *ratelimit.Limiter
}

func NewHandler(svc *service.Service, log *logrus.Logger, opts Options) *Handler {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &Handler{
		svc:      svc,
		log:      log,
		pageSize: opts.PageSize,
		anon:     ratelimit.NewLimiter(opts.AnonRate),
		user:     ratelimit.NewLimiter(opts.UserRate),
	}
}

// Router wires every route with its middleware chain
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(h.log))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Protected routes
	expenses := r.PathPrefix("/api/expenses").Subrouter()
	expenses.Use(middleware.AuthMiddleware(h.svc, h.log))
	expenses.Use(middleware.Throttle("user", h.user))
	expenses.HandleFunc("", h.ListTransactions).Methods(http.MethodGet)
	expenses.HandleFunc("", h.CreateTransaction).Methods(http.MethodPost)
	expenses.HandleFunc("/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet)
	expenses.HandleFunc("/{id:[0-9]+}", h.UpdateTransaction).Methods(http.MethodPut)
	expenses.HandleFunc("/{id:[0-9]+}", h.PatchTransaction).Methods(http.MethodPatch)
	expenses.HandleFunc("/{id:[0-9]+}", h.DeleteTransaction).Methods(http.MethodDelete)

	// Public routes
	public := r.PathPrefix("/api").Subrouter()
	public.Use(middleware.Throttle("anon", h.anon))
	public.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	public.HandleFunc("/token", h.Login).Methods(http.MethodPost)
	public.HandleFunc("/token/refresh", h.RefreshToken).Methods(http.MethodPost)

	return r
}

type registerResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// optionalString decodes a field that may be absent; non-strings count as absent
func optionalString(fields map[string]json.RawMessage, name string) *string {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	s, ok := decodeString(raw)
	if !ok {
		return nil
	}
	return &s
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.Credentials{
		Username: optionalString(fields, "username"),
		Password: optionalString(fields, "password"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Username: user.Username})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	username, password := optionalString(fields, "username"), optionalString(fields, "password")
	if err := requireFields(map[string]*string{"username": username, "password": password}); err != nil {
		h.writeError(w, r, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), *username, *password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// RefreshToken exchanges a refresh token for a new access token
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	refresh := optionalString(fields, "refresh")
	if err := requireFields(map[string]*string{"refresh": refresh}); err != nil {
		h.writeError(w, r, err)
		return
	}

	access, err := h.svc.Refresh(r.Context(), *refresh)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}
