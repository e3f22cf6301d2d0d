package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/expense-service/internal/models"
	"github.com/Dan9191/expense-service/internal/ratelimit"
)

type fakeAuthenticator map[string]*models.User

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// echoUser reports the caller in a header
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u := UserFromContext(r.Context()); u != nil {
		w.Header().Set("X-User", u.Username)
	}
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	authn := fakeAuthenticator{"good": {ID: 1, Username: "alice"}}
	h := AuthMiddleware(authn, quietLogger())(echoUser)

	tests := []struct {
		name     string
		header   string
		status   int
		wantUser string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid token", "Bearer good", http.StatusOK, "alice"},
		{"lowercase scheme", "bearer good", http.StatusOK, "alice"},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"missing token", "Bearer", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("X-User"); got != tt.wantUser {
				t.Errorf("user = %q, want %q", got, tt.wantUser)
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("propagated id = %q, want abc-123", seen)
	}
}

func TestThrottleKeys(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Rate{Requests: 1, Period: time.Hour})
	h := Throttle("test", limiter)(echoUser)

	send := func(remote string, user *models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if user != nil {
			req = req.WithContext(WithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("10.0.0.1:1000", nil); rec.Code != http.StatusOK {
		t.Fatalf("first anonymous request: %d", rec.Code)
	}
	rec := send("10.0.0.1:2000", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same address: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec := send("10.0.0.2:1000", nil); rec.Code != http.StatusOK {
		t.Errorf("other address throttled: %d", rec.Code)
	}
	// Authenticated callers get their own bucket regardless of address
	if rec := send("10.0.0.1:3000", &models.User{ID: 9}); rec.Code != http.StatusOK {
		t.Errorf("authenticated caller throttled by address: %d", rec.Code)
	}
}

func TestLoggingUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Logging(quietLogger()))
	var route string
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		route = routeName(req)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if route != "/items/{id}" {
		t.Errorf("route = %q", route)
	}
}
