package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/expense-service/internal/config"
	"github.com/Dan9191/expense-service/internal/repository"
	"github.com/Dan9191/expense-service/internal/service"
)

func TestOpenStoreMemory(t *testing.T) {
	store, closeStore, err := OpenStore(context.Background(), &config.Config{Storage: config.StorageMemory})
	if err != nil {
		t.Fatal(err)
	}
	defer closeStore()
	if _, ok := store.(*repository.Memory); !ok {
		t.Fatalf("store = %T, want *repository.Memory", store)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate: %v", err)
	}
}

func TestOpenCacheDisabledWithoutAddress(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c, closeCache := OpenCache(context.Background(), &config.Config{}, log)
	if c != nil {
		t.Errorf("cache = %T, want nil", c)
	}
	if err := closeCache(); err != nil {
		t.Error(err)
	}
}

func TestNewServiceWiresTokens(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
	svc := NewService(cfg, repository.NewMemory(), nil, log)

	name, pass := "alice", "pw"
	if _, err := svc.Register(context.Background(), service.Credentials{Username: &name, Password: &pass}); err != nil {
		t.Fatal(err)
	}
	pair, err := svc.Login(context.Background(), name, pass)
	if err != nil {
		t.Fatal(err)
	}
	if u, err := svc.Authenticate(context.Background(), pair.Access); err != nil || u.Username != name {
		t.Errorf("Authenticate = %v, %v", u, err)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	if got := NewLogger("nonsense").GetLevel(); got != logrus.InfoLevel {
		t.Errorf("level = %v", got)
	}
	if got := NewLogger("DEBUG").GetLevel(); got != logrus.DebugLevel {
		t.Errorf("level = %v", got)
	}
}
