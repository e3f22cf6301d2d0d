package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/expense-service/internal/models"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, 0), mr
}

func snapshot() []models.Transaction {
	note := "weekly shop"
	created := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.UTC)
	return []models.Transaction{
		{
			ID: 2, OwnerID: 7, Title: "Groceries", Description: &note,
			Amount: decimal.RequireFromString("42.50"), TransactionType: models.Debit,
			Tax: decimal.RequireFromString("7.5"), TaxType: models.TaxPercentage,
			CreatedAt: created, UpdatedAt: created.Add(time.Nanosecond),
		},
		{
			ID: 1, OwnerID: 7, Title: "Salary",
			Amount: decimal.RequireFromString("1000.01"), TransactionType: models.Credit,
			Tax: decimal.Zero, TaxType: models.TaxFlat,
			CreatedAt: created.Add(-time.Hour), UpdatedAt: created.Add(-time.Hour),
		},
	}
}

func TestKey(t *testing.T) {
	if got := Key(17); got != "expenses_user_17" {
		t.Fatalf("Key(17) = %q", got)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, 7); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v, want miss", ok, err)
	}

	want := snapshot()
	if err := c.Set(ctx, 7, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL(Key(7)); ttl != DefaultTTL {
		t.Errorf("TTL = %v, want %v", ttl, DefaultTTL)
	}

	got, ok, err := c.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.OwnerID != w.OwnerID || g.Title != w.Title ||
			g.TransactionType != w.TransactionType || g.TaxType != w.TaxType {
			t.Errorf("[%d] = %+v, want %+v", i, g, w)
		}
		if !g.Amount.Equal(w.Amount) || !g.Tax.Equal(w.Tax) {
			t.Errorf("[%d] money = %s/%s, want %s/%s", i, g.Amount, g.Tax, w.Amount, w.Tax)
		}
		if !g.CreatedAt.Equal(w.CreatedAt) || !g.UpdatedAt.Equal(w.UpdatedAt) {
			t.Errorf("[%d] timestamps = %v/%v, want %v/%v", i, g.CreatedAt, g.UpdatedAt, w.CreatedAt, w.UpdatedAt)
		}
	}
	if got[0].Description == nil || *got[0].Description != "weekly shop" {
		t.Errorf("description = %v", got[0].Description)
	}
	if got[1].Description != nil {
		t.Errorf("nil description came back as %q", *got[1].Description)
	}

	if _, ok, _ := c.Get(ctx, 8); ok {
		t.Error("snapshots leak between owners")
	}
}

func TestRedisEmptySnapshotIsAHit(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()

	if err := c.Set(ctx, 3, []models.Transaction{}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, 3)
	if err != nil || !ok || len(got) != 0 {
		t.Errorf("Get = %v, %v, %v; want empty hit", got, ok, err)
	}
}

func TestRedisInvalidate(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	if err := c.Set(ctx, 7, snapshot()); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, 8, snapshot()); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx, 7); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if mr.Exists(Key(7)) {
		t.Error("key still present after Invalidate")
	}
	if _, ok, err := c.Get(ctx, 7); ok || err != nil {
		t.Errorf("after Invalidate: ok=%v err=%v, want miss", ok, err)
	}
	if !mr.Exists(Key(8)) {
		t.Error("Invalidate removed another owner's snapshot")
	}

	if err := c.Invalidate(ctx, 99); err != nil {
		t.Errorf("Invalidate of a missing key: %v", err)
	}
}

func TestRedisExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c := NewRedis(client, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, 7, snapshot()); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(Key(7)); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, err := c.Get(ctx, 7); ok || err != nil {
		t.Errorf("expired entry: ok=%v err=%v, want miss", ok, err)
	}
}

func TestRedisErrors(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	if err := mr.Set(Key(5), "not json"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, 5); err == nil || ok {
		t.Errorf("corrupt snapshot: ok=%v err=%v, want error", ok, err)
	}

	mr.Close()
	if _, _, err := c.Get(ctx, 7); err == nil {
		t.Error("Get against a stopped server should fail")
	}
	if err := c.Set(ctx, 7, snapshot()); err == nil {
		t.Error("Set against a stopped server should fail")
	}
	if err := c.Invalidate(ctx, 7); err == nil {
		t.Error("Invalidate against a stopped server should fail")
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Connect(ctx, addr, "", 0); err == nil {
		t.Fatal("Connect to a stopped server succeeded")
	}
}
