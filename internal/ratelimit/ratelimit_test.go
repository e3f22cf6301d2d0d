package ratelimit

import (
	"testing"
	"time"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    Rate
		wantErr bool
	}{
		{"10/minute", Rate{10, time.Minute}, false},
		{"5/s", Rate{5, time.Second}, false},
		{"100/hour", Rate{100, time.Hour}, false},
		{"1000/day", Rate{1000, 24 * time.Hour}, false},
		{"10", Rate{}, true},
		{"0/minute", Rate{}, true},
		{"x/minute", Rate{}, true},
		{"10/", Rate{}, true},
		{"10/week", Rate{}, true},
	}
	for _, tt := range tests {
		got, err := ParseRate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRate(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestLimiterPerKey(t *testing.T) {
	l := NewLimiter(Rate{Requests: 2, Period: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("a"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	ok, wait := l.Allow("a")
	if ok {
		t.Fatal("third request allowed")
	}
	if wait <= 0 || wait > 30*time.Second {
		t.Errorf("wait = %v, want (0, 30s]", wait)
	}
	if ok, _ := l.Allow("b"); !ok {
		t.Fatal("other key throttled")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := l.Allow("a"); !ok {
		t.Fatal("token not refilled after 30s")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	if got := RetryAfterSeconds(200 * time.Millisecond); got != 1 {
		t.Errorf("200ms -> %d", got)
	}
	if got := RetryAfterSeconds(2500 * time.Millisecond); got != 3 {
		t.Errorf("2.5s -> %d", got)
	}
}
