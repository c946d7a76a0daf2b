package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *FixedWindowLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", limit, window)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	return l
}

func TestFixedWindowAllowsWithinLimit(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d blocked within limit", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("request over limit allowed")
	}
}

func TestFixedWindowIsolatesKeys(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Fatal("first request blocked")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second request for same key allowed")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatal("other key blocked by unrelated traffic")
	}
}

func TestFixedWindowNilLimiterAllowsAll(t *testing.T) {
	var l *FixedWindowLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow("anyone") {
			t.Fatal("nil limiter must allow everything")
		}
	}
}

func TestFixedWindowFailsClosedWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(mr.Addr(), "", "", 10, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisFixedWindowLimiter: %v", err)
	}
	mr.Close()
	if l.Allow("1.2.3.4") {
		t.Fatal("limiter must fail closed when redis is unreachable")
	}
}

func TestNewLimiterValidation(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Minute); err == nil {
		t.Fatal("zero limit accepted")
	}
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 10, 0); err == nil {
		t.Fatal("zero window accepted")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 10, time.Minute); err == nil {
		t.Fatal("empty addr accepted")
	}
}
