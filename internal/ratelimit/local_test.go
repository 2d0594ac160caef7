package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLocalCounter_WindowLimit(t *testing.T) {
	c := NewLocalCounter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		res, err := c.Check(ctx, "login:1.2.3.4", 30, time.Minute, 1)
		if err != nil {
			t.Fatalf("check %d failed: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d denied inside the limit", i+1)
		}
		if res.Remaining != 30-(i+1) {
			t.Errorf("request %d: remaining = %d, want %d", i+1, res.Remaining, 30-(i+1))
		}
	}

	res, err := c.Check(ctx, "login:1.2.3.4", 30, time.Minute, 1)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("31st request in the window should be denied")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("denial should carry a positive retry-after, got %v", res.RetryAfter)
	}
}

func TestLocalCounter_WindowResets(t *testing.T) {
	c := NewLocalCounter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := c.Check(ctx, "k", 5, time.Minute, 1); err != nil {
			t.Fatalf("check failed: %v", err)
		}
	}
	res, _ := c.Check(ctx, "k", 5, time.Minute, 1)
	if res.Allowed {
		t.Fatal("expected denial at the limit")
	}

	now = now.Add(time.Minute)

	res, err := c.Check(ctx, "k", 5, time.Minute, 1)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected a fresh window after reset")
	}
	if res.Remaining != 4 {
		t.Errorf("remaining = %d, want 4", res.Remaining)
	}
}

func TestLocalCounter_Cost(t *testing.T) {
	c := NewLocalCounter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	res, err := c.Check(ctx, "k", 10, time.Minute, 7)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 3 {
		t.Fatalf("cost 7 of 10: allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}

	// A cost that would overshoot is denied without consuming.
	res, err = c.Check(ctx, "k", 10, time.Minute, 7)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected overshooting cost to be denied")
	}

	res, err = c.Check(ctx, "k", 10, time.Minute, 3)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 0 {
		t.Errorf("expected the remaining budget to still fit cost 3, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestLocalCounter_KeysIsolated(t *testing.T) {
	c := NewLocalCounter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Check(ctx, "a", 3, time.Minute, 1); err != nil {
			t.Fatalf("check failed: %v", err)
		}
	}

	res, err := c.Check(ctx, "b", 3, time.Minute, 1)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Errorf("key b should have its own window, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}
