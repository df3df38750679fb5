package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives the limiter without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(capacity int, window time.Duration) (*FixedWindow, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewFixedWindow(capacity, window)
	l.now = clock.Now
	return l, clock
}

func TestCheckAndRecordCapacity(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if d := l.CheckAndRecord("1.2.3.4"); !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	d := l.CheckAndRecord("1.2.3.4")
	if d.Allowed {
		t.Fatal("4th request allowed, want denied")
	}
	if d.ResetAt.IsZero() {
		t.Error("denied decision has zero ResetAt")
	}
}

func TestDeniedRequestDoesNotConsumeCapacity(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.CheckAndRecord("1.2.3.4")
	}
	// Hammer the full window; none of these should extend or refill it
	for i := 0; i < 10; i++ {
		if d := l.CheckAndRecord("1.2.3.4"); d.Allowed {
			t.Fatalf("blocked attempt %d allowed", i+1)
		}
	}

	clock.Advance(time.Minute + time.Second)

	// The window elapsed despite the blocked attempts
	if d := l.CheckAndRecord("1.2.3.4"); !d.Allowed {
		t.Error("request after window expiry denied, want allowed")
	}
}

func TestWindowResetStartsFreshCount(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.CheckAndRecord("1.2.3.4")
	}
	clock.Advance(2 * time.Minute)

	// A full fresh budget, not one carried over
	for i := 0; i < 3; i++ {
		if d := l.CheckAndRecord("1.2.3.4"); !d.Allowed {
			t.Fatalf("request %d in fresh window denied", i+1)
		}
	}
	if d := l.CheckAndRecord("1.2.3.4"); d.Allowed {
		t.Error("4th request in fresh window allowed, want denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if d := l.CheckAndRecord("1.1.1.1"); !d.Allowed {
		t.Fatal("first key denied")
	}
	if d := l.CheckAndRecord("2.2.2.2"); !d.Allowed {
		t.Error("second key denied, want independent budget")
	}
	if d := l.CheckAndRecord("1.1.1.1"); d.Allowed {
		t.Error("first key over budget allowed")
	}
}

func TestResetAtReportsWindowExpiry(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	start := clock.Now()
	l.CheckAndRecord("1.2.3.4")

	clock.Advance(20 * time.Second)
	d := l.CheckAndRecord("1.2.3.4")
	if d.Allowed {
		t.Fatal("second request allowed, want denied")
	}
	if want := start.Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	l, _ := newTestLimiter(50, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.CheckAndRecord("shared").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for a := range allowed {
		if a {
			count++
		}
	}
	if count != 50 {
		t.Errorf("allowed %d of 100 concurrent requests, want exactly 50", count)
	}
}
