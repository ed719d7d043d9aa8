package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// TestRollingWindowCeiling verifies that under concurrent load the number of
// acquisitions admitted within any rolling window never exceeds the budget.
func TestRollingWindowCeiling(t *testing.T) {
	const (
		max    = 10
		window = 500 * time.Millisecond
	)

	l := NewLimiter([]Budget{
		{Provider: "neows", MaxPerWindow: max, Window: window, Burst: 1},
	}, Budget{}, testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var admitted []time.Time

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := l.Acquire(ctx, "neows"); err != nil {
					return // context expired, worker done
				}
				mu.Lock()
				admitted = append(admitted, time.Now())
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Slide a window over every admission and count how many others fall
	// inside it. Timer slop on loaded machines can admit one extra.
	for i, start := range admitted {
		count := 0
		for _, ts := range admitted[i:] {
			if ts.Sub(start) < window {
				count++
			}
		}
		if count > max+1 {
			t.Fatalf("window starting at %v admitted %d requests, budget is %d", start, count, max)
		}
	}
	if len(admitted) == 0 {
		t.Fatal("no requests admitted at all")
	}
}

// TestAcquireBlocksForSlot verifies pacing: with burst 1 the second acquire
// waits roughly one refill interval.
func TestAcquireBlocksForSlot(t *testing.T) {
	l := NewLimiter([]Budget{
		{Provider: "apod", MaxPerWindow: 10, Window: time.Second, Burst: 1},
	}, Budget{}, testLogger)

	ctx := context.Background()
	if err := l.Acquire(ctx, "apod"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	start := time.Now()
	if err := l.Acquire(ctx, "apod"); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if wait := time.Since(start); wait < 50*time.Millisecond {
		t.Errorf("second acquire returned after %v, expected a ~100ms pacing delay", wait)
	}
}

// TestAcquireCancellation verifies a blocked Acquire surfaces Cancelled.
func TestAcquireCancellation(t *testing.T) {
	l := NewLimiter([]Budget{
		{Provider: "marsrover", MaxPerWindow: 1, Window: time.Hour, Burst: 1},
	}, Budget{}, testLogger)

	if err := l.Acquire(context.Background(), "marsrover"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "marsrover")
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if kind := apierror.KindOf(err); kind != apierror.KindCancelled {
		t.Errorf("error kind = %v, want cancelled", kind)
	}
}

// TestFallbackBudget verifies unknown providers get the fallback budget
// instead of panicking or admitting unlimited traffic.
func TestFallbackBudget(t *testing.T) {
	l := NewLimiter(nil, Budget{MaxPerWindow: 100, Window: time.Second, Burst: 1}, testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Acquire(ctx, "something-new"); err != nil {
		t.Fatalf("acquire with fallback budget: %v", err)
	}
}

// TestIndependentProviders verifies one provider's exhausted budget does not
// block another provider.
func TestIndependentProviders(t *testing.T) {
	l := NewLimiter([]Budget{
		{Provider: "apod", MaxPerWindow: 1, Window: time.Hour, Burst: 1},
		{Provider: "neows", MaxPerWindow: 1000, Window: time.Second, Burst: 5},
	}, Budget{}, testLogger)

	ctx := context.Background()
	if err := l.Acquire(ctx, "apod"); err != nil {
		t.Fatalf("apod acquire: %v", err)
	}

	// apod is now exhausted for an hour; neows must still admit immediately.
	done := make(chan error, 1)
	go func() {
		done <- l.Acquire(ctx, "neows")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("neows acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("neows acquire blocked behind apod budget")
	}
}
