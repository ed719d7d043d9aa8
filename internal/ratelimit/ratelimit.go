// Package ratelimit enforces per-provider request budgets against the NASA
// APIs. Each provider gets an independent token bucket whose refill interval
// is Window/MaxPerWindow, so slots free up continuously rather than in a
// burst at window boundaries. Acquire blocks until a slot is available; it
// never rejects outright.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/metrics"
)

// Budget configures the rolling request budget for one provider.
type Budget struct {
	Provider     string
	MaxPerWindow int
	Window       time.Duration
	// Burst is how many slots may be consumed back to back before pacing
	// kicks in. At the default of 1 no rolling window can ever see more
	// than MaxPerWindow requests.
	Burst int
}

// Limiter tracks budgets for all providers. Safe for concurrent use; it is
// the single shared mutable resource between all adapters.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	budgets  map[string]Budget
	fallback Budget
	logger   *slog.Logger
}

// NewLimiter creates a Limiter with the given per-provider budgets. The
// fallback budget applies to providers without an explicit entry.
func NewLimiter(budgets []Budget, fallback Budget, logger *slog.Logger) *Limiter {
	byProvider := make(map[string]Budget, len(budgets))
	for _, b := range budgets {
		byProvider[b.Provider] = b
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		budgets:  byProvider,
		fallback: fallback,
		logger:   logger,
	}
}

// Acquire blocks until a request slot is available for the provider, then
// reserves it. The slot stays consumed even if the request later fails; the
// limiter protects the upstream service, not local budget efficiency.
// Cancellation of ctx returns a Cancelled error.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	lim := l.limiterFor(provider)

	start := time.Now()
	if err := lim.Wait(ctx); err != nil {
		return apierror.E(apierror.KindCancelled, "ratelimit.Acquire", err)
	}
	wait := time.Since(start)

	metrics.ObserveRateLimitWait(provider, wait)
	if wait > time.Second {
		l.logger.Debug("rate limit wait",
			"component", "ratelimit",
			"provider", provider,
			"wait_ms", wait.Milliseconds(),
		)
	}
	return nil
}

func (l *Limiter) limiterFor(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[provider]; ok {
		return lim
	}

	b, ok := l.budgets[provider]
	if !ok {
		b = l.fallback
		b.Provider = provider
	}
	if b.MaxPerWindow <= 0 {
		b.MaxPerWindow = 1
	}
	if b.Window <= 0 {
		b.Window = time.Hour
	}
	if b.Burst <= 0 {
		b.Burst = 1
	}

	interval := b.Window / time.Duration(b.MaxPerWindow)
	lim := rate.NewLimiter(rate.Every(interval), b.Burst)
	l.limiters[provider] = lim

	l.logger.Info("provider budget initialized",
		"component", "ratelimit",
		"provider", provider,
		"max_per_window", b.MaxPerWindow,
		"window_seconds", b.Window.Seconds(),
		"burst", b.Burst,
	)
	return lim
}
