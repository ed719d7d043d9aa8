// Package nasaapi provides the shared HTTP client for all NASA upstream
// APIs: rate limited per provider, with bounded exponential-backoff retry
// and an optional TTL response cache.
package nasaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/apierror"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/metrics"
	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/ratelimit"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024 // NASA responses are small; 10 MB is generous.

// AttemptPolicy bounds the retry loop for one logical request.
type AttemptPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter is the fraction of the computed delay added as random noise,
	// e.g. 0.2 adds up to 20%.
	Jitter float64
}

// Config holds the static client configuration.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Policy       AttemptPolicy
	CacheTTL     time.Duration // 0 disables the response cache
	MaxBodyBytes int64
}

// Client performs rate-limited, retrying GET requests against the NASA APIs.
// Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *responseCache
	logger     *slog.Logger
}

// NewClient creates a Client. The limiter is shared with all other adapters
// so the combined traffic stays under the per-provider budgets.
func NewClient(cfg Config, limiter *ratelimit.Limiter, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = 3
	}
	if cfg.Policy.BaseDelay <= 0 {
		cfg.Policy.BaseDelay = time.Second
	}
	if cfg.Policy.Multiplier < 1 {
		cfg.Policy.Multiplier = 2
	}
	if cfg.Policy.MaxDelay <= 0 {
		cfg.Policy.MaxDelay = 30 * time.Second
	}

	var cache *responseCache
	if cfg.CacheTTL > 0 {
		cache = newResponseCache(cfg.CacheTTL)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		cache:   cache,
		logger:  logger,
	}
}

// outcome classifies a single attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeFatal
)

// Get performs one logical GET against the given provider and path,
// retrying transient failures per the attempt policy. Every attempt
// re-acquires a rate-limit slot: a retry is a new request from the
// provider's perspective.
func (c *Client) Get(ctx context.Context, provider, path string, query url.Values) ([]byte, error) {
	const op = "nasaapi.Get"

	reqURL, err := c.buildURL(path, query)
	if err != nil {
		return nil, apierror.E(apierror.KindInvalidArgument, op, err)
	}

	if c.cache != nil {
		if body, ok := c.cache.get(reqURL); ok {
			return body, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.Policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.IncUpstreamRetry(provider)
			if err := c.waitBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Acquire(ctx, provider); err != nil {
			return nil, err
		}

		body, res, err := c.doOnce(ctx, provider, reqURL)
		switch res {
		case outcomeSuccess:
			if c.cache != nil {
				c.cache.put(reqURL, body)
			}
			return body, nil
		case outcomeFatal:
			return nil, apierror.E(apierror.KindUpstreamRejected, op, err)
		case outcomeRetryable:
			if ctx.Err() != nil {
				return nil, apierror.E(apierror.KindCancelled, op, ctx.Err())
			}
			lastErr = err
			c.logger.Warn("upstream request failed, will retry",
				"component", "nasaapi",
				"provider", provider,
				"attempt", attempt+1,
				"max_attempts", c.cfg.Policy.MaxAttempts,
				"error", err,
			)
		}
	}

	return nil, apierror.Errorf(apierror.KindUpstreamTransient, op,
		"%d attempts exhausted for %s: %w", c.cfg.Policy.MaxAttempts, provider, lastErr)
}

// GetJSON performs Get and decodes the response into v. A body that does not
// decode into the expected shape fails closed without retrying.
func (c *Client) GetJSON(ctx context.Context, provider, path string, query url.Values, v any) error {
	body, err := c.Get(ctx, provider, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apierror.Errorf(apierror.KindUpstreamRejected, "nasaapi.GetJSON",
			"malformed %s response body: %w", provider, err)
	}
	return nil
}

// doOnce issues a single HTTP request and classifies the result.
func (c *Client) doOnce(ctx context.Context, provider, reqURL string) ([]byte, outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, outcomeFatal, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstreamRequest(provider, "network_error", time.Since(start))
		return nil, outcomeRetryable, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.ObserveUpstreamRequest(provider, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := c.readBody(resp.Body)
		if err != nil {
			return nil, outcomeFatal, err
		}
		return body, outcomeSuccess, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, outcomeRetryable, fmt.Errorf("rate limited by upstream (status %d)", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, outcomeRetryable, fmt.Errorf("upstream error (status %d)", resp.StatusCode)
	default:
		return nil, outcomeFatal, fmt.Errorf("upstream rejected request (status %d)", resp.StatusCode)
	}
}

// readBody reads at most MaxBodyBytes; larger responses error out instead of
// consuming unbounded memory.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", c.cfg.MaxBodyBytes)
	}
	return body, nil
}

// waitBackoff sleeps base * multiplier^(attempt-1) plus jitter, capped at
// MaxDelay. Returns Cancelled if ctx expires first.
func (c *Client) waitBackoff(ctx context.Context, attempt int) error {
	p := c.cfg.Policy
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return apierror.E(apierror.KindCancelled, "nasaapi.Get", ctx.Err())
	}
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u = u.JoinPath(path)

	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
