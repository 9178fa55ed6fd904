package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabmine/internal/cache"
	"github.com/ppiankov/vocabmine/internal/model"
	"github.com/ppiankov/vocabmine/internal/util"
	"github.com/ppiankov/vocabmine/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids a fetch
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx HTTP response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Response is a fetched HTTP body with the metadata adapters need
type Response struct {
	Body         []byte `json:"body"`
	ContentType  string `json:"content_type"`
	FinalURL     string `json:"final_url"`
	LastModified string `json:"last_modified,omitempty"`
}

// HTTPFetcher performs GETs with caching, politeness and bounded retries.
// Every request carries the client timeout.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	maxBytes       int64
	attempts       int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	cache          cache.Cache
	cacheTTL       time.Duration
	limiter        *worker.Limiter
	robots         *util.RobotsChecker
	logger         zerolog.Logger
}

// HTTPOption customizes an HTTPFetcher
type HTTPOption func(*HTTPFetcher)

// WithCache stores successful responses in c for ttl
func WithCache(c cache.Cache, ttl time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLimiter throttles requests per host
func WithLimiter(l *worker.Limiter) HTTPOption {
	return func(f *HTTPFetcher) { f.limiter = l }
}

// WithRobots checks robots.txt before fetching pages
func WithRobots(r *util.RobotsChecker) HTTPOption {
	return func(f *HTTPFetcher) { f.robots = r }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(f *HTTPFetcher) { f.logger = l }
}

// WithBackoff sets the retry budget
func WithBackoff(attempts int, initial, max time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.attempts = attempts
		f.initialBackoff = initial
		f.maxBackoff = max
	}
}

// NewHTTPFetcher creates a fetcher from the HTTP configuration section
func NewHTTPFetcher(cfg model.HTTPConfig, opts ...HTTPOption) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &HTTPFetcher{
		client:         util.NewHTTPClient(timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		userAgent:      cfg.UserAgent,
		maxBytes:       maxBytes,
		attempts:       cfg.RetryAttempts,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     cfg.MaxBackoff,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.attempts <= 0 {
		f.attempts = 1
	}
	if f.maxBackoff <= 0 {
		f.maxBackoff = 10 * time.Second
	}
	return f
}

// Client exposes the underlying HTTP client
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Get fetches rawURL. adapter namespaces the cache entry; accept sets the Accept header.
func (f *HTTPFetcher) Get(ctx context.Context, adapter, rawURL, accept string) (*Response, error) {
	key := cache.Key(adapter, rawURL)
	if f.cache != nil {
		if data, ok := f.cache.Get(key); ok {
			var cached Response
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrDisallowed
		}
		if f.limiter != nil {
			f.limiter.ApplyCrawlDelay(rawURL, delay)
		}
	}

	var resp *Response
	operation := func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return backoff.Permanent(err)
			}
		}
		r, err := f.do(ctx, rawURL, accept)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.initialBackoff
	policy.MaxInterval = f.maxBackoff
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		f.logger.Debug().Err(err).Str("url", rawURL).Dur("wait", wait).Msg("retrying fetch")
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.attempts-1)), ctx)
	if err := backoff.RetryNotify(operation, retry, notify); err != nil {
		return nil, err
	}

	if f.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			_ = f.cache.Set(key, data, f.cacheTTL)
		}
	}
	return resp, nil
}

// do performs one attempt and classifies its failure for the retry policy
func (f *HTTPFetcher) do(ctx context.Context, rawURL, accept string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	httpResp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 64*1024))
		statusErr := &StatusError{URL: rawURL, Code: httpResp.StatusCode}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Body:         body,
		ContentType:  httpResp.Header.Get("Content-Type"),
		FinalURL:     httpResp.Request.URL.String(),
		LastModified: httpResp.Header.Get("Last-Modified"),
	}, nil
}

// GetJSON fetches rawURL and decodes the body into v
func (f *HTTPFetcher) GetJSON(ctx context.Context, adapter, rawURL string, v any) error {
	resp, err := f.Get(ctx, adapter, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", adapter, err)
	}
	return nil
}
