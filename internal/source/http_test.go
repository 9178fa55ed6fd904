package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/vocabmine/internal/cache"
	"github.com/ppiankov/vocabmine/internal/model"
)

func newTestFetcher(opts ...HTTPOption) *HTTPFetcher {
	opts = append([]HTTPOption{WithBackoff(3, time.Millisecond, 5*time.Millisecond)}, opts...)
	return NewHTTPFetcher(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "vocabmine-test"}, opts...)
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := newTestFetcher().Get(context.Background(), "test", server.URL, "")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Expected body 'ok', got %q", resp.Body)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPFetcher_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestFetcher().Get(context.Background(), "test", server.URL, "")
	if err == nil {
		t.Fatal("Expected error for 404")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %T: %v", err, err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("Expected code 404, got %d", statusErr.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", calls.Load())
	}
}

func TestHTTPFetcher_GivesUpAfterBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestFetcher().Get(context.Background(), "test", server.URL, "")
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPFetcher_UsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("cached body"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute))
	for i := 0; i < 3; i++ {
		resp, err := fetcher.Get(context.Background(), "test", server.URL, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if string(resp.Body) != "cached body" {
			t.Errorf("Expected cached body, got %q", resp.Body)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 upstream request, got %d", calls.Load())
	}
}

func TestHTTPFetcher_SendsUserAgent(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	var v map[string]any
	if err := newTestFetcher().GetJSON(context.Background(), "test", server.URL, &v); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if agent != "vocabmine-test" {
		t.Errorf("Expected User-Agent vocabmine-test, got %q", agent)
	}
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestFetcher().Get(ctx, "test", server.URL, ""); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
