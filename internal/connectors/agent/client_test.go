package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMutatingCallsCarryCSRFToken(t *testing.T) {
	var seenToken string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"csrf_token":"tok-123"}`))
	})
	mux.HandleFunc("/api/articles/submit", func(w http.ResponseWriter, r *http.Request) {
		seenToken = r.Header.Get("X-CSRF-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Article submitted","status":"queued"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	res, err := c.SubmitArticle(context.Background(), "https://example.com/a", "Jo")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !res.Success || res.Status != "queued" {
		t.Fatalf("unexpected submit result: %+v", res)
	}
	if seenToken != "tok-123" {
		t.Fatalf("expected lazily fetched CSRF token on mutating call, got %q", seenToken)
	}
}

func TestRateLimitedCallYieldsRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf-token" {
			_, _ = w.Write([]byte(`{"csrf_token":"tok"}`))
			return
		}
		w.Header().Set("Retry-After", "42")
		w.Header().Set("X-RateLimit-Limit", "10")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Too many submissions"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	_, err := c.SubmitArticle(context.Background(), "https://example.com/a", "Jo")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if !apiErr.RateLimited() {
		t.Fatalf("expected rate-limited error, got status %d", apiErr.StatusCode)
	}
	if apiErr.RetryAfter != 42*time.Second {
		t.Fatalf("expected 42s retry-after, got %s", apiErr.RetryAfter)
	}
	if apiErr.Message != "Too many submissions" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}

	rl := c.RateLimit()
	if rl == nil || rl.Limit != 10 || rl.Remaining != 0 {
		t.Fatalf("expected captured rate-limit headers, got %+v", rl)
	}
}

func TestPendingArticlesParsesBackendTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"articles":[
			{"url":"https://example.com/a","submitted_by":"Jo","timestamp":"2026-08-25T09:15:30.123456"},
			{"url":"https://example.com/b","submitted_by":"Sam","timestamp":"2026-08-25T10:00:00Z"}
		],"count":2}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	items, err := c.PendingArticles(context.Background())
	if err != nil {
		t.Fatalf("pending articles failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(items))
	}
	if items[0].Timestamp.Hour() != 9 || items[0].Timestamp.Minute() != 15 {
		t.Fatalf("bare ISO timestamp parsed wrong: %s", items[0].Timestamp)
	}
	if !items[1].Timestamp.Equal(time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("RFC 3339 timestamp parsed wrong: %s", items[1].Timestamp)
	}
}

func TestPendingArticlesEmptyListIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"articles":[],"count":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	items, err := c.PendingArticles(context.Background())
	if err != nil {
		t.Fatalf("pending articles failed: %v", err)
	}
	if items == nil {
		t.Fatal("expected non-nil empty slice")
	}
}

func TestProcessBatchReportsEmailFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf-token" {
			_, _ = w.Write([]byte(`{"csrf_token":"tok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Processed 3 articles","processed_count":3,"failed_count":0,"email_sent":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	res, err := c.ProcessBatch(context.Background(), "reports@example.com")
	if err != nil {
		t.Fatalf("process batch failed: %v", err)
	}
	if !res.Success || res.ProcessedCount != 3 || res.EmailSent {
		t.Fatalf("unexpected batch result: %+v", res)
	}
}

func TestCSRFFetchFailureDoesNotBlockMutations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf-token" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	res, err := c.SubmitArticle(context.Background(), "https://example.com/a", "Jo")
	if err != nil {
		t.Fatalf("submit should proceed without a token: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
}
