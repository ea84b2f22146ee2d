package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-media-monitoring-ui/internal/connectors/agent"
)

func newBackend(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/articles/pending", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"articles":[{"url":"https://example.com/a","submitted_by":"Jo","timestamp":"2026-08-25T09:00:00"}],"count":1}`))
	})
	mux.HandleFunc("/api/manual-articles/", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStalePendingResponseIsDiscarded(t *testing.T) {
	r := NewRefresher(nil, time.Minute)

	newer := []agent.PendingArticle{{URL: "https://example.com/new", SubmittedBy: "Jo"}}
	older := []agent.PendingArticle{{URL: "https://example.com/old", SubmittedBy: "Jo"}}

	r.applyPending(2, newer, nil)
	r.applyPending(1, older, nil)

	snap := r.Pending()
	if snap.Generation != 2 {
		t.Fatalf("expected generation 2, got %d", snap.Generation)
	}
	if len(snap.Articles) != 1 || snap.Articles[0].URL != "https://example.com/new" {
		t.Fatalf("stale response overwrote newer data: %+v", snap.Articles)
	}
}

func TestFetchErrorKeepsLastGoodList(t *testing.T) {
	r := NewRefresher(nil, time.Minute)

	r.applyPending(1, []agent.PendingArticle{{URL: "https://example.com/a"}}, nil)
	r.applyPending(2, nil, errors.New("connection refused"))

	snap := r.Pending()
	if snap.Error == "" {
		t.Fatal("expected error to be recorded")
	}
	if len(snap.Articles) != 1 {
		t.Fatalf("error fetch should keep previous articles, got %d", len(snap.Articles))
	}

	r.applyPending(3, []agent.PendingArticle{}, nil)
	if snap := r.Pending(); snap.Error != "" {
		t.Fatalf("successful fetch should clear error, got %q", snap.Error)
	}
}

func TestHiddenTimerDoesNotFetch(t *testing.T) {
	var hits atomic.Int64
	srv := newBackend(t, &hits)

	client := agent.NewClient(srv.URL, 2*time.Second)
	r := NewRefresher(client, 15*time.Millisecond)
	r.SetVisible(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	time.Sleep(80 * time.Millisecond)
	if n := hits.Load(); n != 0 {
		t.Fatalf("expected no fetches while hidden, got %d", n)
	}

	// Becoming visible refreshes immediately and restarts the timer.
	r.SetVisible(true)
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hits.Load() < 2 {
		t.Fatalf("expected both lists fetched after becoming visible, got %d", hits.Load())
	}

	if snap := r.Pending(); len(snap.Articles) != 1 {
		t.Fatalf("expected pending snapshot to be populated, got %+v", snap)
	}
}

func TestSetVisibleWhileAlreadyVisibleDoesNotKick(t *testing.T) {
	r := NewRefresher(nil, time.Minute)

	r.SetVisible(true)
	select {
	case <-r.kick:
		t.Fatal("no kick expected for a no-op visibility transition")
	default:
	}
}
