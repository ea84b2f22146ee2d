package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-media-monitoring-ui/internal/config"
	"go-media-monitoring-ui/internal/connectors/agent"
	"go-media-monitoring-ui/internal/dashboard"
)

func testConfig() config.Config {
	return config.Config{
		PollInterval:       time.Minute,
		SubmitRefreshDelay: time.Millisecond,
		ReportRefreshDelay: time.Millisecond,
		NameMinLength:      2,
		NameMaxLength:      100,
		URLMaxLength:       2048,
		EmailMaxLength:     254,
		ContentMaxLength:   100000,
		URLDisplayLength:   50,
	}
}

func newAgentBackend(t *testing.T, handler nethttp.HandlerFunc) *agent.Client {
	t.Helper()
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/csrf-token", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		_, _ = w.Write([]byte(`{"csrf_token":"tok"}`))
	})
	mux.HandleFunc("/api/articles/pending", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		_, _ = w.Write([]byte(`{"success":true,"articles":[],"count":0}`))
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return agent.NewClient(srv.URL, 2*time.Second)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestSubmitArticleValidationErrors(t *testing.T) {
	cfg := testConfig()
	refresher := dashboard.NewRefresher(nil, time.Minute)
	handler := submitArticleHandler(cfg, agent.NewClient("", time.Second), refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/articles/submit",
		strings.NewReader(`{"url":"javascript:alert(1)","submitted_by":"J"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	fieldErrors, ok := body["field_errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected field_errors map, got %v", body)
	}
	if fieldErrors["url"] == nil || fieldErrors["submitted_by"] == nil {
		t.Fatalf("expected both fields flagged, got %v", fieldErrors)
	}
}

func TestSubmitArticleSuccess(t *testing.T) {
	client := newAgentBackend(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/api/articles/submit" {
			nethttp.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Article submitted for processing","status":"queued"}`))
	})

	cfg := testConfig()
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := submitArticleHandler(cfg, client, refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/articles/submit",
		strings.NewReader(`{"url":"https://example.com/story","submitted_by":"Jo"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["status"] != "queued" {
		t.Fatalf("unexpected payload: %v", body)
	}
}

func TestSubmitArticleDuplicatePassesServerMessage(t *testing.T) {
	client := newAgentBackend(t, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"This URL has already been submitted"}`))
	})

	cfg := testConfig()
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := submitArticleHandler(cfg, client, refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/articles/submit",
		strings.NewReader(`{"url":"https://example.com/story","submitted_by":"Jo"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "This URL has already been submitted" {
		t.Fatalf("expected server message to pass through, got %v", body["message"])
	}
}

func TestSubmitArticleRateLimitMessage(t *testing.T) {
	client := newAgentBackend(t, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(nethttp.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	})

	cfg := testConfig()
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := submitArticleHandler(cfg, client, refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/articles/submit",
		strings.NewReader(`{"url":"https://example.com/story","submitted_by":"Jo"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Rate limit exceeded. Please try again in 30 seconds." {
		t.Fatalf("unexpected rate-limit message: %v", body["message"])
	}
	if body["retry_after_seconds"] != float64(30) {
		t.Fatalf("expected retry_after_seconds 30, got %v", body["retry_after_seconds"])
	}
}

func TestSubmitArticleBackendDownIsGeneric(t *testing.T) {
	cfg := testConfig()
	client := agent.NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := submitArticleHandler(cfg, client, refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/articles/submit",
		strings.NewReader(`{"url":"https://example.com/story","submitted_by":"Jo"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Network error. Please check your connection and try again." {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestPendingArticlesEmptyState(t *testing.T) {
	cfg := testConfig()
	refresher := dashboard.NewRefresher(nil, time.Minute)
	handler := pendingArticlesHandler(cfg, refresher)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/articles/pending", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	meta, _ := body["meta"].(map[string]any)
	if meta == nil || meta["count"] != float64(0) {
		t.Fatalf("expected zero count, got %v", body)
	}
	if meta["empty_message"] != "No pending articles" {
		t.Fatalf("unexpected empty message: %v", meta["empty_message"])
	}
}

func TestProcessBatchRejectsInvalidEmail(t *testing.T) {
	cfg := testConfig()
	client := agent.NewClient("", time.Second)
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := manualArticlesRouter(cfg, client, refresher, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/manual-articles/process-batch",
		strings.NewReader(`{"recipient_email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	fieldErrors, _ := body["field_errors"].(map[string]any)
	if fieldErrors == nil || fieldErrors["recipient_email"] == nil {
		t.Fatalf("expected recipient_email error, got %v", body)
	}
}

func TestProcessBatchAnnotatesEmailFailure(t *testing.T) {
	client := newAgentBackend(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/api/manual-articles/process-batch" {
			nethttp.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Processed 2 articles.","processed_count":2,"failed_count":0,"email_sent":false}`))
	})

	cfg := testConfig()
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := manualArticlesRouter(cfg, client, refresher, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/manual-articles/process-batch",
		strings.NewReader(`{"recipient_email":"reports@example.com"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "could not be sent") {
		t.Fatalf("expected email failure note, got %q", msg)
	}
}

func TestSaveContentAlwaysAnswersNoContent(t *testing.T) {
	cfg := testConfig()
	client := agent.NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := manualArticlesRouter(cfg, client, refresher, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/manual-articles/7/content",
		strings.NewReader(`{"article_content":"pasted text"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	// Autosave never surfaces upstream failures to the page.
	if rec.Code != nethttp.StatusNoContent {
		t.Fatalf("expected 204 even with backend down, got %d", rec.Code)
	}
}

func TestSaveContentRejectsOversizedContent(t *testing.T) {
	cfg := testConfig()
	cfg.ContentMaxLength = 10
	client := agent.NewClient("", time.Second)
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := manualArticlesRouter(cfg, client, refresher, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/manual-articles/7/content",
		strings.NewReader(`{"article_content":"this is far too long"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestManualRouterRejectsBadID(t *testing.T) {
	cfg := testConfig()
	client := agent.NewClient("", time.Second)
	refresher := dashboard.NewRefresher(client, time.Minute)
	handler := manualArticlesRouter(cfg, client, refresher, nil)

	req := httptest.NewRequest(nethttp.MethodDelete, "/api/v1/manual-articles/not-a-number", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestVisibilityEndpointDrivesRefresher(t *testing.T) {
	refresher := dashboard.NewRefresher(nil, time.Minute)
	handler := visibilityHandler(refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/visibility",
		strings.NewReader(`{"visible":false}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if refresher.Visible() {
		t.Fatal("expected refresher to be hidden")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	cfg := testConfig()
	refresher := dashboard.NewRefresher(nil, time.Minute)
	handler := pendingArticlesHandler(cfg, refresher)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/articles/pending", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
