package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"go-media-monitoring-ui/internal/config"
	"go-media-monitoring-ui/internal/connectors/agent"
	"go-media-monitoring-ui/internal/connectors/draftlog"
	"go-media-monitoring-ui/internal/dashboard"
	"go-media-monitoring-ui/internal/validate"
	"go-media-monitoring-ui/internal/view"
)

type submitArticleRequest struct {
	URL         string `json:"url"`
	SubmittedBy string `json:"submitted_by"`
}

type saveContentRequest struct {
	ArticleContent string `json:"article_content"`
}

type processBatchRequest struct {
	RecipientEmail string `json:"recipient_email"`
}

type mediaReportRequest struct {
	PastedContent  string `json:"pasted_content"`
	RecipientEmail string `json:"recipient_email"`
}

type hansardReportRequest struct {
	RecipientEmail string `json:"recipient_email"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// pendingRow is a render-ready pending-articles table row. Text fields are
// HTML-escaped here so the page can insert them directly.
type pendingRow struct {
	URL          string    `json:"url"`
	DisplayURL   string    `json:"display_url"`
	SubmittedBy  string    `json:"submitted_by"`
	SubmittedAgo string    `json:"submitted_ago"`
	Timestamp    time.Time `json:"timestamp"`
}

// manualRow is a render-ready manual-article editor block. Content is left
// unescaped: the page assigns it to a textarea value, never to markup.
type manualRow struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	DisplayURL   string `json:"display_url"`
	SubmittedBy  string `json:"submitted_by"`
	SubmittedAgo string `json:"submitted_ago"`
	Content      string `json:"content"`
	HasContent   bool   `json:"has_content"`
	Counter      string `json:"counter"`
	Badge        string `json:"badge"`
}

func limitsFromConfig(cfg config.Config) validate.Limits {
	return validate.Limits{
		NameMin:    cfg.NameMinLength,
		NameMax:    cfg.NameMaxLength,
		URLMax:     cfg.URLMaxLength,
		EmailMax:   cfg.EmailMaxLength,
		ContentMax: cfg.ContentMaxLength,
	}
}

func submitArticleHandler(cfg config.Config, client *agent.Client, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	limits := limitsFromConfig(cfg)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeMethodNotAllowed(w)
			return
		}

		var req submitArticleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success": false,
				"message": "invalid request body",
			})
			return
		}

		fieldErrors := map[string]string{}
		if err := limits.SubmitterName(req.SubmittedBy); err != nil {
			fieldErrors[err.Field] = err.Message
		}
		if err := limits.ArticleURL(req.URL); err != nil {
			fieldErrors[err.Field] = err.Message
		}
		if len(fieldErrors) > 0 {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success":      false,
				"field_errors": fieldErrors,
			})
			return
		}

		start := time.Now()
		res, err := client.SubmitArticle(r.Context(), req.URL, req.SubmittedBy)
		recordUpstreamCall("SubmitArticle", time.Since(start).Seconds(), err)
		if err != nil {
			status, payload := upstreamFeedback(err)
			writeJSON(w, status, payload)
			return
		}

		// Give the backend a beat to commit before the table re-fetch.
		refresher.RefreshPendingAfter(cfg.SubmitRefreshDelay)

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success": true,
			"message": res.Message,
			"status":  res.Status,
		})
	}
}

func pendingArticlesHandler(cfg config.Config, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			writeMethodNotAllowed(w)
			return
		}

		if r.URL.Query().Get("refresh") == "now" {
			refresher.RefreshPending(r.Context())
		}

		snap := refresher.Pending()
		now := time.Now()
		rows := make([]pendingRow, 0, len(snap.Articles))
		for _, a := range snap.Articles {
			rows = append(rows, pendingRow{
				URL:          a.URL,
				DisplayURL:   view.EscapeHTML(view.TruncateURL(a.URL, cfg.URLDisplayLength)),
				SubmittedBy:  view.EscapeHTML(a.SubmittedBy),
				SubmittedAgo: view.RelativeTime(a.Timestamp.Time, now),
				Timestamp:    a.Timestamp.Time,
			})
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"count":         len(rows),
				"fetched_at":    snap.FetchedAt,
				"generation":    snap.Generation,
				"error":         snap.Error,
				"empty_message": "No pending articles",
			},
			"data": rows,
		})
	}
}

func manualArticlesRouter(cfg config.Config, client *agent.Client, refresher *dashboard.Refresher, drafts *draftlog.Store) nethttp.HandlerFunc {
	list := manualArticlesListHandler(cfg, refresher)
	batch := processBatchHandler(cfg, client, refresher)
	save := saveContentHandler(cfg, client, refresher, drafts)
	remove := deleteManualArticleHandler(client, refresher)

	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/manual-articles"), "/")
		parts := strings.Split(rest, "/")

		switch {
		case rest == "":
			list(w, r)
		case rest == "process-batch":
			batch(w, r)
		case len(parts) == 2 && parts[1] == "content":
			id, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				nethttp.NotFound(w, r)
				return
			}
			save(w, r.WithContext(withArticleID(r.Context(), id)))
		case len(parts) == 1:
			id, err := strconv.ParseInt(parts[0], 10, 64)
			if err != nil {
				nethttp.NotFound(w, r)
				return
			}
			remove(w, r.WithContext(withArticleID(r.Context(), id)))
		default:
			nethttp.NotFound(w, r)
		}
	}
}

type articleIDKey struct{}

func withArticleID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, articleIDKey{}, id)
}

func articleIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(articleIDKey{}).(int64)
	return id
}

func manualArticlesListHandler(cfg config.Config, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			writeMethodNotAllowed(w)
			return
		}

		if r.URL.Query().Get("refresh") == "now" {
			refresher.RefreshManual(r.Context())
		}

		snap := refresher.Manual()
		now := time.Now()
		ready := 0
		rows := make([]manualRow, 0, len(snap.Articles))
		for _, a := range snap.Articles {
			hasContent := view.HasContent(a.ArticleContent)
			if hasContent {
				ready++
			}
			rows = append(rows, manualRow{
				ID:           a.ID,
				URL:          a.URL,
				DisplayURL:   view.EscapeHTML(view.TruncateURL(a.URL, cfg.URLDisplayLength)),
				SubmittedBy:  view.EscapeHTML(a.SubmittedBy),
				SubmittedAgo: view.RelativeTime(a.SubmittedAt.Time, now),
				Content:      a.ArticleContent,
				HasContent:   hasContent,
				Counter:      view.CharCounter(len([]rune(a.ArticleContent)), cfg.ContentMaxLength),
				Badge:        view.ReadinessBadge(a.ArticleContent),
			})
		}

		label, enabled := view.ProcessButtonLabel(ready)
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"count":         len(rows),
				"ready_count":   ready,
				"fetched_at":    snap.FetchedAt,
				"generation":    snap.Generation,
				"error":         snap.Error,
				"empty_message": "No articles waiting for manual input",
			},
			"process_button": map[string]any{
				"label":   label,
				"enabled": enabled,
			},
			"data": rows,
		})
	}
}

// saveContentHandler is the autosave path. It journals the draft locally,
// forwards to the backend, and answers 204 even when the backend save
// failed: autosave stays low-friction and errors are logged, not surfaced.
func saveContentHandler(cfg config.Config, client *agent.Client, refresher *dashboard.Refresher, drafts *draftlog.Store) nethttp.HandlerFunc {
	limits := limitsFromConfig(cfg)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		id := articleIDFrom(r.Context())

		var req saveContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success": false,
				"message": "invalid request body",
			})
			return
		}
		if err := limits.ManualContent(req.ArticleContent); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success":      false,
				"field_errors": map[string]string{err.Field: err.Message},
			})
			return
		}

		var draftID int64
		if drafts != nil {
			start := time.Now()
			recorded, err := drafts.Record(r.Context(), id, articleURLFromSnapshot(refresher, id), req.ArticleContent, false, "")
			recordJournalOp("Record", time.Since(start).Seconds(), err)
			if err != nil {
				log.Printf("draft journal write failed for article %d: %v", id, err)
			} else {
				draftID = recorded
			}
		}

		start := time.Now()
		err := client.SaveManualContent(r.Context(), id, req.ArticleContent)
		recordUpstreamCall("SaveManualContent", time.Since(start).Seconds(), err)
		if err != nil {
			log.Printf("autosave for article %d failed upstream: %v", id, err)
			if drafts != nil && draftID != 0 {
				if jerr := drafts.MarkFailed(r.Context(), draftID, err.Error()); jerr != nil {
					log.Printf("draft journal mark-failed failed for article %d: %v", id, jerr)
				}
			}
		} else if drafts != nil && draftID != 0 {
			if jerr := drafts.MarkSaved(r.Context(), draftID); jerr != nil {
				log.Printf("draft journal mark-saved failed for article %d: %v", id, jerr)
			}
		}

		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func articleURLFromSnapshot(refresher *dashboard.Refresher, id int64) string {
	for _, a := range refresher.Manual().Articles {
		if a.ID == id {
			return a.URL
		}
	}
	return ""
}

func deleteManualArticleHandler(client *agent.Client, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodDelete {
			writeMethodNotAllowed(w)
			return
		}
		id := articleIDFrom(r.Context())

		start := time.Now()
		err := client.DeleteManualArticle(r.Context(), id)
		recordUpstreamCall("DeleteManualArticle", time.Since(start).Seconds(), err)
		if err != nil {
			status, payload := upstreamFeedback(err)
			writeJSON(w, status, payload)
			return
		}

		refresher.RefreshManual(r.Context())
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success": true,
			"message": "Article removed from manual queue",
		})
	}
}

func processBatchHandler(cfg config.Config, client *agent.Client, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	limits := limitsFromConfig(cfg)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeMethodNotAllowed(w)
			return
		}

		var req processBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success": false,
				"message": "invalid request body",
			})
			return
		}
		if err := limits.RecipientEmail(req.RecipientEmail); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success":      false,
				"field_errors": map[string]string{err.Field: err.Message},
			})
			return
		}

		start := time.Now()
		res, err := client.ProcessBatch(r.Context(), req.RecipientEmail)
		elapsed := time.Since(start).Seconds()
		recordUpstreamCall("ProcessBatch", elapsed, err)
		if err != nil {
			recordReportRun("batch", "failed", elapsed)
			status, payload := upstreamFeedback(err)
			writeJSON(w, status, payload)
			return
		}

		message := res.Message
		if res.Success && !res.EmailSent && !strings.Contains(strings.ToLower(message), "email") {
			message += " Note: the report email could not be sent."
		}
		if res.Success {
			recordReportRun("batch", "completed", elapsed)
			// Processed items are removed server-side; re-fetch shortly.
			refresher.RefreshManualAfter(cfg.ReportRefreshDelay)
		} else {
			recordReportRun("batch", "rejected", elapsed)
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success":         res.Success,
			"message":         message,
			"processed_count": res.ProcessedCount,
			"failed_count":    res.FailedCount,
			"email_sent":      res.EmailSent,
		})
	}
}

func mediaReportHandler(cfg config.Config, client *agent.Client, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	limits := limitsFromConfig(cfg)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeMethodNotAllowed(w)
			return
		}

		var req mediaReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success": false,
				"message": "invalid request body",
			})
			return
		}
		if err := limits.RecipientEmail(req.RecipientEmail); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success":      false,
				"field_errors": map[string]string{err.Field: err.Message},
			})
			return
		}

		start := time.Now()
		res, err := client.MediaReport(r.Context(), req.PastedContent, req.RecipientEmail)
		elapsed := time.Since(start).Seconds()
		recordUpstreamCall("MediaReport", elapsed, err)
		if err != nil {
			recordReportRun("media", "failed", elapsed)
			status, payload := upstreamFeedback(err)
			writeJSON(w, status, payload)
			return
		}

		if res.Success {
			recordReportRun("media", "completed", elapsed)
			// Report processing may have drained the pending queue.
			refresher.RefreshPendingAfter(cfg.ReportRefreshDelay)
		} else {
			recordReportRun("media", "rejected", elapsed)
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success": res.Success,
			"message": res.Message,
		})
	}
}

func hansardReportHandler(cfg config.Config, client *agent.Client) nethttp.HandlerFunc {
	limits := limitsFromConfig(cfg)
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeMethodNotAllowed(w)
			return
		}

		var req hansardReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success": false,
				"message": "invalid request body",
			})
			return
		}
		if err := limits.RecipientEmail(req.RecipientEmail); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success":      false,
				"field_errors": map[string]string{err.Field: err.Message},
			})
			return
		}

		start := time.Now()
		res, err := client.HansardReport(r.Context(), req.RecipientEmail)
		elapsed := time.Since(start).Seconds()
		recordUpstreamCall("HansardReport", elapsed, err)
		if err != nil {
			recordReportRun("hansard", "failed", elapsed)
			status, payload := upstreamFeedback(err)
			writeJSON(w, status, payload)
			return
		}

		if res.Success {
			recordReportRun("hansard", "completed", elapsed)
		} else {
			recordReportRun("hansard", "rejected", elapsed)
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"success": res.Success,
			"message": res.Message,
		})
	}
}

func visibilityHandler(refresher *dashboard.Refresher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeMethodNotAllowed(w)
			return
		}

		var req visibilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"success": false,
				"message": "invalid request body",
			})
			return
		}

		refresher.SetVisible(req.Visible)
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// upstreamFeedback maps a failed backend call to an HTTP status and the
// banner payload the page shows: 429 becomes a rate-limit message built
// from Retry-After, 400/409 pass the server's own message through, and
// everything else collapses to a generic server or network message.
func upstreamFeedback(err error) (int, map[string]any) {
	var apiErr *agent.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.RateLimited():
			message := "Rate limit exceeded. Please try again later."
			retryAfter := 0
			if apiErr.RetryAfter > 0 {
				retryAfter = int(apiErr.RetryAfter.Seconds())
				message = fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", retryAfter)
			}
			return nethttp.StatusTooManyRequests, map[string]any{
				"success":             false,
				"message":             message,
				"retry_after_seconds": retryAfter,
			}
		case apiErr.StatusCode == nethttp.StatusBadRequest,
			apiErr.StatusCode == nethttp.StatusConflict,
			apiErr.StatusCode == nethttp.StatusNotFound:
			message := apiErr.Message
			if message == "" {
				message = "The server rejected the request."
			}
			return apiErr.StatusCode, map[string]any{
				"success": false,
				"message": message,
			}
		default:
			return nethttp.StatusBadGateway, map[string]any{
				"success": false,
				"message": "The server could not complete the request. Please try again.",
			}
		}
	}

	return nethttp.StatusBadGateway, map[string]any{
		"success": false,
		"message": "Network error. Please check your connection and try again.",
	}
}

func writeMethodNotAllowed(w nethttp.ResponseWriter) {
	writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{
		"success": false,
		"message": "method not allowed",
	})
}
