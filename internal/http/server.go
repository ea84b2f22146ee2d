package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"

	"go-media-monitoring-ui/internal/config"
	"go-media-monitoring-ui/internal/connectors/agent"
	"go-media-monitoring-ui/internal/connectors/draftlog"
	"go-media-monitoring-ui/internal/dashboard"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer    *nethttp.Server
	agentClient   *agent.Client
	draftStore    *draftlog.Store
	refresher     *dashboard.Refresher
	pruneKeep     int
	workersCancel context.CancelFunc
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config) (*Server, error) {
	if cfg.AgentEndpoint == "" {
		return nil, errors.New("agent endpoint required")
	}
	client := agent.NewClient(cfg.AgentEndpoint, cfg.AgentTimeout)

	var drafts *draftlog.Store
	if cfg.DraftLogSQLitePath != "" {
		createdStore, err := draftlog.NewStore(cfg.DraftLogSQLitePath)
		if err != nil {
			return nil, err
		}
		drafts = createdStore
	}

	refresher := dashboard.NewRefresher(client, cfg.PollInterval)

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/api/v1/articles/submit", submitArticleHandler(cfg, client, refresher))
	mux.HandleFunc("/api/v1/articles/pending", pendingArticlesHandler(cfg, refresher))
	mux.HandleFunc("/api/v1/manual-articles", manualArticlesRouter(cfg, client, refresher, drafts))
	mux.HandleFunc("/api/v1/manual-articles/", manualArticlesRouter(cfg, client, refresher, drafts))
	mux.HandleFunc("/api/v1/reports/media", mediaReportHandler(cfg, client, refresher))
	mux.HandleFunc("/api/v1/reports/hansard", hansardReportHandler(cfg, client))
	mux.HandleFunc("/api/v1/visibility", visibilityHandler(refresher))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(cfg, client, drafts, refresher))

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer:  httpServer,
		agentClient: client,
		draftStore:  drafts,
		refresher:   refresher,
		pruneKeep:   cfg.DraftLogKeepPerArticle,
	}, nil
}

// ListenAndServe starts the HTTP server, the dashboard refresher, and the
// draft journal pruner.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.workersCancel = cancel

	go func() {
		fetchCtx, fetchCancel := context.WithTimeout(ctx, 10*time.Second)
		defer fetchCancel()
		if err := s.agentClient.FetchCSRFToken(fetchCtx); err != nil {
			log.Printf("initial CSRF token fetch failed, will retry on demand: %v", err)
		}
	}()

	go s.refresher.Run(ctx)
	if s.draftStore != nil {
		go s.startDraftPruner(ctx)
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.workersCancel != nil {
		s.workersCancel()
	}
	if s.draftStore != nil {
		_ = s.draftStore.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) startDraftPruner(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	s.pruneDrafts(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneDrafts(ctx)
		}
	}
}

func (s *Server) pruneDrafts(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	removed, err := s.draftStore.Prune(opCtx, s.pruneKeep)
	recordJournalOp("Prune", time.Since(start).Seconds(), err)
	if err != nil {
		log.Printf("draft journal prune failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("draft journal pruned %d rows", removed)
	}
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ready",
	})
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(start), requestID)
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
