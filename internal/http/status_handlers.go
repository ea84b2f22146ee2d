package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/dustin/go-humanize"

	"go-media-monitoring-ui/internal/config"
	"go-media-monitoring-ui/internal/connectors/agent"
	"go-media-monitoring-ui/internal/connectors/draftlog"
	"go-media-monitoring-ui/internal/dashboard"
)

func servicesStatusHandler(cfg config.Config, client *agent.Client, drafts *draftlog.Store, refresher *dashboard.Refresher) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["agent"] = agentStatus(ctx, client)
		services["draft_journal"] = draftJournalStatus(ctx, drafts)
		services["refresher"] = refresherStatus(cfg, refresher)

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func agentStatus(ctx context.Context, client *agent.Client) map[string]any {
	if client == nil || !client.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "agent backend integration disabled"}
	}

	start := time.Now()
	health, err := client.Health(ctx)
	recordUpstreamCall("Health", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "endpoint": client.Endpoint(), "error": err.Error()}
	}

	out := map[string]any{
		"enabled":  true,
		"ok":       true,
		"endpoint": client.Endpoint(),
		"health":   health,
	}
	if rl := client.RateLimit(); rl != nil {
		out["rate_limit"] = map[string]any{
			"limit":     rl.Limit,
			"remaining": rl.Remaining,
			"reset":     rl.Reset,
			"seen_at":   rl.SeenAt,
		}
	}
	return out
}

func draftJournalStatus(ctx context.Context, drafts *draftlog.Store) map[string]any {
	if drafts == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "draft journal disabled"}
	}

	start := time.Now()
	stats, err := drafts.Stats(ctx)
	recordJournalOp("Stats", time.Since(start).Seconds(), err)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "path": drafts.Path(), "error": err.Error()}
	}

	return map[string]any{
		"enabled":   true,
		"ok":        true,
		"path":      drafts.Path(),
		"stats":     stats,
		"file_size": humanize.Bytes(uint64(stats.FileBytes)),
	}
}

func refresherStatus(cfg config.Config, refresher *dashboard.Refresher) map[string]any {
	if refresher == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "refresher not running"}
	}

	pending := refresher.Pending()
	manual := refresher.Manual()
	return map[string]any{
		"enabled":          true,
		"ok":               pending.Error == "" && manual.Error == "",
		"visible":          refresher.Visible(),
		"interval_seconds": int(cfg.PollInterval.Seconds()),
		"pending": map[string]any{
			"count":      len(pending.Articles),
			"fetched_at": pending.FetchedAt,
			"generation": pending.Generation,
			"error":      pending.Error,
		},
		"manual": map[string]any{
			"count":      len(manual.Articles),
			"fetched_at": manual.FetchedAt,
			"generation": manual.Generation,
			"error":      manual.Error,
		},
	}
}
