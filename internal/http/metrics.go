package http

import (
	"fmt"
	nethttp "net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*httpMetricSeries{}
	upstreamSeries   = map[upstreamMetricKey]*upstreamMetricSeries{}
	journalSeries    = map[journalMetricKey]*journalMetricSeries{}
	reportRunSeries  = map[reportRunMetricKey]*reportRunMetricSeries{}
)

func metricsHandler() nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		keys := make([]httpMetricKey, 0, len(httpSeries))
		for k := range httpSeries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Method != keys[j].Method {
				return keys[i].Method < keys[j].Method
			}
			if keys[i].Path != keys[j].Path {
				return keys[i].Path < keys[j].Path
			}
			return keys[i].Status < keys[j].Status
		})
		snapshot := make([]struct {
			Key    httpMetricKey
			Series httpMetricSeries
		}, 0, len(keys))
		for _, k := range keys {
			snapshot = append(snapshot, struct {
				Key    httpMetricKey
				Series httpMetricSeries
			}{Key: k, Series: *httpSeries[k]})
		}

		upKeys := make([]upstreamMetricKey, 0, len(upstreamSeries))
		for k := range upstreamSeries {
			upKeys = append(upKeys, k)
		}
		sort.Slice(upKeys, func(i, j int) bool { return upKeys[i].Operation < upKeys[j].Operation })
		upSnapshot := make([]struct {
			Key    upstreamMetricKey
			Series upstreamMetricSeries
		}, 0, len(upKeys))
		for _, k := range upKeys {
			upSnapshot = append(upSnapshot, struct {
				Key    upstreamMetricKey
				Series upstreamMetricSeries
			}{k, *upstreamSeries[k]})
		}

		jKeys := make([]journalMetricKey, 0, len(journalSeries))
		for k := range journalSeries {
			jKeys = append(jKeys, k)
		}
		sort.Slice(jKeys, func(i, j int) bool { return jKeys[i].Operation < jKeys[j].Operation })
		jSnapshot := make([]struct {
			Key    journalMetricKey
			Series journalMetricSeries
		}, 0, len(jKeys))
		for _, k := range jKeys {
			jSnapshot = append(jSnapshot, struct {
				Key    journalMetricKey
				Series journalMetricSeries
			}{k, *journalSeries[k]})
		}

		reportKeys := make([]reportRunMetricKey, 0, len(reportRunSeries))
		for k := range reportRunSeries {
			reportKeys = append(reportKeys, k)
		}
		sort.Slice(reportKeys, func(i, j int) bool {
			if reportKeys[i].Kind != reportKeys[j].Kind {
				return reportKeys[i].Kind < reportKeys[j].Kind
			}
			return reportKeys[i].Status < reportKeys[j].Status
		})
		reportSnapshot := make([]struct {
			Key    reportRunMetricKey
			Series reportRunMetricSeries
		}, 0, len(reportKeys))
		for _, k := range reportKeys {
			reportSnapshot = append(reportSnapshot, struct {
				Key    reportRunMetricKey
				Series reportRunMetricSeries
			}{k, *reportRunSeries[k]})
		}
		metricsMu.Unlock()

		_, _ = fmt.Fprintln(w, "# HELP media_ui_http_requests_total Total HTTP requests handled by this app.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_http_requests_total counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "media_ui_http_requests_total{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP media_ui_http_request_duration_seconds_sum Total duration in seconds for observed requests.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_http_request_duration_seconds_sum counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "media_ui_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.9f\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}

		_, _ = fmt.Fprintln(w, "# HELP media_ui_http_request_duration_seconds_count Number of observed requests in duration series.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_http_request_duration_seconds_count counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "media_ui_http_request_duration_seconds_count{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP media_ui_http_in_flight_requests In-flight HTTP requests currently served by this app.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_http_in_flight_requests gauge")
		_, _ = fmt.Fprintf(w, "media_ui_http_in_flight_requests %d\n", atomic.LoadInt64(&inFlightRequests))

		_, _ = fmt.Fprintln(w, "# HELP media_ui_agent_call_duration_seconds_sum Agent backend call duration sum in seconds by operation.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_agent_call_duration_seconds_sum counter")
		for _, it := range upSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_agent_call_duration_seconds_sum{operation=%q} %.9f\n",
				escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP media_ui_agent_call_duration_seconds_count Agent backend call observation count by operation.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_agent_call_duration_seconds_count counter")
		for _, it := range upSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_agent_call_duration_seconds_count{operation=%q} %d\n",
				escapeLabel(it.Key.Operation), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP media_ui_agent_call_errors_total Agent backend call errors by operation.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_agent_call_errors_total counter")
		for _, it := range upSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_agent_call_errors_total{operation=%q} %d\n",
				escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		_, _ = fmt.Fprintln(w, "# HELP media_ui_draft_journal_op_duration_seconds_sum Draft journal operation duration sum in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_draft_journal_op_duration_seconds_sum counter")
		for _, it := range jSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_draft_journal_op_duration_seconds_sum{operation=%q} %.9f\n",
				escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP media_ui_draft_journal_op_errors_total Draft journal operation errors.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_draft_journal_op_errors_total counter")
		for _, it := range jSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_draft_journal_op_errors_total{operation=%q} %d\n",
				escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		_, _ = fmt.Fprintln(w, "# HELP media_ui_report_runs_total Report trigger count by kind and status.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_report_runs_total counter")
		for _, it := range reportSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_report_runs_total{kind=%q,status=%q} %d\n",
				escapeLabel(it.Key.Kind), escapeLabel(it.Key.Status), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP media_ui_report_run_duration_seconds_sum Report trigger duration sum in seconds by kind and status.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_report_run_duration_seconds_sum counter")
		for _, it := range reportSnapshot {
			_, _ = fmt.Fprintf(w, "media_ui_report_run_duration_seconds_sum{kind=%q,status=%q} %.9f\n",
				escapeLabel(it.Key.Kind), escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}

		uptime := time.Now().Unix() - appStartedAtUnix
		_, _ = fmt.Fprintln(w, "# HELP media_ui_uptime_seconds Process uptime in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_uptime_seconds gauge")
		_, _ = fmt.Fprintf(w, "media_ui_uptime_seconds %d\n", uptime)

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		_, _ = fmt.Fprintln(w, "# HELP media_ui_runtime_goroutines Number of goroutines.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_runtime_goroutines gauge")
		_, _ = fmt.Fprintf(w, "media_ui_runtime_goroutines %d\n", runtime.NumGoroutine())
		_, _ = fmt.Fprintln(w, "# HELP media_ui_runtime_memory_alloc_bytes Heap allocation bytes.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_runtime_memory_alloc_bytes gauge")
		_, _ = fmt.Fprintf(w, "media_ui_runtime_memory_alloc_bytes %d\n", ms.Alloc)
		_, _ = fmt.Fprintln(w, "# HELP media_ui_runtime_gc_total Total GC runs since process start.")
		_, _ = fmt.Fprintln(w, "# TYPE media_ui_runtime_gc_total counter")
		_, _ = fmt.Fprintf(w, "media_ui_runtime_gc_total %d\n", ms.NumGC)

		if cpuSec, ok := processCPUSeconds(); ok {
			_, _ = fmt.Fprintln(w, "# HELP media_ui_runtime_cpu_seconds_total Total CPU time consumed by this process in seconds.")
			_, _ = fmt.Fprintln(w, "# TYPE media_ui_runtime_cpu_seconds_total counter")
			_, _ = fmt.Fprintf(w, "media_ui_runtime_cpu_seconds_total %.6f\n", cpuSec)
		}
	})
}

func appMetricsSummaryHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}
		type upstreamRow struct {
			Operation string  `json:"operation"`
			Count     uint64  `json:"count"`
			Errors    uint64  `json:"errors"`
			AvgMS     float64 `json:"avg_ms"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			avg := 0.0
			if s.Count > 0 {
				avg = (s.DurationSecondsSum / float64(s.Count)) * 1000.0
			}
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avg,
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}

		upRows := make([]upstreamRow, 0, len(upstreamSeries))
		totalUpstreamErrors := uint64(0)
		for k, s := range upstreamSeries {
			avg := 0.0
			if s.Count > 0 {
				avg = (s.DurationSecondsSum / float64(s.Count)) * 1000.0
			}
			upRows = append(upRows, upstreamRow{
				Operation: k.Operation,
				Count:     s.Count,
				Errors:    s.Errors,
				AvgMS:     avg,
			})
			totalUpstreamErrors += s.Errors
		}

		journalErrors := uint64(0)
		for _, s := range journalSeries {
			journalErrors += s.Errors
		}
		metricsMu.Unlock()

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		sort.Slice(upRows, func(i, j int) bool { return upRows[i].AvgMS > upRows[j].AvgMS })

		topHTTP := httpRows
		if len(topHTTP) > 5 {
			topHTTP = topHTTP[:5]
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms": topHTTP,
				"agent_calls":             upRows,
				"errors": map[string]any{
					"agent_call_total":    totalUpstreamErrors,
					"draft_journal_total": journalErrors,
				},
			},
		})
	}
}

type statusRecorder struct {
	nethttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observabilityMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)

		route := normalizeMetricPath(r.URL.Path)
		sec := time.Since(start).Seconds()
		recordHTTPMetric(r.Method, route, rec.status, sec)
	})
}

func normalizeMetricPath(path string) string {
	switch {
	case path == "/":
		return "/"
	case path == "/metrics":
		return "/metrics"
	case strings.HasPrefix(path, "/api/v1/manual-articles/") && strings.HasSuffix(path, "/content"):
		return "/api/v1/manual-articles/{id}/content"
	case path == "/api/v1/manual-articles/process-batch":
		return path
	case strings.HasPrefix(path, "/api/v1/manual-articles/"):
		return "/api/v1/manual-articles/{id}"
	default:
		return path
	}
}

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type httpMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

type upstreamMetricKey struct {
	Operation string
}

type upstreamMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type journalMetricKey struct {
	Operation string
}

type journalMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type reportRunMetricKey struct {
	Kind   string
	Status string
}

type reportRunMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{
		Method: method,
		Path:   path,
		Status: fmt.Sprintf("%d", status),
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &httpMetricSeries{}
		httpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func recordUpstreamCall(operation string, durationSeconds float64, err error) {
	if operation == "" {
		return
	}
	key := upstreamMetricKey{Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := upstreamSeries[key]
	if !ok {
		row = &upstreamMetricSeries{}
		upstreamSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordJournalOp(operation string, durationSeconds float64, err error) {
	if operation == "" {
		return
	}
	key := journalMetricKey{Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := journalSeries[key]
	if !ok {
		row = &journalMetricSeries{}
		journalSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordReportRun(kind, status string, durationSeconds float64) {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		status = "unknown"
	}
	key := reportRunMetricKey{Kind: kind, Status: status}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := reportRunSeries[key]
	if !ok {
		row = &reportRunMetricSeries{}
		reportRunSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}
