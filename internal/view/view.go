// Package view renders article data into the strings the dashboard page
// displays: relative timestamps, truncated URLs, counters, and button state.
package view

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// RelativeTime formats a timestamp against now using the dashboard's fixed
// thresholds. Anything 7 days or older falls back to a plain date.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// TruncateURL shortens a URL for table display, keeping the full value for
// the tooltip and link target. Rune-safe.
func TruncateURL(raw string, max int) string {
	if max <= 0 {
		max = 50
	}
	runes := []rune(raw)
	if len(runes) <= max {
		return raw
	}
	return string(runes[:max]) + "..."
}

// EscapeHTML renders untrusted text inert before it reaches the page.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// CharCounter formats the character counter under a manual article editor,
// e.g. "1,234 / 100,000 characters".
func CharCounter(n, max int) string {
	return fmt.Sprintf("%s / %s characters", humanize.Comma(int64(n)), humanize.Comma(int64(max)))
}

// HasContent is the readiness rule for a manual article: trimmed content
// must be non-empty.
func HasContent(content string) bool {
	return strings.TrimSpace(content) != ""
}

// ReadinessBadge returns the badge label for a manual article editor.
func ReadinessBadge(content string) string {
	if HasContent(content) {
		return "Ready"
	}
	return "Needs content"
}

// ProcessButtonLabel computes the batch-processing button state from the
// number of manual articles that have content.
func ProcessButtonLabel(ready int) (label string, enabled bool) {
	switch {
	case ready <= 0:
		return "Process Manual Articles", false
	case ready == 1:
		return "Process 1 Manual Article", true
	default:
		return fmt.Sprintf("Process %d Manual Articles", ready), true
	}
}
