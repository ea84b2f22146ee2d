package view

import (
	"strings"
	"testing"
	"time"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		label string
		t     time.Time
		want  string
	}{
		{"30s ago", now.Add(-30 * time.Second), "Just now"},
		{"5m ago", now.Add(-5 * time.Minute), "5m ago"},
		{"59m ago", now.Add(-59 * time.Minute), "59m ago"},
		{"3h ago", now.Add(-3 * time.Hour), "3h ago"},
		{"6d ago", now.Add(-6 * 24 * time.Hour), "6d ago"},
		{"10d ago", now.Add(-10 * 24 * time.Hour), "Aug 15, 2026"},
		{"zero", time.Time{}, "-"},
	}
	for _, tc := range cases {
		if got := RelativeTime(tc.t, now); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.label, got, tc.want)
		}
	}
}

func TestTruncateURL(t *testing.T) {
	short := "https://example.com/a"
	if got := TruncateURL(short, 50); got != short {
		t.Errorf("short URL should be untouched, got %q", got)
	}

	long := "https://example.com/" + strings.Repeat("a", 60)
	got := TruncateURL(long, 50)
	if len([]rune(got)) != 53 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 50 runes plus ellipsis, got %q", got)
	}
}

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML("<b>x</b>")
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("escaped output still contains markup: %q", got)
	}
	if got != "&lt;b&gt;x&lt;/b&gt;" {
		t.Fatalf("unexpected escape output: %q", got)
	}
}

func TestCharCounter(t *testing.T) {
	if got := CharCounter(12345, 100000); got != "12,345 / 100,000 characters" {
		t.Fatalf("unexpected counter: %q", got)
	}
}

func TestHasContent(t *testing.T) {
	if HasContent("   \n\t ") {
		t.Fatal("whitespace-only content should not count")
	}
	if !HasContent(" x ") {
		t.Fatal("non-empty content should count")
	}
	if ReadinessBadge("") != "Needs content" || ReadinessBadge("body") != "Ready" {
		t.Fatal("unexpected badge labels")
	}
}

func TestProcessButtonLabel(t *testing.T) {
	label, enabled := ProcessButtonLabel(0)
	if enabled || label != "Process Manual Articles" {
		t.Fatalf("zero ready: got %q enabled=%v", label, enabled)
	}

	label, enabled = ProcessButtonLabel(1)
	if !enabled || label != "Process 1 Manual Article" {
		t.Fatalf("one ready: got %q enabled=%v", label, enabled)
	}

	label, enabled = ProcessButtonLabel(3)
	if !enabled || label != "Process 3 Manual Articles" {
		t.Fatalf("three ready: got %q enabled=%v", label, enabled)
	}
}
