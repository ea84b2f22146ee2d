package draftlog

import (
	"context"
	"path/filepath"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "drafts.sqlite"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndLatestDraft(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.Record(ctx, 7, "https://example.com/a", "first draft", false, "connection refused"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	id, err := s.Record(ctx, 7, "https://example.com/a", "second draft", false, "")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	d, err := s.LatestDraft(ctx, 7)
	if err != nil {
		t.Fatalf("latest draft failed: %v", err)
	}
	if d == nil || d.Content != "second draft" || d.Saved {
		t.Fatalf("unexpected latest draft: %+v", d)
	}

	if err := s.MarkSaved(ctx, id); err != nil {
		t.Fatalf("mark saved failed: %v", err)
	}
	d, err = s.LatestDraft(ctx, 7)
	if err != nil {
		t.Fatalf("latest draft failed: %v", err)
	}
	if !d.Saved || d.SaveError != "" {
		t.Fatalf("expected saved draft, got %+v", d)
	}

	if err := s.MarkFailed(ctx, id, "backend unreachable"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	d, err = s.LatestDraft(ctx, 7)
	if err != nil {
		t.Fatalf("latest draft failed: %v", err)
	}
	if d.Saved || d.SaveError != "backend unreachable" {
		t.Fatalf("expected failed draft, got %+v", d)
	}

	if d, err := s.LatestDraft(ctx, 999); err != nil || d != nil {
		t.Fatalf("expected no draft for unknown article, got %+v err=%v", d, err)
	}
}

func TestPruneKeepsNewestPerArticle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Record(ctx, 1, "https://example.com/a", "draft", true, ""); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if _, err := s.Record(ctx, 2, "https://example.com/b", "other", false, "timeout"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	removed, err := s.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 rows pruned, got %d", removed)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Drafts != 3 || stats.Articles != 2 || stats.Unsaved != 1 {
		t.Fatalf("unexpected stats after prune: %+v", stats)
	}
	if stats.LastRecorded == nil || stats.FileBytes <= 0 {
		t.Fatalf("expected last-recorded time and file size, got %+v", stats)
	}
}
