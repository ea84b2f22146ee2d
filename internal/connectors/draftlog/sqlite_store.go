// Package draftlog keeps a local journal of manual-article autosaves.
// Saves toward the backend stay fire-and-forget; the journal means a failed
// autosave leaves a recoverable copy on disk instead of silent data loss.
package draftlog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Draft is one recorded autosave attempt.
type Draft struct {
	ID         int64     `json:"id"`
	ArticleID  int64     `json:"article_id"`
	URL        string    `json:"url"`
	Content    string    `json:"content"`
	Saved      bool      `json:"saved"`
	SaveError  string    `json:"save_error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Stats summarizes the journal for the status endpoint.
type Stats struct {
	Drafts       int64      `json:"drafts"`
	Articles     int64      `json:"articles"`
	Unsaved      int64      `json:"unsaved"`
	LastRecorded *time.Time `json:"last_recorded,omitempty"`
	FileBytes    int64      `json:"file_bytes"`
}

// Store manages the autosave journal in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS article_drafts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  article_id INTEGER NOT NULL,
  url TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL,
  saved INTEGER NOT NULL DEFAULT 0,
  save_error TEXT NOT NULL DEFAULT '',
  recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_drafts_article_id ON article_drafts(article_id, id);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record journals one autosave attempt and returns the draft row id.
func (s *Store) Record(ctx context.Context, articleID int64, url, content string, saved bool, saveErr string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO article_drafts (article_id, url, content, saved, save_error, recorded_at)
VALUES (?, ?, ?, ?, ?, ?);
`, articleID, url, content, boolToInt(saved), saveErr, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkSaved flips a journaled draft to saved once the backend accepted it.
func (s *Store) MarkSaved(ctx context.Context, draftID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE article_drafts SET saved = 1, save_error = '' WHERE id = ?;`, draftID)
	return err
}

// MarkFailed records the upstream error on a journaled draft.
func (s *Store) MarkFailed(ctx context.Context, draftID int64, saveErr string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE article_drafts SET saved = 0, save_error = ? WHERE id = ?;`, saveErr, draftID)
	return err
}

// LatestDraft returns the most recent journaled draft for an article, or
// nil when nothing was recorded.
func (s *Store) LatestDraft(ctx context.Context, articleID int64) (*Draft, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, article_id, url, content, saved, save_error, recorded_at
FROM article_drafts
WHERE article_id = ?
ORDER BY id DESC
LIMIT 1;
`, articleID)

	var d Draft
	var saved int
	if err := row.Scan(&d.ID, &d.ArticleID, &d.URL, &d.Content, &saved, &d.SaveError, &d.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Saved = saved != 0
	return &d, nil
}

// Prune drops journal rows beyond the newest keep entries per article and
// returns how many were removed.
func (s *Store) Prune(ctx context.Context, keepPerArticle int) (int64, error) {
	if keepPerArticle <= 0 {
		keepPerArticle = 20
	}
	res, err := s.db.ExecContext(ctx, `
DELETE FROM article_drafts
WHERE id NOT IN (
  SELECT id FROM article_drafts AS keep
  WHERE keep.article_id = article_drafts.article_id
  ORDER BY keep.id DESC
  LIMIT ?
);
`, keepPerArticle)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats reports journal totals and the on-disk file size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}

	// MAX(recorded_at) loses the column's declared type, so the driver
	// returns a raw string; a direct column subquery keeps it scannable
	// as a time value.
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COUNT(DISTINCT article_id),
       COALESCE(SUM(CASE WHEN saved = 0 THEN 1 ELSE 0 END), 0),
       (SELECT recorded_at FROM article_drafts ORDER BY recorded_at DESC, id DESC LIMIT 1)
FROM article_drafts;
`)
	var last sql.NullTime
	if err := row.Scan(&out.Drafts, &out.Articles, &out.Unsaved, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time.UTC()
		out.LastRecorded = &t
	}

	if info, err := os.Stat(s.path); err == nil {
		out.FileBytes = info.Size()
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
