package agent

import (
	"context"
	"fmt"
	"strings"
)

// PendingArticle is a submitted URL awaiting automatic report processing.
type PendingArticle struct {
	URL         string    `json:"url"`
	SubmittedBy string    `json:"submitted_by"`
	Timestamp   Timestamp `json:"timestamp"`
}

// SubmitResult is the backend's response to an article submission. The
// backend routes paywalled domains to the manual queue, which it reports
// through Status.
type SubmitResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	SubmittedBy string `json:"submitted_by"`
	Status      string `json:"status"`
}

// SubmitArticle posts a URL for processing on behalf of a submitter.
func (c *Client) SubmitArticle(ctx context.Context, url, submittedBy string) (*SubmitResult, error) {
	body := map[string]string{
		"url":          strings.TrimSpace(url),
		"submitted_by": strings.TrimSpace(submittedBy),
	}

	out := &SubmitResult{}
	if err := c.post(ctx, "/api/articles/submit", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingArticles lists all articles queued for automatic processing,
// newest first.
func (c *Client) PendingArticles(ctx context.Context) ([]PendingArticle, error) {
	var payload struct {
		Success  bool             `json:"success"`
		Articles []PendingArticle `json:"articles"`
		Error    string           `json:"error"`
	}
	if err := c.get(ctx, "/api/articles/pending", &payload); err != nil {
		return nil, err
	}
	if !payload.Success && payload.Error != "" {
		return nil, fmt.Errorf("pending articles: %s", payload.Error)
	}
	if payload.Articles == nil {
		return []PendingArticle{}, nil
	}
	return payload.Articles, nil
}
