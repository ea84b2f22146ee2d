package agent

import (
	"context"
	"fmt"
	"strings"
)

// ManualArticle is a pending article whose content must be pasted by hand
// (paywalled or otherwise unscrapable) before it can be summarized.
type ManualArticle struct {
	ID             int64     `json:"id"`
	URL            string    `json:"url"`
	SubmittedBy    string    `json:"submitted_by"`
	SubmittedAt    Timestamp `json:"submitted_at"`
	ArticleContent string    `json:"article_content"`
	HasContent     bool      `json:"has_content"`
}

// BatchResult is the backend's response to a batch-processing run. EmailSent
// is false when summaries were produced but report delivery failed.
type BatchResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ProcessedCount int    `json:"processed_count"`
	FailedCount    int    `json:"failed_count"`
	EmailSent      bool   `json:"email_sent"`
}

// ManualArticles lists the manual input queue, newest first.
func (c *Client) ManualArticles(ctx context.Context) ([]ManualArticle, error) {
	var payload []ManualArticle
	if err := c.get(ctx, "/api/manual-articles/", &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return []ManualArticle{}, nil
	}
	return payload, nil
}

// SaveManualContent persists pasted content for one manual article.
func (c *Client) SaveManualContent(ctx context.Context, id int64, content string) error {
	body := map[string]string{"article_content": content}
	if err := c.post(ctx, fmt.Sprintf("/api/manual-articles/%d", id), body, nil); err != nil {
		return fmt.Errorf("save manual article %d: %w", id, err)
	}
	return nil
}

// DeleteManualArticle removes an article from the manual queue.
func (c *Client) DeleteManualArticle(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/api/manual-articles/%d", id), nil); err != nil {
		return fmt.Errorf("delete manual article %d: %w", id, err)
	}
	return nil
}

// ProcessBatch asks the backend to summarize and mail out every manual
// article that has content. The backend removes processed items itself.
func (c *Client) ProcessBatch(ctx context.Context, recipientEmail string) (*BatchResult, error) {
	body := map[string]string{"recipient_email": strings.TrimSpace(recipientEmail)}

	out := &BatchResult{}
	if err := c.post(ctx, "/api/manual-articles/process-batch", body, out); err != nil {
		return nil, err
	}
	return out, nil
}
