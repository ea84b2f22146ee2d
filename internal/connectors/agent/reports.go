package agent

import (
	"context"
	"strings"
)

// ReportResult is the backend's response to a report-generation trigger.
type ReportResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MediaReport triggers generation of the media monitoring report. Pasted
// content is optional and supplements the scraped pending queue.
func (c *Client) MediaReport(ctx context.Context, pastedContent, recipientEmail string) (*ReportResult, error) {
	body := map[string]string{
		"pasted_content":  pastedContent,
		"recipient_email": strings.TrimSpace(recipientEmail),
	}

	out := &ReportResult{}
	if err := c.post(ctx, "/api/reports/media", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HansardReport triggers generation of the parliamentary transcript report.
func (c *Client) HansardReport(ctx context.Context, recipientEmail string) (*ReportResult, error) {
	body := map[string]string{"recipient_email": strings.TrimSpace(recipientEmail)}

	out := &ReportResult{}
	if err := c.post(ctx, "/api/reports/hansard", body, out); err != nil {
		return nil, err
	}
	return out, nil
}
