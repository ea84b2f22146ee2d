// Package validate holds the field validation rules applied before any
// request reaches the agent backend, mirroring the backend's own input
// sanitization so bad input is rejected at the form.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError is a validation failure tied to a single form field, rendered
// inline next to the offending input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z0-9\s\-'.]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Schemes and tags that must never appear anywhere in a submitted URL,
	// matched case-insensitively.
	urlDenylist = []string{
		"javascript:",
		"data:",
		"vbscript:",
		"file:",
		"ftp:",
		"<script",
		"</script>",
		"<iframe",
		"</iframe>",
	}
)

// Limits carries the configurable bounds for form fields.
type Limits struct {
	NameMin    int
	NameMax    int
	URLMax     int
	EmailMax   int
	ContentMax int
}

// DefaultLimits matches the backend's enforced bounds.
func DefaultLimits() Limits {
	return Limits{NameMin: 2, NameMax: 100, URLMax: 2048, EmailMax: 254, ContentMax: 100000}
}

// SubmitterName checks the "submitted by" form field.
func (l Limits) SubmitterName(name string) *FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		return &FieldError{Field: "submitted_by", Message: "Please enter your name"}
	}
	n := utf8.RuneCountInString(name)
	if n < l.NameMin {
		return &FieldError{Field: "submitted_by", Message: fmt.Sprintf("Name must be at least %d characters", l.NameMin)}
	}
	if n > l.NameMax {
		return &FieldError{Field: "submitted_by", Message: fmt.Sprintf("Name must be %d characters or fewer", l.NameMax)}
	}
	if !nameRe.MatchString(name) {
		return &FieldError{Field: "submitted_by", Message: "Name may only contain letters, numbers, spaces, hyphens, apostrophes, and periods"}
	}
	return nil
}

// ArticleURL checks the article URL form field.
func (l Limits) ArticleURL(raw string) *FieldError {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &FieldError{Field: "url", Message: "Please enter an article URL"}
	}
	if len(raw) > l.URLMax {
		return &FieldError{Field: "url", Message: fmt.Sprintf("URL must be %d characters or fewer", l.URLMax)}
	}

	lower := strings.ToLower(raw)
	for _, bad := range urlDenylist {
		if strings.Contains(lower, bad) {
			return &FieldError{Field: "url", Message: "URL contains disallowed content"}
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return &FieldError{Field: "url", Message: "Please enter a valid URL"}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &FieldError{Field: "url", Message: "Only http and https URLs are accepted"}
	}
	if parsed.Host == "" {
		return &FieldError{Field: "url", Message: "URL must include a hostname"}
	}
	return nil
}

// RecipientEmail checks the report recipient email field with the same
// deliberately loose pattern the dashboard has always used.
func (l Limits) RecipientEmail(email string) *FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return &FieldError{Field: "recipient_email", Message: "Please enter a recipient email address"}
	}
	if len(email) > l.EmailMax {
		return &FieldError{Field: "recipient_email", Message: fmt.Sprintf("Email must be %d characters or fewer", l.EmailMax)}
	}
	if !emailRe.MatchString(email) {
		return &FieldError{Field: "recipient_email", Message: "Please enter a valid email address"}
	}
	return nil
}

// ManualContent checks pasted article content against the size cap.
func (l Limits) ManualContent(content string) *FieldError {
	if utf8.RuneCountInString(content) > l.ContentMax {
		return &FieldError{Field: "article_content", Message: fmt.Sprintf("Content must be %d characters or fewer", l.ContentMax)}
	}
	return nil
}
