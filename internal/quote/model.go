// Package quote implements the quote and comment resources: the content
// users actually post once they have a session.
package quote

import (
	"strings"
	"time"
)

const (
	contentMaxLen = 500
	commentMaxLen = 300
)

// Quote is one posted quote. AuthorUsername is denormalized into the row
// read, not the table.
type Quote struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Comment is one comment on a quote. Username is snapshotted at write time,
// matching how the comments render even if the author later renames.
type Comment struct {
	ID        string    `json:"id"`
	QuoteID   string    `json:"quote_id"`
	AuthorID  string    `json:"author_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// QuoteDetail is a quote together with its comments, returned by the
// single-quote endpoint.
type QuoteDetail struct {
	Quote
	Comments []Comment `json:"comments"`
}

// --- Request DTOs ---

// ContentRequest carries the body for creating or updating a quote.
type ContentRequest struct {
	Content string `json:"content"`
}

// CommentRequest carries the body for creating or updating a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// validateContent checks a quote body. Returns a client-safe message or
// empty string.
func validateContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return "Quote content is required."
	}
	if len(content) > contentMaxLen {
		return "Quote content is too long (maximum 500 characters)."
	}
	return ""
}

// validateComment checks a comment body.
func validateComment(text string) string {
	if strings.TrimSpace(text) == "" {
		return "Comment text is required."
	}
	if len(text) > commentMaxLen {
		return "Comment is too long (maximum 300 characters)."
	}
	return ""
}
