package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dostonbek1/quotehub/internal/apperror"
)

// quoteColumns joins the author's current username onto every quote read.
const quoteColumns = `q.id, q.author_id, u.username, q.content, q.created_at, q.updated_at`

// Repository is the data access contract for quotes and comments. Owner
// checks happen in the service; the ownership-conditional writes here exist
// so a stale check can never clobber someone else's row.
type Repository interface {
	CreateQuote(ctx context.Context, q *Quote) error
	FindQuoteByID(ctx context.Context, id string) (*Quote, error)
	ListQuotes(ctx context.Context, limit, offset int) ([]Quote, error)
	ListQuotesByAuthor(ctx context.Context, authorID string) ([]Quote, error)
	UpdateQuote(ctx context.Context, id, authorID, content string, now time.Time) (bool, error)
	DeleteQuote(ctx context.Context, id, authorID string) (bool, error)

	CreateComment(ctx context.Context, c *Comment) error
	FindCommentByID(ctx context.Context, id string) (*Comment, error)
	ListCommentsByQuote(ctx context.Context, quoteID string) ([]Comment, error)
	UpdateComment(ctx context.Context, id, authorID, text string) (bool, error)
	DeleteComment(ctx context.Context, id, quoteID, authorID string) (bool, error)
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a quote repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateQuote(ctx context.Context, q *Quote) error {
	query := `INSERT INTO quotes (id, author_id, content, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, q.ID, q.AuthorID, q.Content, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting quote: %w", err)
	}
	return nil
}

func (r *repository) FindQuoteByID(ctx context.Context, id string) (*Quote, error) {
	query := `SELECT ` + quoteColumns + `
	          FROM quotes q JOIN users u ON u.id = q.author_id
	          WHERE q.id = ?`
	q := &Quote{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&q.ID, &q.AuthorID, &q.AuthorUsername, &q.Content, &q.CreatedAt, &q.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Quote not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying quote: %w", err)
	}
	return q, nil
}

func (r *repository) ListQuotes(ctx context.Context, limit, offset int) ([]Quote, error) {
	query := `SELECT ` + quoteColumns + `
	          FROM quotes q JOIN users u ON u.id = q.author_id
	          ORDER BY q.created_at DESC
	          LIMIT ? OFFSET ?`
	return r.queryQuotes(ctx, query, limit, offset)
}

func (r *repository) ListQuotesByAuthor(ctx context.Context, authorID string) ([]Quote, error) {
	query := `SELECT ` + quoteColumns + `
	          FROM quotes q JOIN users u ON u.id = q.author_id
	          WHERE q.author_id = ?
	          ORDER BY q.created_at DESC`
	return r.queryQuotes(ctx, query, authorID)
}

func (r *repository) queryQuotes(ctx context.Context, query string, args ...any) ([]Quote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying quotes: %w", err)
	}
	defer rows.Close()

	quotes := []Quote{}
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.AuthorID, &q.AuthorUsername, &q.Content, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quotes: %w", err)
	}
	return quotes, nil
}

// UpdateQuote rewrites the content only when the row still belongs to
// authorID. Returns false when nothing matched.
func (r *repository) UpdateQuote(ctx context.Context, id, authorID, content string, now time.Time) (bool, error) {
	query := `UPDATE quotes SET content = ?, updated_at = ? WHERE id = ? AND author_id = ?`
	result, err := r.db.ExecContext(ctx, query, content, now, id, authorID)
	if err != nil {
		return false, fmt.Errorf("updating quote: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating quote: %w", err)
	}
	return n == 1, nil
}

// DeleteQuote removes the quote (comments cascade) only when owned by
// authorID.
func (r *repository) DeleteQuote(ctx context.Context, id, authorID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ? AND author_id = ?`, id, authorID)
	if err != nil {
		return false, fmt.Errorf("deleting quote: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting quote: %w", err)
	}
	return n == 1, nil
}

func (r *repository) CreateComment(ctx context.Context, c *Comment) error {
	query := `INSERT INTO comments (id, quote_id, author_id, username, text, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.QuoteID, c.AuthorID, c.Username, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

func (r *repository) FindCommentByID(ctx context.Context, id string) (*Comment, error) {
	query := `SELECT id, quote_id, author_id, username, text, created_at
	          FROM comments WHERE id = ?`
	c := &Comment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.QuoteID, &c.AuthorID, &c.Username, &c.Text, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Comment not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying comment: %w", err)
	}
	return c, nil
}

func (r *repository) ListCommentsByQuote(ctx context.Context, quoteID string) ([]Comment, error) {
	query := `SELECT id, quote_id, author_id, username, text, created_at
	          FROM comments WHERE quote_id = ?
	          ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.QuoteID, &c.AuthorID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return comments, nil
}

// UpdateComment rewrites the text only when the comment belongs to authorID.
func (r *repository) UpdateComment(ctx context.Context, id, authorID, text string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET text = ? WHERE id = ? AND author_id = ?`, text, id, authorID)
	if err != nil {
		return false, fmt.Errorf("updating comment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating comment: %w", err)
	}
	return n == 1, nil
}

// DeleteComment removes the comment only when it sits under quoteID and
// belongs to authorID.
func (r *repository) DeleteComment(ctx context.Context, id, quoteID, authorID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND quote_id = ? AND author_id = ?`, id, quoteID, authorID)
	if err != nil {
		return false, fmt.Errorf("deleting comment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting comment: %w", err)
	}
	return n == 1, nil
}
