package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dostonbek1/quotehub/internal/apperror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service defines the quote and comment operations. Mutations on existing
// rows require ownership; a non-owner gets a 403, never a silent no-op.
type Service interface {
	Create(ctx context.Context, authorID, content string) (*Quote, error)
	List(ctx context.Context, page, pageSize int) ([]Quote, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Quote, error)
	Get(ctx context.Context, id string) (*QuoteDetail, error)
	Update(ctx context.Context, id, authorID, content string) (*Quote, error)
	Delete(ctx context.Context, id, authorID string) error

	AddComment(ctx context.Context, quoteID, authorID, username, text string) (*Comment, error)
	UpdateComment(ctx context.Context, commentID, authorID, text string) (*Comment, error)
	DeleteComment(ctx context.Context, quoteID, commentID, authorID string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates the quote service.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Create(ctx context.Context, authorID, content string) (*Quote, error) {
	content = strings.TrimSpace(content)
	if msg := validateContent(content); msg != "" {
		return nil, apperror.NewBadRequest(msg)
	}

	now := s.now().UTC()
	q := &Quote{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateQuote(ctx, q); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating quote: %w", err))
	}

	// Reload to pick up the author username join.
	created, err := s.repo.FindQuoteByID(ctx, q.ID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reloading quote: %w", err))
	}
	return created, nil
}

func (s *service) List(ctx context.Context, page, pageSize int) ([]Quote, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	quotes, err := s.repo.ListQuotes(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing quotes: %w", err))
	}
	return quotes, nil
}

func (s *service) ListByAuthor(ctx context.Context, authorID string) ([]Quote, error) {
	quotes, err := s.repo.ListQuotesByAuthor(ctx, authorID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing quotes by author: %w", err))
	}
	return quotes, nil
}

func (s *service) Get(ctx context.Context, id string) (*QuoteDetail, error) {
	q, err := s.repo.FindQuoteByID(ctx, id)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding quote: %w", err))
	}

	comments, err := s.repo.ListCommentsByQuote(ctx, id)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing comments: %w", err))
	}

	return &QuoteDetail{Quote: *q, Comments: comments}, nil
}

func (s *service) Update(ctx context.Context, id, authorID, content string) (*Quote, error) {
	content = strings.TrimSpace(content)
	if msg := validateContent(content); msg != "" {
		return nil, apperror.NewBadRequest(msg)
	}

	updated, err := s.repo.UpdateQuote(ctx, id, authorID, content, s.now().UTC())
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating quote: %w", err))
	}
	if !updated {
		return nil, s.ownershipFailure(ctx, id)
	}

	q, err := s.repo.FindQuoteByID(ctx, id)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reloading quote: %w", err))
	}
	return q, nil
}

func (s *service) Delete(ctx context.Context, id, authorID string) error {
	deleted, err := s.repo.DeleteQuote(ctx, id, authorID)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting quote: %w", err))
	}
	if !deleted {
		return s.ownershipFailure(ctx, id)
	}
	return nil
}

// ownershipFailure distinguishes a missing quote from someone else's quote
// after a conditional write matched nothing.
func (s *service) ownershipFailure(ctx context.Context, id string) error {
	if _, err := s.repo.FindQuoteByID(ctx, id); err != nil {
		if apperror.SafeCode(err) == 404 {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("checking quote ownership: %w", err))
	}
	return apperror.NewForbidden("You can only modify your own quotes.")
}

func (s *service) AddComment(ctx context.Context, quoteID, authorID, username, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if msg := validateComment(text); msg != "" {
		return nil, apperror.NewBadRequest(msg)
	}

	// The quote must exist; a 404 here beats a foreign-key error later.
	if _, err := s.repo.FindQuoteByID(ctx, quoteID); err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding quote: %w", err))
	}

	c := &Comment{
		ID:        uuid.NewString(),
		QuoteID:   quoteID,
		AuthorID:  authorID,
		Username:  username,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating comment: %w", err))
	}
	return c, nil
}

func (s *service) UpdateComment(ctx context.Context, commentID, authorID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if msg := validateComment(text); msg != "" {
		return nil, apperror.NewBadRequest(msg)
	}

	updated, err := s.repo.UpdateComment(ctx, commentID, authorID, text)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating comment: %w", err))
	}
	if !updated {
		return nil, s.commentOwnershipFailure(ctx, commentID)
	}

	c, err := s.repo.FindCommentByID(ctx, commentID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reloading comment: %w", err))
	}
	return c, nil
}

func (s *service) DeleteComment(ctx context.Context, quoteID, commentID, authorID string) error {
	deleted, err := s.repo.DeleteComment(ctx, commentID, quoteID, authorID)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting comment: %w", err))
	}
	if !deleted {
		return s.commentOwnershipFailure(ctx, commentID)
	}
	return nil
}

func (s *service) commentOwnershipFailure(ctx context.Context, commentID string) error {
	if _, err := s.repo.FindCommentByID(ctx, commentID); err != nil {
		if apperror.SafeCode(err) == 404 {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("checking comment ownership: %w", err))
	}
	return apperror.NewForbidden("You can only modify your own comments.")
}
