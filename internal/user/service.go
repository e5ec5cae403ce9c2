// Package user implements profile reads and updates on top of the identity
// records owned by the auth package.
package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dostonbek1/quotehub/internal/apperror"
	"github.com/dostonbek1/quotehub/internal/auth"
	"github.com/dostonbek1/quotehub/internal/quote"
)

const bioMaxLen = 200

// PublicProfile is the view of a user shown to anyone. No email.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	JoinedAt string `json:"joined_at"`
}

// UpdateProfileRequest carries the whitelisted profile fields. Absent fields
// stay unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
}

// Service defines profile operations.
type Service interface {
	Me(ctx context.Context, userID string) (auth.Profile, []quote.Quote, error)
	ByUsername(ctx context.Context, username string) (*PublicProfile, []quote.Quote, error)
	UpdateMe(ctx context.Context, userID string, req UpdateProfileRequest) (auth.Profile, error)
}

type service struct {
	users  auth.UserRepository
	quotes quote.Service
}

// NewService creates the profile service.
func NewService(users auth.UserRepository, quotes quote.Service) Service {
	return &service{users: users, quotes: quotes}
}

// Me returns the caller's own profile and their quotes.
func (s *service) Me(ctx context.Context, userID string) (auth.Profile, []quote.Quote, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return auth.Profile{}, nil, apperror.NewNotFound("User not found.")
		}
		return auth.Profile{}, nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	quotes, err := s.quotes.ListByAuthor(ctx, userID)
	if err != nil {
		return auth.Profile{}, nil, err
	}

	return u.Profile(), quotes, nil
}

// ByUsername returns a public profile and the user's quotes.
func (s *service) ByUsername(ctx context.Context, username string) (*PublicProfile, []quote.Quote, error) {
	u, err := s.users.FindByUsername(ctx, auth.NormalizeUsername(username))
	if err != nil {
		if apperror.SafeCode(err) == 404 {
			return nil, nil, apperror.NewNotFound("User not found.")
		}
		return nil, nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	quotes, err := s.quotes.ListByAuthor(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	return &PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		Bio:      u.Bio,
		JoinedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}, quotes, nil
}

// UpdateMe applies the whitelisted fields after validation. A username
// collision surfaces as 409.
func (s *service) UpdateMe(ctx context.Context, userID string, req UpdateProfileRequest) (auth.Profile, error) {
	update := auth.ProfileUpdate{Avatar: req.Avatar}

	if req.Username != nil {
		username := auth.NormalizeUsername(*req.Username)
		if msg := auth.ValidateUsername(username); msg != "" {
			return auth.Profile{}, apperror.NewBadRequest(msg)
		}
		update.Username = &username
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if len(bio) > bioMaxLen {
			return auth.Profile{}, apperror.NewBadRequest("Bio is too long (maximum 200 characters).")
		}
		update.Bio = &bio
	}

	u, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		if appErr, ok := err.(*apperror.AppError); ok {
			return auth.Profile{}, appErr
		}
		return auth.Profile{}, apperror.NewInternal(fmt.Errorf("updating profile: %w", err))
	}

	return u.Profile(), nil
}
