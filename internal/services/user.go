package services

import (
	"context"
	"strings"

	"github.com/viewtube/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByIdentifier(ctx context.Context, email, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	SetRefreshToken(ctx context.Context, id int, token string) error
	RotateRefreshToken(ctx context.Context, id int, presented, next string) error
	ClearRefreshToken(ctx context.Context, id int) error
}

// AccountPatch carries the optional identity fields of a profile
// update. Nil fields are left unchanged.
type AccountPatch struct {
	FullName *string
	Email    *string
	Username *string
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.Username == nil
}

// UserService encapsulates profile use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateAccount applies the non-nil fields of the patch to the user's
// identity fields. A patched field that trims to empty surfaces as
// ErrBlankField; the identity fields are required at registration and
// stay required afterwards.
func (s *UserService) UpdateAccount(ctx context.Context, id int, patch AccountPatch) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if patch.FullName != nil {
		fullName := strings.TrimSpace(*patch.FullName)
		if fullName == "" {
			return types.User{}, ErrBlankField
		}
		user.FullName = fullName
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email == "" {
			return types.User{}, ErrBlankField
		}
		user.Email = email
	}
	if patch.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*patch.Username))
		if username == "" {
			return types.User{}, ErrBlankField
		}
		user.Username = username
	}

	return s.repo.UpdateProfile(ctx, user)
}

// UpdateAvatar replaces the user's avatar URL.
func (s *UserService) UpdateAvatar(ctx context.Context, id int, url string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.AvatarURL = url
	return s.repo.UpdateProfile(ctx, user)
}

// UpdateCoverImage replaces the user's cover image URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, id int, url string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.CoverImageURL = url
	return s.repo.UpdateProfile(ctx, user)
}
