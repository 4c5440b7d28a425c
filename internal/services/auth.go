package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/internal/token"
	"github.com/viewtube/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// RegisterParams carries a validated registration request. Media URLs
// are resolved by the caller before the account row is written.
type RegisterParams struct {
	FullName      string
	Email         string
	Username      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

// AuthService owns the credential and session-token lifecycle: account
// creation, login, refresh-token rotation, logout, and password change.
type AuthService struct {
	repo   UserRepository
	issuer *token.Issuer
	events *EventPublisher
}

func NewAuthService(repo UserRepository, issuer *token.Issuer, events *EventPublisher) *AuthService {
	return &AuthService{
		repo:   repo,
		issuer: issuer,
		events: events,
	}
}

// EnsureAvailable reports store.ErrConflict when the email or username
// already belongs to an account. Callers run it before upload work so
// a taken identity fails without orphaning stored media; Register
// re-checks under its own write.
func (s *AuthService) EnsureAvailable(ctx context.Context, email, username string) error {
	email = strings.TrimSpace(email)
	username = strings.ToLower(strings.TrimSpace(username))

	if _, err := s.repo.GetByIdentifier(ctx, email, username); err == nil {
		return store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check existing user: %w", err)
	}
	return nil
}

// Register creates the account. Duplicate email or username surfaces
// as store.ErrConflict.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (types.User, error) {
	email := strings.TrimSpace(params.Email)
	username := strings.ToLower(strings.TrimSpace(params.Username))

	if err := s.EnsureAvailable(ctx, email, username); err != nil {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:      username,
		Email:         email,
		FullName:      strings.TrimSpace(params.FullName),
		AvatarURL:     params.AvatarURL,
		CoverImageURL: params.CoverImageURL,
		PasswordHash:  string(hashed),
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.UserRegistered(ctx, user)
	return user, nil
}

// Login verifies the identifier/password pair, issues a fresh token
// pair, and persists the refresh token, ending any prior session.
// An unknown identifier surfaces as store.ErrNotFound; a wrong
// password as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, username, password string) (types.User, token.Pair, error) {
	user, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(email), strings.TrimSpace(username))
	if err != nil {
		return types.User{}, token.Pair{}, err
	}

	if !passwordMatches(user.PasswordHash, password) {
		return types.User{}, token.Pair{}, ErrInvalidCredentials
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return types.User{}, token.Pair{}, fmt.Errorf("issue token pair: %w", err)
	}

	if err := s.repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return types.User{}, token.Pair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	user.RefreshToken = pair.RefreshToken
	return user, pair, nil
}

// Refresh rotates the session: the presented refresh token must carry
// a valid signature, be unexpired, and still be the active token for
// its user. The swap is a compare-and-swap write, so a concurrent
// rotation or a replayed stale token loses cleanly with
// ErrInvalidRefreshToken rather than stranding the winner.
func (s *AuthService) Refresh(ctx context.Context, presented string) (types.User, token.Pair, error) {
	userID, err := s.issuer.VerifyRefresh(presented)
	if err != nil {
		return types.User{}, token.Pair{}, ErrInvalidRefreshToken
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, token.Pair{}, ErrInvalidRefreshToken
		}
		return types.User{}, token.Pair{}, err
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		return types.User{}, token.Pair{}, ErrInvalidRefreshToken
	}

	pair, err := s.issuer.IssuePair(user)
	if err != nil {
		return types.User{}, token.Pair{}, fmt.Errorf("issue token pair: %w", err)
	}

	if err := s.repo.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, token.Pair{}, ErrInvalidRefreshToken
		}
		return types.User{}, token.Pair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	user.RefreshToken = pair.RefreshToken
	return user, pair, nil
}

// Logout clears the stored refresh token. Logging out twice is not an
// error.
func (s *AuthService) Logout(ctx context.Context, userID int) error {
	return s.repo.ClearRefreshToken(ctx, userID)
}

// ChangePassword verifies the old password and stores a hash of the
// new one. A mismatch surfaces as ErrInvalidCredentials.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !passwordMatches(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, string(hashed))
}

// passwordMatches compares plaintext against a stored bcrypt hash.
// Any comparison error counts as a non-match.
func passwordMatches(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
