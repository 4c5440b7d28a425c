package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/viewtube/apiserver/types"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername matches the username case-insensitively; usernames are
// stored lowercased but channel lookups accept any casing.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = LOWER($1)`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetByIdentifier resolves a login identifier that may be an email
// address or a username. Either argument may be empty.
func (r *UserRepository) GetByIdentifier(ctx context.Context, email, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE (email = $1 AND $1 <> '') OR (username = LOWER($2) AND $2 <> '')
		LIMIT 1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email, username))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.CoverImageURL,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapConstraintError(err)
	}
	return user, nil
}

// UpdateProfile writes identity and media fields only; the password
// hash and refresh token are managed by their own operations.
func (r *UserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			full_name = $3,
			avatar_url = $4,
			cover_image_url = NULLIF($5, ''),
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.CoverImageURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapConstraintError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRefreshToken unconditionally replaces the stored refresh token,
// invalidating any prior session. Used on login.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id int, token string) error {
	const query = `
		UPDATE users
		SET refresh_token = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, token, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken swaps the stored refresh token for a new one only
// if the stored value still equals the presented one. A concurrent
// rotation or a replayed stale token makes the predicate fail, which is
// reported as ErrNotFound.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id int, presented, next string) error {
	const query = `
		UPDATE users
		SET refresh_token = $1, updated_at = $2
		WHERE id = $3 AND refresh_token = $4`
	result, err := r.db.ExecContext(ctx, query, next, time.Now(), id, presented)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRefreshToken ends the user's session. It is idempotent.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id int) error {
	const query = `
		UPDATE users
		SET refresh_token = NULL, updated_at = $1
		WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

func (r *UserRepository) scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var coverImage, refreshToken sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&coverImage,
		&user.PasswordHash,
		&refreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.CoverImageURL = coverImage.String
	user.RefreshToken = refreshToken.String
	return user, nil
}

func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrConflict
	}
	return err
}
