package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/journeyhub/internal/apperror"
	"github.com/sakif/journeyhub/internal/model"
	"github.com/sakif/journeyhub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, avatar_url, avatar_filename, created_at, updated_at`

// CreateUser inserts a new user, generating its id and timestamps.
//
// Uniqueness of username and email is enforced by the schema. A violation
// comes back as apperror.ErrConflict without saying which field collided,
// so a registration form cannot be used to probe for existing emails.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	avatarURL, avatarFilename := splitImage(user.Avatar)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		avatarURL,
		avatarFilename,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Username or email already in use")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

// GetUserByUsername retrieves a user by username (case-sensitive).
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

// GetUserByEmail retrieves a user by email (case-sensitive).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

// getUser looks a user up by one of its unique columns. column is always a
// constant from this file, never user input.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	var (
		u              model.User
		avatarURL      string
		avatarFilename string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&avatarURL,
		&avatarFilename,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	u.Avatar = joinImage(avatarURL, avatarFilename)
	return &u, nil
}

// UpdateUser persists email, password hash and avatar. A nil Avatar clears it.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	avatarURL, avatarFilename := splitImage(user.Avatar)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, password_hash = ?, avatar_url = ?, avatar_filename = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.PasswordHash,
		avatarURL,
		avatarFilename,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Email already in use")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// splitImage flattens an optional image into two NOT NULL columns.
func splitImage(img *model.Image) (url, filename string) {
	if img == nil {
		return "", ""
	}
	return img.URL, img.Filename
}

// joinImage is the inverse of splitImage: an empty URL means no image.
func joinImage(url, filename string) *model.Image {
	if url == "" {
		return nil
	}
	return &model.Image{URL: url, Filename: filename}
}
