package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/shortsgen/internal/apperror"
	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, google_id, email, name, frequency, access_token, refresh_token,
	token_expiry, created_at, updated_at`

// Upsert inserts or updates a user keyed by Google ID.
//
// Existing users keep their internal ID, CreatedAt, and Frequency. Google
// only returns a refresh token on consent, so an empty RefreshToken keeps the
// stored one. On return the struct holds the canonical row.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	existing, err := db.getUserBy(ctx, "google_id", user.GoogleID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqlite: looking up user by google_id %s: %w", user.GoogleID, err)
	}

	now := time.Now().UTC()

	if existing != nil {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		user.Frequency = existing.Frequency
		if user.RefreshToken == "" {
			user.RefreshToken = existing.RefreshToken
		}
		if user.AccessToken == "" {
			user.AccessToken = existing.AccessToken
			user.TokenExpiry = existing.TokenExpiry
		}
		user.UpdatedAt = now

		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, name = ?, access_token = ?, refresh_token = ?,
			 token_expiry = ?, updated_at = ?
			 WHERE id = ?`,
			user.Email,
			user.Name,
			user.AccessToken,
			user.RefreshToken,
			user.TokenExpiry,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Frequency == 0 {
		user.Frequency = model.DefaultFrequency
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GoogleID,
		user.Email,
		user.Name,
		user.Frequency,
		user.AccessToken,
		user.RefreshToken,
		user.TokenExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (googleID=%s): %w", user.GoogleID, err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserBy(ctx, "id", id)
}

// GetUserByGoogleID retrieves a user by Google subject.
func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return db.getUserBy(ctx, "google_id", googleID)
}

// getUserBy looks a user up by a unique column. column is always a constant
// from this file, never caller input.
func (db *DB) getUserBy(ctx context.Context, column, value string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`,
		value,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", column, value, err)
	}
	return u, nil
}

// ListUsers returns all users in registration order.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// UpdateFrequency sets a user's videos-per-period setting.
func (db *DB) UpdateFrequency(ctx context.Context, id string, frequency int) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET frequency = ?, updated_at = ? WHERE id = ?`,
		frequency, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating frequency for user %s: %w", id, err)
	}
	return requireOneRow(result, "user", id)
}

// UpdateTokens stores a refreshed OAuth token. An empty refreshToken keeps
// the stored one; Google usually omits it on refresh.
func (db *DB) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET access_token = ?,
		        refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
		        token_expiry = ?, updated_at = ?
		 WHERE id = ?`,
		accessToken, refreshToken, refreshToken, expiry, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating tokens for user %s: %w", id, err)
	}
	return requireOneRow(result, "user", id)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u      model.User
		expiry sql.NullTime
	)
	err := s.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.Name,
		&u.Frequency,
		&u.AccessToken,
		&u.RefreshToken,
		&expiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		u.TokenExpiry = expiry.Time
	}
	return &u, nil
}

// requireOneRow turns "no rows affected" into apperror.ErrNotFound.
func requireOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
