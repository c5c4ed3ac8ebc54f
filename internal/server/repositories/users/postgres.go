// Package users provides a PostgreSQL-backed repository for account records.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/copypaster/server/internal/dbx"
	"github.com/copypaster/server/internal/server/models"
	"github.com/copypaster/server/internal/shared"
)

// PostgresRepository implements user storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, is_verified,
	verification_token, verification_token_expiry,
	reset_token, reset_token_expiry, created_at`

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsVerified,
		&user.VerificationToken, &user.VerificationTokenExpiry,
		&user.ResetToken, &user.ResetTokenExpiry, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, verification_token, verification_token_expiry)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash,
		user.VerificationToken, user.VerificationTokenExpiry,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE verification_token = $1 AND verification_token_expiry > now()
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE reset_token = $1 AND reset_token_expiry > now()
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

// MarkVerified flips is_verified and clears the verification token.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET is_verified = TRUE, verification_token = '', verification_token_expiry = NULL
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $2, reset_token_expiry = $3
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id, token, expiry)
}

// UpdatePassword replaces the stored hash and invalidates any reset token.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = '', reset_token_expiry = NULL
		WHERE id = $1
	`
	return r.execExpectingRow(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execExpectingRow(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}
