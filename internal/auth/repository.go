package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecinal/backend/internal/models"
)

const userColumns = `id, username, password_hash, full_name, email, role_id, allow_entry, data_ref, created_at, updated_at`

// Repository handles user, session and auto-login token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email,
		&u.RoleID, &u.AllowEntry, &u.DataRef, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername returns a user by username (case-insensitive).
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, strings.ToLower(username)))
}

// Create inserts a new user. Username is lowercased before storage.
func (r *Repository) Create(ctx context.Context, username, passwordHash, fullName, email string, roleID int) (*models.User, error) {
	const q = `INSERT INTO users (username, password_hash, full_name, email, role_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, strings.ToLower(username), passwordHash, fullName, email, roleID))
}

// CompleteLogin persists a fresh session and, when the bcrypt cost was
// upgraded during verification, rewrites the stored hash in the same
// transaction.
func (r *Repository) CompleteLogin(ctx context.Context, s *models.Session, upgradedHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if upgradedHash != "" {
		if _, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
			upgradedHash, s.UserID); err != nil {
			return err
		}
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO sessions (user_id, token_jti, device_info, ip, expires_at)
		 VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5)
		 RETURNING id, created_at, active`,
		s.UserID, s.TokenJTI, s.DeviceInfo, s.IP, s.ExpiresAt).
		Scan(&s.ID, &s.CreatedAt, &s.Active)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetSessionByJTI returns the session for a token jti.
func (r *Repository) GetSessionByJTI(ctx context.Context, jti string) (*models.Session, error) {
	const q = `SELECT id, user_id, token_jti, COALESCE(device_info,''), COALESCE(ip,''), created_at, expires_at, active
		FROM sessions WHERE token_jti = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, jti).
		Scan(&s.ID, &s.UserID, &s.TokenJTI, &s.DeviceInfo, &s.IP, &s.CreatedAt, &s.ExpiresAt, &s.Active)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeactivateSession marks a session inactive (logout).
func (r *Repository) DeactivateSession(ctx context.Context, jti string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET active = FALSE WHERE token_jti = $1`, jti)
	return err
}

// SessionValid reports whether the session for jti is active and unexpired.
func (r *Repository) SessionValid(ctx context.Context, jti string, now time.Time) (bool, error) {
	s, err := r.GetSessionByJTI(ctx, jti)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return s.Active && now.Before(s.ExpiresAt), nil
}

// UpsertAutoLoginToken overwrites the single-holder record for the user,
// invalidating every prior auto-login token that user held.
func (r *Repository) UpsertAutoLoginToken(ctx context.Context, userID int64, tokenID string) error {
	const q = `INSERT INTO auto_login_tokens (user_id, token_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT uq_user_auto_login_token
		DO UPDATE SET token_id = EXCLUDED.token_id, ip = NULL, created_at = NOW()`
	_, err := r.pool.Exec(ctx, q, userID, tokenID)
	return err
}

// GetAutoLoginToken returns the live record for a user, or pgx.ErrNoRows.
func (r *Repository) GetAutoLoginToken(ctx context.Context, userID int64) (*models.AutoLoginToken, error) {
	const q = `SELECT user_id, token_id, COALESCE(ip,''), created_at FROM auto_login_tokens WHERE user_id = $1`
	var t models.AutoLoginToken
	err := r.pool.QueryRow(ctx, q, userID).Scan(&t.UserID, &t.TokenID, &t.IP, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TouchAutoLoginIP records the redeeming client address on the record.
func (r *Repository) TouchAutoLoginIP(ctx context.Context, userID int64, ip string) error {
	_, err := r.pool.Exec(ctx, `UPDATE auto_login_tokens SET ip = $1 WHERE user_id = $2`, ip, userID)
	return err
}
