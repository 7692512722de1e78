package units

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
)

// ErrNoMembership is returned when the target user has no membership in the
// unit being modified.
var ErrNoMembership = errors.New("no membership in unit")

// Repository handles unit and membership persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a units repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new unit.
func (r *Repository) Create(ctx context.Context, u *models.Unit) error {
	const q = `INSERT INTO units (name, address, created_by) VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, u.Name, u.Address, u.CreatedBy).Scan(&u.ID, &u.CreatedAt)
}

// GetByID returns a unit by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Unit, error) {
	const q = `SELECT id, name, address, created_by, created_at FROM units WHERE id = $1`
	var u models.Unit
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Name, &u.Address, &u.CreatedBy, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Member is a membership joined with its user for listings.
type Member struct {
	models.UnitMembership
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	RoleID     int    `json:"role_id"`
	AllowEntry bool   `json:"allow_entry"`
}

// ListMembers returns all memberships of a unit with user details.
func (r *Repository) ListMembers(ctx context.Context, unitID int64) ([]Member, error) {
	const q = `SELECT m.user_id, m.unit_id, m.apartment_number, m.is_admin, m.default_weight, m.created_at,
			u.username, u.full_name, u.email, u.role_id, u.allow_entry
		FROM unit_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.unit_id = $1
		ORDER BY m.apartment_number, u.username`
	rows, err := r.pool.Query(ctx, q, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.UnitID, &m.ApartmentNumber, &m.IsAdmin, &m.DefaultWeight, &m.CreatedAt,
			&m.Username, &m.FullName, &m.Email, &m.RoleID, &m.AllowEntry); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetMembership returns the membership for (unitID, userID).
func (r *Repository) GetMembership(ctx context.Context, unitID, userID int64) (*models.UnitMembership, error) {
	const q = `SELECT user_id, unit_id, apartment_number, is_admin, default_weight, created_at
		FROM unit_memberships WHERE unit_id = $1 AND user_id = $2`
	var m models.UnitMembership
	err := r.pool.QueryRow(ctx, q, unitID, userID).
		Scan(&m.UserID, &m.UnitID, &m.ApartmentNumber, &m.IsAdmin, &m.DefaultWeight, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// IsUnitAdmin reports whether the user is flagged is_admin on the unit.
func (r *Repository) IsUnitAdmin(ctx context.Context, unitID, userID int64) (bool, error) {
	const q = `SELECT 1 FROM unit_memberships WHERE unit_id = $1 AND user_id = $2 AND is_admin`
	var one int
	err := r.pool.QueryRow(ctx, q, unitID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpsertMembership creates or updates a membership row.
func (r *Repository) UpsertMembership(ctx context.Context, m *models.UnitMembership) error {
	const q = `INSERT INTO unit_memberships (user_id, unit_id, apartment_number, is_admin, default_weight)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, unit_id) DO UPDATE
		SET apartment_number = EXCLUDED.apartment_number, default_weight = EXCLUDED.default_weight
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q, m.UserID, m.UnitID, m.ApartmentNumber, m.IsAdmin, m.DefaultWeight).
		Scan(&m.CreatedAt)
}

// RotateAdmin atomically moves the admin flag from the current admin to the
// new one. The outgoing admin also loses entry; the incoming one gains it.
func (r *Repository) RotateAdmin(ctx context.Context, unitID, newAdminUserID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var oldAdminID int64
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM unit_memberships WHERE unit_id = $1 AND is_admin FOR UPDATE`,
		unitID).Scan(&oldAdminID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE unit_memberships SET is_admin = FALSE WHERE unit_id = $1 AND user_id = $2`,
		unitID, oldAdminID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET allow_entry = FALSE, updated_at = NOW() WHERE id = $1`, oldAdminID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE unit_memberships SET is_admin = TRUE WHERE unit_id = $1 AND user_id = $2`,
		unitID, newAdminUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoMembership
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET allow_entry = TRUE, role_id = $1, updated_at = NOW() WHERE id = $2`,
		models.RoleUnitAdmin, newAdminUserID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateAdmin atomically creates the administrator user and its membership
// with the ADMIN sentinel (or a supplied apartment).
func (r *Repository) CreateAdmin(ctx context.Context, unitID int64, username, passwordHash, fullName, email, apartment string) (*models.User, error) {
	if apartment == "" {
		apartment = models.ApartmentAdmin
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var u models.User
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, full_name, email, role_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, username, password_hash, full_name, email, role_id, allow_entry, data_ref, created_at, updated_at`,
		strings.ToLower(username), passwordHash, fullName, email, models.RoleUnitAdmin).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email,
			&u.RoleID, &u.AllowEntry, &u.DataRef, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE unit_memberships SET is_admin = FALSE WHERE unit_id = $1 AND is_admin`, unitID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO unit_memberships (user_id, unit_id, apartment_number, is_admin, default_weight)
		 VALUES ($1, $2, $3, TRUE, 0)`,
		u.ID, unitID, apartment); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes a unit. Users whose only membership is this unit are removed
// with it; shared users survive.
func (r *Repository) Delete(ctx context.Context, unitID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM users WHERE id IN (
			SELECT m.user_id FROM unit_memberships m
			WHERE m.unit_id = $1
			AND NOT EXISTS (
				SELECT 1 FROM unit_memberships o
				WHERE o.user_id = m.user_id AND o.unit_id <> $1
			)
		)`, unitID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM units WHERE id = $1`, unitID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DefaultWeightFor returns the membership default weight for a user in the
// unit owning the given meeting. Zero when no membership exists.
func (r *Repository) DefaultWeightFor(ctx context.Context, meetingID, userID int64) (decimal.Decimal, bool, error) {
	const q = `SELECT m.default_weight FROM unit_memberships m
		JOIN meetings mt ON mt.unit_id = m.unit_id
		WHERE mt.id = $1 AND m.user_id = $2`
	var w decimal.Decimal
	err := r.pool.QueryRow(ctx, q, meetingID, userID).Scan(&w)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return w, true, nil
}
