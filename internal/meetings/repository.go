package meetings

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
)

const meetingColumns = `id, unit_id, code, title, description, meeting_type, scheduled_at,
	estimated_duration_min, organizer_id, leader_id, conference_id, join_url, start_url,
	allow_delegates, status, quorum_reached, quorum_threshold_pct, total_invited,
	total_confirmed, actual_start_at, actual_end_at, created_at, updated_at`

// Repository handles meeting persistence and lifecycle transitions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(&m.ID, &m.UnitID, &m.Code, &m.Title, &m.Description, &m.MeetingType,
		&m.ScheduledAt, &m.EstimatedDurationMin, &m.OrganizerID, &m.LeaderID,
		&m.ConferenceID, &m.JoinURL, &m.StartURL, &m.AllowDelegates, &m.Status,
		&m.QuorumReached, &m.QuorumThresholdPct, &m.TotalInvited, &m.TotalConfirmed,
		&m.ActualStartAt, &m.ActualEndAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// NewMeetingCode builds the unique meeting code U<unitId>_MTG_<random6>.
func NewMeetingCode(unitID int64) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("U%d_MTG_%s", unitID, string(buf))
}

// Create inserts the meeting and fans out invitation rows for every unit
// membership except the reserved sentinels, all in one transaction.
func (r *Repository) Create(ctx context.Context, m *models.Meeting) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO meetings (unit_id, code, title, description, meeting_type, scheduled_at,
			estimated_duration_min, organizer_id, leader_id, conference_id, join_url, start_url,
			allow_delegates, quorum_threshold_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + meetingColumns
	created, err := scanMeeting(tx.QueryRow(ctx, q, m.UnitID, m.Code, m.Title, m.Description,
		m.MeetingType, m.ScheduledAt, m.EstimatedDurationMin, m.OrganizerID, m.LeaderID,
		m.ConferenceID, m.JoinURL, m.StartURL, m.AllowDelegates, m.QuorumThresholdPct))
	if err != nil {
		return err
	}
	*m = *created

	if err := fanOutInvitations(ctx, tx, m.ID); err != nil {
		return err
	}
	if err := tx.QueryRow(ctx,
		`UPDATE meetings SET total_invited = (
			SELECT COUNT(*) FROM meeting_invitations WHERE meeting_id = $1
		) WHERE id = $1 RETURNING total_invited`, m.ID).Scan(&m.TotalInvited); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func fanOutInvitations(ctx context.Context, tx pgx.Tx, meetingID int64) error {
	const q = `INSERT INTO meeting_invitations (meeting_id, user_id, quorum_base, current_weight, apartment_number)
		SELECT mt.id, m.user_id, m.default_weight, m.default_weight, m.apartment_number
		FROM meetings mt
		JOIN unit_memberships m ON m.unit_id = mt.unit_id
		WHERE mt.id = $1 AND m.apartment_number NOT IN ($2, $3)
		ON CONFLICT ON CONSTRAINT uq_meeting_user_attendance DO NOTHING`
	_, err := tx.Exec(ctx, q, meetingID, models.ApartmentAdmin, models.ApartmentSupport)
	return err
}

// GetByID returns a meeting by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Meeting, error) {
	return scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
}

// List returns meetings, optionally filtered by unit.
func (r *Repository) List(ctx context.Context, unitID *int64) ([]models.Meeting, error) {
	base := `SELECT ` + meetingColumns + ` FROM meetings`
	var rows pgx.Rows
	var err error
	if unitID != nil {
		rows, err = r.pool.Query(ctx, base+` WHERE unit_id = $1 ORDER BY scheduled_at DESC`, *unitID)
	} else {
		rows, err = r.pool.Query(ctx, base+` ORDER BY scheduled_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Update updates mutable scheduling fields of a Scheduled meeting.
func (r *Repository) Update(ctx context.Context, m *models.Meeting) error {
	const q = `UPDATE meetings SET title = $1, description = $2, scheduled_at = $3,
			estimated_duration_min = $4, leader_id = $5, allow_delegates = $6,
			quorum_threshold_pct = $7, updated_at = NOW()
		WHERE id = $8`
	_, err := r.pool.Exec(ctx, q, m.Title, m.Description, m.ScheduledAt,
		m.EstimatedDurationMin, m.LeaderID, m.AllowDelegates, m.QuorumThresholdPct, m.ID)
	return err
}

// Delete removes a meeting; invitations and polls cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	return err
}

// Start transitions Scheduled→Live and stamps actual_start_at. Invitation
// rows are backfilled from current memberships when absent.
func (r *Repository) Start(ctx context.Context, id int64) (*models.Meeting, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m, err := scanMeeting(tx.QueryRow(ctx,
		`UPDATE meetings SET status = $1, actual_start_at = NOW(), updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING `+meetingColumns, models.MeetingLive, id, models.MeetingScheduled))
	if err != nil {
		return nil, err
	}

	if m.TotalInvited == 0 {
		if err := fanOutInvitations(ctx, tx, id); err != nil {
			return nil, err
		}
		if err := tx.QueryRow(ctx,
			`UPDATE meetings SET total_invited = (
				SELECT COUNT(*) FROM meeting_invitations WHERE meeting_id = $1
			) WHERE id = $1 RETURNING total_invited`, id).Scan(&m.TotalInvited); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// End transitions Live→Completed, stamps actual_end_at and records whether
// the attendance weight reached the meeting's quorum threshold. It runs in
// the caller's transaction alongside the closure of the meeting's polls.
func (r *Repository) End(ctx context.Context, tx pgx.Tx, id int64, quorumReached bool) (*models.Meeting, error) {
	return scanMeeting(tx.QueryRow(ctx,
		`UPDATE meetings SET status = $1, actual_end_at = NOW(), quorum_reached = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4
		 RETURNING `+meetingColumns, models.MeetingCompleted, quorumReached, id, models.MeetingLive))
}

// FindLiveForUser returns a Live meeting the user holds an invitation for
// within their unit, or pgx.ErrNoRows.
func (r *Repository) FindLiveForUser(ctx context.Context, userID int64) (*models.Meeting, error) {
	const q = `SELECT ` + meetingColumns + ` FROM meetings mt
		WHERE mt.status = $1
		  AND EXISTS (SELECT 1 FROM meeting_invitations i WHERE i.meeting_id = mt.id AND i.user_id = $2)
		ORDER BY mt.actual_start_at DESC
		LIMIT 1`
	return scanMeeting(r.pool.QueryRow(ctx, q, models.MeetingLive, userID))
}

// QuorumRatio computes attended-weight / base-weight for a meeting, both
// terms excluding sentinel apartments. Zero base yields a zero ratio.
func QuorumRatio(attended, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return attended.Div(base).Mul(decimal.NewFromInt(100))
}
