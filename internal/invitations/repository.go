package invitations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
)

const invitationColumns = `id, meeting_id, user_id, quorum_base, current_weight, apartment_number,
	invitation_status, response_status, will_attend, delegated_to, actually_attended,
	joined_at, left_at, created_at, updated_at`

// Repository handles the per-(meeting,user) weight ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invitations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanInvitation(row interface{ Scan(...interface{}) error }) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(&inv.ID, &inv.MeetingID, &inv.UserID, &inv.QuorumBase, &inv.CurrentWeight,
		&inv.ApartmentNumber, &inv.InvitationStatus, &inv.ResponseStatus, &inv.WillAttend,
		&inv.DelegatedTo, &inv.ActuallyAttended, &inv.JoinedAt, &inv.LeftAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByMeetingAndUser returns the invitation for (meetingID, userID).
func (r *Repository) GetByMeetingAndUser(ctx context.Context, meetingID, userID int64) (*models.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM meeting_invitations WHERE meeting_id = $1 AND user_id = $2`,
		meetingID, userID))
}

// ListByMeeting returns all invitations of a meeting.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID int64) ([]models.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM meeting_invitations WHERE meeting_id = $1 ORDER BY id`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inv)
	}
	return list, rows.Err()
}

// CreateBatch fans out invitation rows for the given users, deriving weight
// and apartment from their unit membership. Sentinel apartments are skipped;
// existing rows are left untouched. Returns the meeting's invitation count.
func (r *Repository) CreateBatch(ctx context.Context, meetingID int64, userIDs []int64) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO meeting_invitations (meeting_id, user_id, quorum_base, current_weight, apartment_number)
		SELECT mt.id, m.user_id, m.default_weight, m.default_weight, m.apartment_number
		FROM meetings mt
		JOIN unit_memberships m ON m.unit_id = mt.unit_id
		WHERE mt.id = $1
		  AND m.user_id = ANY($2)
		  AND m.apartment_number NOT IN ($3, $4)
		ON CONFLICT ON CONSTRAINT uq_meeting_user_attendance DO NOTHING`
	if _, err := tx.Exec(ctx, q, meetingID, userIDs, models.ApartmentAdmin, models.ApartmentSupport); err != nil {
		return 0, err
	}

	var total int
	err = tx.QueryRow(ctx,
		`UPDATE meetings SET total_invited = (
			SELECT COUNT(*) FROM meeting_invitations WHERE meeting_id = $1
		), updated_at = NOW() WHERE id = $1 RETURNING total_invited`, meetingID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, tx.Commit(ctx)
}

// RegisterAttendance marks the user present. Idempotent: a second call is a
// re-join and clears left_at without touching joined_at.
func (r *Repository) RegisterAttendance(ctx context.Context, meetingID, userID int64) (*models.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`UPDATE meeting_invitations
		 SET actually_attended = TRUE,
		     joined_at = COALESCE(joined_at, NOW()),
		     left_at = NULL,
		     updated_at = NOW()
		 WHERE meeting_id = $1 AND user_id = $2
		 RETURNING `+invitationColumns, meetingID, userID))
}

// RegisterLeave stamps left_at for the user's invitation.
func (r *Repository) RegisterLeave(ctx context.Context, meetingID, userID int64) (*models.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`UPDATE meeting_invitations SET left_at = NOW(), updated_at = NOW()
		 WHERE meeting_id = $1 AND user_id = $2
		 RETURNING `+invitationColumns, meetingID, userID))
}

// WeightSummary aggregates the meeting's ledger for quorum decisions.
// Sentinel apartments are excluded from every term.
type WeightSummary struct {
	BaseTotal      decimal.Decimal `json:"base_total"`
	CurrentTotal   decimal.Decimal `json:"current_total"`
	AttendedWeight decimal.Decimal `json:"attended_weight"`
	Invited        int             `json:"invited"`
	Attended       int             `json:"attended"`
}

// SummarizeWeights returns the ledger aggregates for a meeting.
func (r *Repository) SummarizeWeights(ctx context.Context, meetingID int64) (*WeightSummary, error) {
	const q = `SELECT
			COALESCE(SUM(quorum_base), 0),
			COALESCE(SUM(current_weight), 0),
			COALESCE(SUM(current_weight) FILTER (WHERE actually_attended), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE actually_attended)
		FROM meeting_invitations
		WHERE meeting_id = $1 AND apartment_number NOT IN ($2, $3)`
	var s WeightSummary
	err := r.pool.QueryRow(ctx, q, meetingID, models.ApartmentAdmin, models.ApartmentSupport).
		Scan(&s.BaseTotal, &s.CurrentTotal, &s.AttendedWeight, &s.Invited, &s.Attended)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkSent transitions pending invitation rows to sent after fan-out
// notifications are queued.
func (r *Repository) MarkSent(ctx context.Context, meetingID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meeting_invitations SET invitation_status = 'sent', updated_at = NOW()
		 WHERE meeting_id = $1 AND invitation_status = 'pending'`, meetingID)
	return err
}
