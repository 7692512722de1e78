package notifications

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vecinal/backend/internal/models"
)

const logColumns = `id, user_id, meeting_id, template, recipient_email, subject,
	status, sent_at, error_message, created_at`

// Repository handles the append-only notification log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create appends one pending log row.
func (r *Repository) Create(ctx context.Context, n *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (user_id, meeting_id, template, recipient_email, subject)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, q, n.UserID, n.MeetingID, n.Template, n.RecipientEmail, n.Subject).
		Scan(&n.ID, &n.Status, &n.CreatedAt)
}

// CreateMeetingInvites appends one pending invite row per invited user,
// resolving recipient addresses from the user records.
func (r *Repository) CreateMeetingInvites(ctx context.Context, meetingID int64, subject string) ([]models.NotificationLog, error) {
	const q = `INSERT INTO notification_logs (user_id, meeting_id, template, recipient_email, subject)
		SELECT i.user_id, i.meeting_id, $1, u.email, $2
		FROM meeting_invitations i
		JOIN users u ON u.id = i.user_id
		WHERE i.meeting_id = $3
		RETURNING ` + logColumns
	rows, err := r.pool.Query(ctx, q, models.TemplateMeetingInvite, subject, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.NotificationLog
	for rows.Next() {
		var n models.NotificationLog
		if err := rows.Scan(&n.ID, &n.UserID, &n.MeetingID, &n.Template, &n.RecipientEmail,
			&n.Subject, &n.Status, &n.SentAt, &n.ErrorMessage, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkSent transitions pending→sent and stamps sent_at.
func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_logs SET status = $1, sent_at = NOW() WHERE id = $2`,
		models.NotificationSent, id)
	return err
}

// MarkFailed transitions to failed and records the delivery error.
func (r *Repository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_logs SET status = $1, error_message = $2 WHERE id = $3`,
		models.NotificationFailed, errMsg, id)
	return err
}

// ListByMeeting returns the meeting's notification log, newest first.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID int64) ([]models.NotificationLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+logColumns+` FROM notification_logs WHERE meeting_id = $1 ORDER BY id DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.NotificationLog
	for rows.Next() {
		var n models.NotificationLog
		if err := rows.Scan(&n.ID, &n.UserID, &n.MeetingID, &n.Template, &n.RecipientEmail,
			&n.Subject, &n.Status, &n.SentAt, &n.ErrorMessage, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// EmailOf returns a user's email address, empty when the user is missing.
func (r *Repository) EmailOf(ctx context.Context, userID int64) string {
	var email string
	if err := r.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email); err != nil {
		return ""
	}
	return email
}
