package delegations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

// Actor identifies who requested the mutation for authorisation and the log.
type Actor struct {
	UserID int64
	RoleID int
}

// Repository runs the weight-transfer transactions. Every mutation takes the
// meeting row lock first, so delegations serialise against each other and
// against poll starts on the same meeting.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a delegations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// lockedMeeting is the subset of the meeting row read under FOR UPDATE.
type lockedMeeting struct {
	ID             int64
	Status         string
	OrganizerID    int64
	LeaderID       *int64
	AllowDelegates bool
}

func lockMeeting(ctx context.Context, tx pgx.Tx, meetingID int64) (*lockedMeeting, error) {
	var m lockedMeeting
	err := tx.QueryRow(ctx,
		`SELECT id, status, organizer_id, leader_id, allow_delegates
		 FROM meetings WHERE id = $1 FOR UPDATE`, meetingID).
		Scan(&m.ID, &m.Status, &m.OrganizerID, &m.LeaderID, &m.AllowDelegates)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *lockedMeeting) runBy(actor Actor) bool {
	if actor.RoleID == models.RoleSuperAdmin || m.OrganizerID == actor.UserID {
		return true
	}
	return m.LeaderID != nil && *m.LeaderID == actor.UserID
}

// mapTxError converts serialisation failures into Conflict so overlapping
// delegations surface as retryable collisions.
func mapTxError(err error, notFoundMsg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "55P03") {
		return apperr.Conflict(apperr.CodeAlreadyDelegated, "a concurrent delegation touched the same invitations")
	}
	return apperr.FromDB(err, notFoundMsg)
}

// Create transfers the current weight of every delegator to the delegate in
// one transaction, zeroing the delegators and logging each transfer.
func (r *Repository) Create(ctx context.Context, meetingID int64, delegatorIDs []int64, delegateID int64, actor Actor) ([]models.DelegationLog, error) {
	if len(delegatorIDs) == 0 {
		return nil, apperr.Validation("at least one delegator is required")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "meeting not found")
	}
	defer tx.Rollback(ctx)

	meeting, err := lockMeeting(ctx, tx, meetingID)
	if err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	if !meeting.runBy(actor) {
		return nil, apperr.Forbidden(apperr.CodePermissionDenied, "only the organizer or leader may delegate weights")
	}
	if meeting.Status != models.MeetingLive {
		return nil, apperr.Business(apperr.CodeMeetingNotActive, "meeting is not live")
	}
	if !meeting.AllowDelegates {
		return nil, apperr.Forbidden(apperr.CodePermissionDenied, "meeting does not allow delegations")
	}

	var one int
	err = tx.QueryRow(ctx,
		`SELECT 1 FROM polls WHERE meeting_id = $1 AND status = $2 LIMIT 1`,
		meetingID, models.PollActive).Scan(&one)
	if err == nil {
		return nil, apperr.Business(apperr.CodeActivePollsExist, "delegations are forbidden while a poll is open")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapTxError(err, "meeting not found")
	}

	parties := append(append([]int64{}, delegatorIDs...), delegateID)
	rows, err := tx.Query(ctx,
		`SELECT id, user_id, quorum_base, current_weight, delegated_to
		 FROM meeting_invitations
		 WHERE meeting_id = $1 AND user_id = ANY($2)
		 ORDER BY id
		 FOR UPDATE`, meetingID, parties)
	if err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	byUser := make(map[int64]models.Invitation, len(parties))
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.QuorumBase, &inv.CurrentWeight, &inv.DelegatedTo); err != nil {
			rows.Close()
			return nil, mapTxError(err, "meeting not found")
		}
		inv.MeetingID = meetingID
		byUser[inv.UserID] = inv
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}

	delegate, ok := byUser[delegateID]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeResourceNotFound, "delegate has no invitation for this meeting")
	}
	delegators := make([]models.Invitation, 0, len(delegatorIDs))
	seen := make(map[int64]struct{}, len(delegatorIDs))
	for _, id := range delegatorIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		inv, ok := byUser[id]
		if !ok {
			return nil, apperr.NotFound(apperr.CodeResourceNotFound, "a delegator has no invitation for this meeting")
		}
		delegators = append(delegators, inv)
	}

	err = tx.QueryRow(ctx,
		`SELECT 1 FROM poll_responses r
		 JOIN polls p ON p.id = r.poll_id
		 WHERE p.meeting_id = $1 AND r.user_id = ANY($2)
		 LIMIT 1`, meetingID, delegatorIDs).Scan(&one)
	if err == nil {
		return nil, apperr.Conflict(apperr.CodeAlreadyVoted, "a delegator has already voted in this meeting")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapTxError(err, "meeting not found")
	}

	total, appErr := checkAdmission(delegators, &delegate)
	if appErr != nil {
		return nil, appErr
	}

	if _, err := tx.Exec(ctx,
		`UPDATE meeting_invitations SET current_weight = 0, delegated_to = $1, updated_at = NOW()
		 WHERE meeting_id = $2 AND user_id = ANY($3)`,
		delegateID, meetingID, delegatorIDs); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE meeting_invitations SET current_weight = current_weight + $1, updated_at = NOW()
		 WHERE meeting_id = $2 AND user_id = $3`,
		total, meetingID, delegateID); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}

	logs := make([]models.DelegationLog, 0, len(delegators))
	for _, d := range delegators {
		entry := models.DelegationLog{
			MeetingID:   meetingID,
			DelegatorID: d.UserID,
			DelegateID:  delegateID,
			Weight:      d.CurrentWeight,
			Action:      "created",
		}
		entry.ActorID = &actor.UserID
		if err := tx.QueryRow(ctx,
			`INSERT INTO delegation_logs (meeting_id, delegator_id, delegate_id, weight, action, actor_id)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
			entry.MeetingID, entry.DelegatorID, entry.DelegateID, entry.Weight, entry.Action, entry.ActorID).
			Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return nil, mapTxError(err, "meeting not found")
		}
		logs = append(logs, entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	return logs, nil
}

// Revoke restores a delegator's quorum base and subtracts it from the
// delegate, clamping at zero. Responses the delegate already cast keep their
// time-of-cast weight.
func (r *Repository) Revoke(ctx context.Context, meetingID, delegatorID int64, actor Actor) (*models.DelegationLog, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "meeting not found")
	}
	defer tx.Rollback(ctx)

	meeting, err := lockMeeting(ctx, tx, meetingID)
	if err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	if !meeting.runBy(actor) {
		return nil, apperr.Forbidden(apperr.CodePermissionDenied, "only the organizer or leader may revoke delegations")
	}

	var delegator models.Invitation
	err = tx.QueryRow(ctx,
		`SELECT id, user_id, quorum_base, current_weight, delegated_to
		 FROM meeting_invitations WHERE meeting_id = $1 AND user_id = $2 FOR UPDATE`,
		meetingID, delegatorID).
		Scan(&delegator.ID, &delegator.UserID, &delegator.QuorumBase, &delegator.CurrentWeight, &delegator.DelegatedTo)
	if err != nil {
		return nil, mapTxError(err, "delegator has no invitation for this meeting")
	}
	if delegator.DelegatedTo == nil {
		return nil, apperr.Business(apperr.CodeAlreadyDelegated, "user has no active delegation to revoke")
	}
	delegateID := *delegator.DelegatedTo

	var delegateCurrent decimal.Decimal
	err = tx.QueryRow(ctx,
		`SELECT current_weight FROM meeting_invitations
		 WHERE meeting_id = $1 AND user_id = $2 FOR UPDATE`,
		meetingID, delegateID).Scan(&delegateCurrent)
	if err != nil {
		return nil, mapTxError(err, "delegate has no invitation for this meeting")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE meeting_invitations SET current_weight = quorum_base, delegated_to = NULL, updated_at = NOW()
		 WHERE meeting_id = $1 AND user_id = $2`, meetingID, delegatorID); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE meeting_invitations SET current_weight = $1, updated_at = NOW()
		 WHERE meeting_id = $2 AND user_id = $3`,
		revokedDelegateWeight(delegateCurrent, delegator.QuorumBase), meetingID, delegateID); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}

	entry := models.DelegationLog{
		MeetingID:   meetingID,
		DelegatorID: delegatorID,
		DelegateID:  delegateID,
		Weight:      delegator.QuorumBase,
		Action:      "revoked",
	}
	entry.ActorID = &actor.UserID
	if err := tx.QueryRow(ctx,
		`INSERT INTO delegation_logs (meeting_id, delegator_id, delegate_id, weight, action, actor_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		entry.MeetingID, entry.DelegatorID, entry.DelegateID, entry.Weight, entry.Action, entry.ActorID).
		Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapTxError(err, "meeting not found")
	}
	return &entry, nil
}

// History returns the meeting's delegation log, newest first.
func (r *Repository) History(ctx context.Context, meetingID int64) ([]models.DelegationLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, delegator_id, delegate_id, weight, action, actor_id, created_at
		 FROM delegation_logs WHERE meeting_id = $1 ORDER BY id DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.DelegationLog
	for rows.Next() {
		var e models.DelegationLog
		if err := rows.Scan(&e.ID, &e.MeetingID, &e.DelegatorID, &e.DelegateID,
			&e.Weight, &e.Action, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
