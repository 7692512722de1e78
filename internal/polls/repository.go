package polls

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vecinal/backend/internal/models"
)

const pollColumns = `id, meeting_id, code, title, description, poll_type, anonymous,
	requires_quorum, min_quorum_pct, allows_abstention, max_selections,
	started_at, ended_at, duration_min, status, created_by, created_at, updated_at`

const optionColumns = `id, poll_id, option_text, display_order, active, votes_count, weight_total, percentage`

// Repository handles poll, option and response persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	err := row.Scan(&p.ID, &p.MeetingID, &p.Code, &p.Title, &p.Description, &p.Type,
		&p.Anonymous, &p.RequiresQuorum, &p.MinQuorumPct, &p.AllowsAbstention,
		&p.MaxSelections, &p.StartedAt, &p.EndedAt, &p.DurationMin, &p.Status,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanOption(row pgx.Row) (*models.PollOption, error) {
	var o models.PollOption
	err := row.Scan(&o.ID, &o.PollID, &o.Text, &o.DisplayOrder, &o.Active,
		&o.VotesCount, &o.WeightTotal, &o.Percentage)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// NewPollCode builds the unique poll code M<meetingId>_POLL_<random6>.
func NewPollCode(meetingID int64) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("M%d_POLL_%s", meetingID, string(buf))
}

// Create inserts the poll and its options in one transaction.
func (r *Repository) Create(ctx context.Context, p *models.Poll, optionTexts []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO polls (meeting_id, code, title, description, poll_type, anonymous,
			requires_quorum, min_quorum_pct, allows_abstention, max_selections, duration_min, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + pollColumns
	created, err := scanPoll(tx.QueryRow(ctx, q, p.MeetingID, p.Code, p.Title, p.Description,
		p.Type, p.Anonymous, p.RequiresQuorum, p.MinQuorumPct, p.AllowsAbstention,
		p.MaxSelections, p.DurationMin, p.CreatedBy))
	if err != nil {
		return err
	}
	*p = *created

	for i, text := range optionTexts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO poll_options (poll_id, option_text, display_order) VALUES ($1, $2, $3)`,
			p.ID, text, i+1); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID returns a poll by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Poll, error) {
	return scanPoll(r.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id))
}

// ListByMeeting returns all polls of a meeting.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID int64) ([]models.Poll, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pollColumns+` FROM polls WHERE meeting_id = $1 ORDER BY id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Options returns a poll's options in display order.
func (r *Repository) Options(ctx context.Context, pollID int64) ([]models.PollOption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+optionColumns+` FROM poll_options WHERE poll_id = $1 ORDER BY display_order, id`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PollOption
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *o)
	}
	return list, rows.Err()
}

// HasActive reports whether the meeting has any poll in active state.
func (r *Repository) HasActive(ctx context.Context, meetingID int64) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM polls WHERE meeting_id = $1 AND status = $2 LIMIT 1`,
		meetingID, models.PollActive).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Start transitions draft→active. The meeting row is locked first so the
// transition serialises against in-flight delegations, then started_at is
// stamped and ended_at derived from duration_min when present. Returns
// pgx.ErrNoRows when the poll is not in draft state.
func (r *Repository) Start(ctx context.Context, pollID int64) (*models.Poll, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM meetings WHERE id = (SELECT meeting_id FROM polls WHERE id = $1) FOR UPDATE`,
		pollID); err != nil {
		return nil, err
	}
	p, err := scanPoll(tx.QueryRow(ctx,
		`UPDATE polls SET status = $1, started_at = NOW(),
			ended_at = CASE WHEN duration_min IS NOT NULL
				THEN NOW() + duration_min * INTERVAL '1 minute' ELSE NULL END,
			updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING `+pollColumns, models.PollActive, pollID, models.PollDraft))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Close transitions active→closed, stamps ended_at and re-derives option
// percentages from the final weight totals.
func (r *Repository) Close(ctx context.Context, pollID int64) (*models.Poll, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := closeOne(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func closeOne(ctx context.Context, tx pgx.Tx, pollID int64) (*models.Poll, error) {
	p, err := scanPoll(tx.QueryRow(ctx,
		`UPDATE polls SET status = $1, ended_at = NOW(), updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING `+pollColumns, models.PollClosed, pollID, models.PollActive))
	if err != nil {
		return nil, err
	}
	const q = `UPDATE poll_options o SET percentage = CASE
			WHEN t.total = 0 THEN 0
			ELSE ROUND(100 * o.weight_total / t.total, 3)
		END
		FROM (SELECT COALESCE(SUM(weight_total), 0) AS total FROM poll_options WHERE poll_id = $1) t
		WHERE o.poll_id = $1`
	if _, err := tx.Exec(ctx, q, pollID); err != nil {
		return nil, err
	}
	return p, nil
}

// CloseAllActive closes every active poll of a meeting, recomputing each
// poll's option percentages. It runs inside the caller's transaction so the
// meeting-end update commits or rolls back together with the poll closures.
func (r *Repository) CloseAllActive(ctx context.Context, tx pgx.Tx, meetingID int64) error {
	rows, err := tx.Query(ctx,
		`SELECT id FROM polls WHERE meeting_id = $1 AND status = $2 ORDER BY id`,
		meetingID, models.PollActive)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := closeOne(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// InsertVote persists the response and bumps the target option's counters in
// the same transaction. The option update serialises concurrent votes on the
// same option via the row lock; a unique violation on (poll_id, user_id)
// surfaces as a pg error for the caller to map.
func (r *Repository) InsertVote(ctx context.Context, resp *models.PollResponse) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO poll_responses (poll_id, user_id, option_id, response_text,
			response_number, voting_weight, is_abstention, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, responded_at`
	err = tx.QueryRow(ctx, q, resp.PollID, resp.UserID, resp.OptionID, resp.ResponseText,
		resp.ResponseNumber, resp.VotingWeight, resp.IsAbstention, resp.IP, resp.UserAgent).
		Scan(&resp.ID, &resp.RespondedAt)
	if err != nil {
		return err
	}

	if resp.OptionID != nil && !resp.IsAbstention {
		if _, err := tx.Exec(ctx,
			`UPDATE poll_options SET votes_count = votes_count + 1, weight_total = weight_total + $1
			 WHERE id = $2`, resp.VotingWeight, *resp.OptionID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// HasResponse reports whether the user already has a response on the poll.
func (r *Repository) HasResponse(ctx context.Context, pollID, userID int64) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM poll_responses WHERE poll_id = $1 AND user_id = $2`,
		pollID, userID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ActiveOption returns the option when it belongs to the poll and is active,
// or pgx.ErrNoRows.
func (r *Repository) ActiveOption(ctx context.Context, pollID, optionID int64) (*models.PollOption, error) {
	return scanOption(r.pool.QueryRow(ctx,
		`SELECT `+optionColumns+` FROM poll_options WHERE id = $1 AND poll_id = $2 AND active`,
		optionID, pollID))
}

// Statistics aggregates the poll's responses and weight participation. The
// invited-weight denominator excludes sentinel apartments.
func (r *Repository) Statistics(ctx context.Context, poll *models.Poll) (*models.PollStatistics, error) {
	stats := &models.PollStatistics{PollID: poll.ID, Status: poll.Status}

	const respQ = `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_abstention),
			COALESCE(SUM(voting_weight) FILTER (WHERE NOT is_abstention), 0)
		FROM poll_responses WHERE poll_id = $1`
	if err := r.pool.QueryRow(ctx, respQ, poll.ID).
		Scan(&stats.TotalResponses, &stats.TotalAbstentions, &stats.WeightVoted); err != nil {
		return nil, err
	}

	const invitedQ = `SELECT COALESCE(SUM(quorum_base), 0)
		FROM meeting_invitations
		WHERE meeting_id = $1 AND apartment_number NOT IN ($2, $3)`
	if err := r.pool.QueryRow(ctx, invitedQ, poll.MeetingID,
		models.ApartmentAdmin, models.ApartmentSupport).Scan(&stats.WeightInvited); err != nil {
		return nil, err
	}

	if stats.WeightInvited.IsPositive() {
		stats.ParticipationPct = stats.WeightVoted.Div(stats.WeightInvited).
			Mul(decimal.NewFromInt(100))
	}
	stats.QuorumReached = stats.ParticipationPct.GreaterThanOrEqual(poll.MinQuorumPct)

	if poll.IsChoice() {
		options, err := r.Options(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		stats.Options = options
	}
	return stats, nil
}
