package meetings

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/invitations"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

// PollCloser closes every active poll of a meeting inside the caller's
// transaction. Implemented by the polls repository.
type PollCloser interface {
	CloseAllActive(ctx context.Context, tx pgx.Tx, meetingID int64) error
}

// Service orchestrates lifecycle transitions that span invitations and polls.
type Service struct {
	repo        *Repository
	invitations *invitations.Repository
	polls       PollCloser
	logger      *zap.Logger
}

// NewService creates a meetings service.
func NewService(repo *Repository, inv *invitations.Repository, polls PollCloser, logger *zap.Logger) *Service {
	return &Service{repo: repo, invitations: inv, polls: polls, logger: logger}
}

// ResolveActiveMeeting returns a Live meeting the user is invited to. For
// co-owners and guests, attendance is registered transparently as part of the
// login flow.
func (s *Service) ResolveActiveMeeting(ctx context.Context, user *models.User) (*models.Meeting, error) {
	m, err := s.repo.FindLiveForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if user.RoleID == models.RoleCoOwner || user.RoleID == models.RoleGuest {
		if _, err := s.invitations.RegisterAttendance(ctx, m.ID, user.ID); err != nil {
			s.logger.Warn("auto-attendance failed",
				zap.Error(err), zap.Int64("meeting_id", m.ID), zap.Int64("user_id", user.ID))
		}
	}
	return m, nil
}

// End completes a Live meeting: closes all active polls, then decides quorum
// from the final attendance weight against the meeting threshold. Poll
// closures and the status transition share one transaction, so a failed end
// never leaves polls closed under a still-Live meeting.
func (s *Service) End(ctx context.Context, meeting *models.Meeting) (*models.Meeting, error) {
	if meeting.Status != models.MeetingLive {
		return nil, apperr.Business(apperr.CodeMeetingNotActive, "meeting is not live")
	}
	summary, err := s.invitations.SummarizeWeights(ctx, meeting.ID)
	if err != nil {
		return nil, apperr.FromDB(err, "meeting not found")
	}
	ratio := QuorumRatio(summary.AttendedWeight, summary.BaseTotal)
	quorumReached := ratio.GreaterThanOrEqual(meeting.QuorumThresholdPct)

	tx, err := s.repo.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "meeting not ended")
	}
	defer tx.Rollback(ctx)

	if err := s.polls.CloseAllActive(ctx, tx, meeting.ID); err != nil {
		return nil, apperr.FromDB(err, "polls not closed")
	}
	ended, err := s.repo.End(ctx, tx, meeting.ID, quorumReached)
	if err != nil {
		return nil, apperr.FromDB(err, "meeting is not live")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.FromDB(err, "meeting not ended")
	}
	s.logger.Info("meeting ended",
		zap.Int64("meeting_id", meeting.ID),
		zap.String("attendance_pct", ratio.StringFixed(3)),
		zap.Bool("quorum_reached", quorumReached),
	)
	return ended, nil
}
