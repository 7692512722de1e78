package polls

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/invitations"
	"github.com/vecinal/backend/internal/meetings"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/internal/units"
	"github.com/vecinal/backend/pkg/apperr"
)

// Service validates vote submissions and resolves voting weights.
type Service struct {
	repo        *Repository
	meetings    *meetings.Repository
	invitations *invitations.Repository
	units       *units.Repository
	logger      *zap.Logger
}

// NewService creates a polls service.
func NewService(repo *Repository, mt *meetings.Repository, inv *invitations.Repository, un *units.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, meetings: mt, invitations: inv, units: un, logger: logger}
}

// VoteInput is one vote submission.
type VoteInput struct {
	PollID         int64
	UserID         int64
	OptionID       *int64
	ResponseText   *string
	ResponseNumber *decimal.Decimal
	IsAbstention   bool
	IP             string
	UserAgent      string
}

// Vote admits the submission, resolves the voter's weight and records the
// response with its option counters in one transaction.
func (s *Service) Vote(ctx context.Context, in VoteInput) (*models.PollResponse, error) {
	poll, err := s.repo.GetByID(ctx, in.PollID)
	if err != nil {
		return nil, apperr.FromDB(err, "poll not found")
	}
	if poll.Status != models.PollActive {
		return nil, apperr.Business(apperr.CodeInvalidPollStatus, "poll is not open for voting")
	}
	if err := s.checkShape(ctx, poll, in); err != nil {
		return nil, err
	}
	if !poll.Anonymous {
		voted, err := s.repo.HasResponse(ctx, in.PollID, in.UserID)
		if err != nil {
			return nil, apperr.FromDB(err, "poll not found")
		}
		if voted {
			return nil, apperr.Conflict(apperr.CodeAlreadyVoted, "user already voted on this poll")
		}
	}

	weight, err := s.resolveVoterWeight(ctx, poll, in.UserID)
	if err != nil {
		return nil, err
	}

	resp := &models.PollResponse{
		PollID:         in.PollID,
		OptionID:       in.OptionID,
		ResponseText:   in.ResponseText,
		ResponseNumber: in.ResponseNumber,
		VotingWeight:   weight,
		IsAbstention:   in.IsAbstention,
		IP:             in.IP,
		UserAgent:      in.UserAgent,
	}
	if !poll.Anonymous {
		resp.UserID = &in.UserID
	}
	if err := s.repo.InsertVote(ctx, resp); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict(apperr.CodeAlreadyVoted, "user already voted on this poll")
		}
		return nil, apperr.FromDB(err, "poll not found")
	}
	return resp, nil
}

// checkShape rejects any answer field that does not belong to the poll type.
// A stray option_id on a text or numeric vote would otherwise reach InsertVote
// and bump counters on an option of an unrelated poll.
func (s *Service) checkShape(ctx context.Context, poll *models.Poll, in VoteInput) error {
	if in.IsAbstention {
		if !poll.AllowsAbstention {
			return apperr.Validation("this poll does not allow abstention")
		}
		if in.OptionID != nil || in.ResponseText != nil || in.ResponseNumber != nil {
			return apperr.Validation("an abstention carries no answer")
		}
		return nil
	}
	switch poll.Type {
	case models.PollTypeSingle, models.PollTypeMultiple:
		if in.ResponseText != nil || in.ResponseNumber != nil {
			return apperr.Validation("choice polls accept only option_id")
		}
		if in.OptionID == nil {
			return apperr.Validation("option_id is required for choice polls")
		}
		if _, err := s.repo.ActiveOption(ctx, poll.ID, *in.OptionID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.Validation("option does not belong to this poll or is inactive")
			}
			return apperr.FromDB(err, "poll not found")
		}
	case models.PollTypeText:
		if in.OptionID != nil || in.ResponseNumber != nil {
			return apperr.Validation("text polls accept only response_text")
		}
		if in.ResponseText == nil || *in.ResponseText == "" {
			return apperr.Validation("response_text is required for text polls")
		}
	case models.PollTypeNumeric:
		if in.OptionID != nil || in.ResponseText != nil {
			return apperr.Validation("numeric polls accept only response_number")
		}
		if in.ResponseNumber == nil {
			return apperr.Validation("response_number is required for numeric polls")
		}
	}
	return nil
}

// resolveVoterWeight gathers the voter's standing and applies the weight
// resolution rules.
func (s *Service) resolveVoterWeight(ctx context.Context, poll *models.Poll, userID int64) (decimal.Decimal, error) {
	meeting, err := s.meetings.GetByID(ctx, poll.MeetingID)
	if err != nil {
		return decimal.Zero, apperr.FromDB(err, "meeting not found")
	}

	voter := Voter{UserID: userID, MeetingAdmin: meeting.IsOrganizerOrLeader(userID)}
	if !voter.MeetingAdmin {
		if unit, err := s.units.GetByID(ctx, meeting.UnitID); err == nil {
			voter.MeetingAdmin = unit.CreatedBy != nil && *unit.CreatedBy == userID
		}
	}

	inv, err := s.invitations.GetByMeetingAndUser(ctx, meeting.ID, userID)
	switch {
	case err == nil:
		voter.Invitation = inv
	case errors.Is(err, pgx.ErrNoRows):
		w, ok, werr := s.units.DefaultWeightFor(ctx, meeting.ID, userID)
		if werr != nil {
			return decimal.Zero, apperr.FromDB(werr, "meeting not found")
		}
		if ok {
			voter.DefaultWeight = &w
		}
	default:
		return decimal.Zero, apperr.FromDB(err, "meeting not found")
	}

	weight, fallback, appErr := ResolveWeight(voter)
	if appErr != nil {
		return decimal.Zero, appErr
	}
	if fallback {
		s.logger.Warn("zero current weight without delegation, falling back to quorum base",
			zap.Int64("meeting_id", meeting.ID),
			zap.Int64("user_id", userID),
			zap.String("quorum_base", weight.String()),
		)
	}
	return weight, nil
}
