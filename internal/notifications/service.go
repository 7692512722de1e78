package notifications

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/invitations"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/queue"
)

// Service appends audit rows and queues best-effort email delivery. Every
// method swallows failures: a notification problem never escalates to the
// initiating transaction.
type Service struct {
	repo        *Repository
	invitations *invitations.Repository
	queue       *queue.Queue
	logger      *zap.Logger
}

// NewService creates a notifications service.
func NewService(repo *Repository, inv *invitations.Repository, q *queue.Queue, logger *zap.Logger) *Service {
	return &Service{repo: repo, invitations: inv, queue: q, logger: logger}
}

// record appends the log row and queues the email. A missing recipient
// address fails the row immediately; an enqueue error fails it too.
func (s *Service) record(ctx context.Context, n *models.NotificationLog, body string) {
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("notification log append failed", zap.Error(err), zap.String("template", n.Template))
		return
	}
	if n.RecipientEmail == "" {
		_ = s.repo.MarkFailed(ctx, n.ID, "no recipient address")
		return
	}
	err := s.queue.EnqueueEmail(ctx, queue.EmailPayload{
		NotificationID: n.ID,
		Template:       n.Template,
		RecipientEmail: n.RecipientEmail,
		Subject:        n.Subject,
		BodyText:       body,
	})
	if err != nil {
		s.logger.Warn("email enqueue failed", zap.Error(err), zap.Int64("notification_id", n.ID))
		_ = s.repo.MarkFailed(ctx, n.ID, err.Error())
	}
}

// NotifyCredentials queues a credential-delivery email for the user. The body
// carries the auto-login token or generated password.
func (s *Service) NotifyCredentials(ctx context.Context, user *models.User, body string) {
	n := &models.NotificationLog{
		Template:       models.TemplateCredentials,
		RecipientEmail: user.Email,
		Subject:        "Your access credentials",
	}
	n.UserID = &user.ID
	s.record(ctx, n, body)
}

// NotifyMeetingInvite fans out invite notifications to every invited user and
// marks their invitation rows sent.
func (s *Service) NotifyMeetingInvite(ctx context.Context, meetingID int64) {
	subject := fmt.Sprintf("Assembly invitation #%d", meetingID)
	list, err := s.repo.CreateMeetingInvites(ctx, meetingID, subject)
	if err != nil {
		s.logger.Error("invite fan-out failed", zap.Error(err), zap.Int64("meeting_id", meetingID))
		return
	}
	for i := range list {
		n := &list[i]
		if n.RecipientEmail == "" {
			_ = s.repo.MarkFailed(ctx, n.ID, "no recipient address")
			continue
		}
		err := s.queue.EnqueueEmail(ctx, queue.EmailPayload{
			NotificationID: n.ID,
			Template:       n.Template,
			RecipientEmail: n.RecipientEmail,
			Subject:        n.Subject,
			BodyText:       "You have been invited to an assembly. Log in to confirm your attendance.",
		})
		if err != nil {
			_ = s.repo.MarkFailed(ctx, n.ID, err.Error())
		}
	}
	if err := s.invitations.MarkSent(ctx, meetingID); err != nil {
		s.logger.Warn("invitation status update failed", zap.Error(err), zap.Int64("meeting_id", meetingID))
	}
}

// NotifyDelegationCreated records the transfer for the delegator.
func (s *Service) NotifyDelegationCreated(ctx context.Context, meetingID, delegatorID, delegateID int64) {
	s.notifyDelegation(ctx, models.TemplateDelegationCreated, meetingID, delegatorID,
		"Your voting weight was delegated", delegateID)
}

// NotifyDelegationRevoked records the reversal for the delegator.
func (s *Service) NotifyDelegationRevoked(ctx context.Context, meetingID, delegatorID, delegateID int64) {
	s.notifyDelegation(ctx, models.TemplateDelegationRevoked, meetingID, delegatorID,
		"Your voting delegation was revoked", delegateID)
}

func (s *Service) notifyDelegation(ctx context.Context, template string, meetingID, delegatorID int64, subject string, delegateID int64) {
	n := &models.NotificationLog{
		Template:       template,
		RecipientEmail: s.repo.EmailOf(ctx, delegatorID),
		Subject:        subject,
	}
	n.UserID = &delegatorID
	n.MeetingID = &meetingID
	s.record(ctx, n, fmt.Sprintf("Delegation change involving user %d for assembly %d.", delegateID, meetingID))
}
