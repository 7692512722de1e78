// Package worker drains the email job queue and updates the notification log
// with the delivery outcome.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/mailer"
	"github.com/vecinal/backend/internal/notifications"
	"github.com/vecinal/backend/pkg/queue"
)

// Worker processes queued email jobs.
type Worker struct {
	queue  *queue.Queue
	mailer *mailer.Mailer
	repo   *notifications.Repository
	logger *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, m *mailer.Mailer, repo *notifications.Repository, logger *zap.Logger) *Worker {
	return &Worker{queue: q, mailer: m, repo: repo, logger: logger}
}

// Run blocks, dequeueing and processing jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) {
	if job.Type != queue.JobTypeEmail {
		w.logger.Warn("unknown job type", zap.String("type", string(job.Type)), zap.String("job_id", job.ID))
		return
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		w.logger.Warn("invalid email payload", zap.Error(err), zap.String("job_id", job.ID))
		return
	}

	if err := w.mailer.Send(payload.RecipientEmail, payload.Subject, payload.BodyText); err != nil {
		w.logger.Warn("email delivery failed",
			zap.Error(err),
			zap.String("job_id", job.ID),
			zap.Int64("notification_id", payload.NotificationID),
			zap.Int("attempt", job.Attempt),
		)
		if job.Attempt+1 >= queue.MaxRetries {
			if err := w.repo.MarkFailed(ctx, payload.NotificationID, err.Error()); err != nil {
				w.logger.Error("notification status update failed", zap.Error(err))
			}
		}
		if err := w.queue.Retry(ctx, job); err != nil {
			w.logger.Error("retry enqueue failed", zap.Error(err), zap.String("job_id", job.ID))
		}
		return
	}

	if err := w.repo.MarkSent(ctx, payload.NotificationID); err != nil {
		w.logger.Error("notification status update failed",
			zap.Error(err), zap.Int64("notification_id", payload.NotificationID))
	}
	w.logger.Info("email sent",
		zap.String("template", payload.Template),
		zap.Int64("notification_id", payload.NotificationID),
	)
}
