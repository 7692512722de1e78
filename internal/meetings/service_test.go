package meetings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/meetings"
	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/internal/polls"
	"github.com/vecinal/backend/pkg/apperr"
)

// The polls repository must close polls inside the transaction that also
// flips the meeting to Completed.
var _ meetings.PollCloser = (*polls.Repository)(nil)

func TestEndRejectsNonLiveMeeting(t *testing.T) {
	svc := meetings.NewService(nil, nil, nil, zap.NewNop())

	for _, status := range []string{models.MeetingScheduled, models.MeetingCompleted} {
		t.Run(status, func(t *testing.T) {
			_, err := svc.End(context.Background(), &models.Meeting{ID: 1, Status: status})
			require.Error(t, err)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.CodeMeetingNotActive, appErr.Code)
		})
	}
}
