package polls

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

func TestCheckShape(t *testing.T) {
	ctx := context.Background()
	svc := &Service{}
	optionID := int64(999)
	text := "my answer"
	number := decimal.NewFromInt(7)

	requireValidation := func(t *testing.T, err error) {
		require.Error(t, err)
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
	}

	t.Run("text poll rejects option id", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeText}
		err := svc.checkShape(ctx, poll, VoteInput{ResponseText: &text, OptionID: &optionID})
		requireValidation(t, err)
	})

	t.Run("text poll rejects number", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeText}
		err := svc.checkShape(ctx, poll, VoteInput{ResponseText: &text, ResponseNumber: &number})
		requireValidation(t, err)
	})

	t.Run("numeric poll rejects option id", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeNumeric}
		err := svc.checkShape(ctx, poll, VoteInput{ResponseNumber: &number, OptionID: &optionID})
		requireValidation(t, err)
	})

	t.Run("numeric poll rejects text", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeNumeric}
		err := svc.checkShape(ctx, poll, VoteInput{ResponseNumber: &number, ResponseText: &text})
		requireValidation(t, err)
	})

	t.Run("choice poll rejects text and number", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeSingle}
		err := svc.checkShape(ctx, poll, VoteInput{OptionID: &optionID, ResponseText: &text})
		requireValidation(t, err)
		err = svc.checkShape(ctx, poll, VoteInput{OptionID: &optionID, ResponseNumber: &number})
		requireValidation(t, err)
	})

	t.Run("abstention rejects any answer", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeSingle, AllowsAbstention: true}
		err := svc.checkShape(ctx, poll, VoteInput{IsAbstention: true, OptionID: &optionID})
		requireValidation(t, err)
		err = svc.checkShape(ctx, poll, VoteInput{IsAbstention: true, ResponseText: &text})
		requireValidation(t, err)
	})

	t.Run("clean text vote passes", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeText}
		require.NoError(t, svc.checkShape(ctx, poll, VoteInput{ResponseText: &text}))
	})

	t.Run("clean numeric vote passes", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeNumeric}
		require.NoError(t, svc.checkShape(ctx, poll, VoteInput{ResponseNumber: &number}))
	})

	t.Run("clean abstention passes", func(t *testing.T) {
		poll := &models.Poll{Type: models.PollTypeText, AllowsAbstention: true}
		require.NoError(t, svc.checkShape(ctx, poll, VoteInput{IsAbstention: true}))
	})
}
