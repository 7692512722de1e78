package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/pkg/apperr"
)

func TestAs(t *testing.T) {
	typed := apperr.Conflict(apperr.CodeAlreadyVoted, "already voted")
	wrapped := fmt.Errorf("handler: %w", typed)

	got, ok := apperr.As(wrapped)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, got.Kind)
	assert.Equal(t, apperr.CodeAlreadyVoted, got.Code)

	_, ok = apperr.As(errors.New("plain"))
	assert.False(t, ok)
}

func TestFromDB(t *testing.T) {
	t.Run("no rows is not found", func(t *testing.T) {
		e := apperr.FromDB(pgx.ErrNoRows, "meeting not found")
		assert.Equal(t, apperr.KindNotFound, e.Kind)
		assert.Equal(t, apperr.CodeResourceNotFound, e.Code)
		assert.Equal(t, "meeting not found", e.Message)
	})

	t.Run("unique violation is conflict", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_poll_user_response"}
		e := apperr.FromDB(pgErr, "ignored")
		assert.Equal(t, apperr.KindConflict, e.Kind)
	})

	t.Run("anything else is a database error", func(t *testing.T) {
		e := apperr.FromDB(errors.New("connection reset"), "ignored")
		assert.Equal(t, apperr.KindInternal, e.Kind)
		assert.Equal(t, apperr.CodeDatabase, e.Code)
	})
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := apperr.Wrap(cause, "operation failed")
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "operation failed")
	assert.Contains(t, e.Error(), "root cause")
}
