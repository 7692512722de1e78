package polls

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolveWeight(t *testing.T) {
	delegateID := int64(77)

	t.Run("meeting admin votes with weight one", func(t *testing.T) {
		w, fallback, err := ResolveWeight(Voter{UserID: 1, MeetingAdmin: true})
		require.Nil(t, err)
		assert.False(t, fallback)
		assert.True(t, w.Equal(dec("1")))
	})

	t.Run("delegated voter is rejected", func(t *testing.T) {
		_, _, err := ResolveWeight(Voter{
			UserID: 2,
			Invitation: &models.Invitation{
				QuorumBase:    dec("0.3"),
				CurrentWeight: decimal.Zero,
				DelegatedTo:   &delegateID,
			},
		})
		require.NotNil(t, err)
		assert.Equal(t, apperr.CodeVoteDelegated, err.Code)
	})

	t.Run("positive current weight wins", func(t *testing.T) {
		w, fallback, err := ResolveWeight(Voter{
			UserID: 3,
			Invitation: &models.Invitation{
				QuorumBase:    dec("0.5"),
				CurrentWeight: dec("1.0"),
			},
		})
		require.Nil(t, err)
		assert.False(t, fallback)
		assert.True(t, w.Equal(dec("1.0")))
	})

	t.Run("zero weight without delegation falls back to quorum base", func(t *testing.T) {
		w, fallback, err := ResolveWeight(Voter{
			UserID: 4,
			Invitation: &models.Invitation{
				QuorumBase:    dec("0.25"),
				CurrentWeight: decimal.Zero,
			},
		})
		require.Nil(t, err)
		assert.True(t, fallback)
		assert.True(t, w.Equal(dec("0.25")))
	})

	t.Run("no invitation falls back to membership default", func(t *testing.T) {
		dw := dec("0.15")
		w, fallback, err := ResolveWeight(Voter{UserID: 5, DefaultWeight: &dw})
		require.Nil(t, err)
		assert.False(t, fallback)
		assert.True(t, w.Equal(dec("0.15")))
	})

	t.Run("no weight source rejects", func(t *testing.T) {
		_, _, err := ResolveWeight(Voter{UserID: 6})
		require.NotNil(t, err)
		assert.Equal(t, apperr.CodeNoVotingRight, err.Code)
	})

	t.Run("zero base and zero current rejects", func(t *testing.T) {
		_, _, err := ResolveWeight(Voter{
			UserID:     7,
			Invitation: &models.Invitation{},
		})
		require.NotNil(t, err)
		assert.Equal(t, apperr.CodeNoVotingRight, err.Code)
	})

	t.Run("admin status outranks an active delegation", func(t *testing.T) {
		w, _, err := ResolveWeight(Voter{
			UserID:       8,
			MeetingAdmin: true,
			Invitation: &models.Invitation{
				DelegatedTo: &delegateID,
			},
		})
		require.Nil(t, err)
		assert.True(t, w.Equal(dec("1")))
	})
}
