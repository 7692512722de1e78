package delegations

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

func invitation(userID int64, current string) models.Invitation {
	return models.Invitation{
		UserID:        userID,
		QuorumBase:    dec(current),
		CurrentWeight: dec(current),
	}
}

func TestCheckAdmission(t *testing.T) {
	t.Run("sums delegator weights", func(t *testing.T) {
		a := invitation(1, "0.3")
		b := invitation(2, "0.2")
		c := invitation(3, "0.5")

		total, err := checkAdmission([]models.Invitation{a, b}, &c)
		require.Nil(t, err)
		assert.True(t, total.Equal(dec("0.5")))
	})

	t.Run("rejects a delegated delegate", func(t *testing.T) {
		a := invitation(1, "0.3")
		c := invitation(3, "0.5")
		other := int64(9)
		c.DelegatedTo = &other

		_, err := checkAdmission([]models.Invitation{a}, &c)
		require.NotNil(t, err)
		assert.Equal(t, apperr.CodeDelegateDelegated, err.Code)
	})

	t.Run("rejects an already delegated delegator", func(t *testing.T) {
		a := invitation(1, "0.3")
		c := invitation(3, "0.5")
		other := int64(9)
		a.DelegatedTo = &other

		_, err := checkAdmission([]models.Invitation{a}, &c)
		require.NotNil(t, err)
		assert.Equal(t, apperr.CodeAlreadyDelegated, err.Code)
	})

	t.Run("rejects self delegation", func(t *testing.T) {
		c := invitation(3, "0.5")
		_, err := checkAdmission([]models.Invitation{c}, &c)
		require.NotNil(t, err)
		assert.Equal(t, apperr.CodeValidation, err.Code)
	})

	t.Run("uses current weight, not quorum base", func(t *testing.T) {
		a := invitation(1, "0.3")
		a.CurrentWeight = dec("0.1")
		c := invitation(3, "0.5")

		total, err := checkAdmission([]models.Invitation{a}, &c)
		require.Nil(t, err)
		assert.True(t, total.Equal(dec("0.1")))
	})
}

func TestRevokedDelegateWeight(t *testing.T) {
	t.Run("subtracts the delegator base", func(t *testing.T) {
		got := revokedDelegateWeight(dec("1.0"), dec("0.3"))
		assert.True(t, got.Equal(dec("0.7")))
	})

	t.Run("clamps at zero", func(t *testing.T) {
		got := revokedDelegateWeight(dec("0.2"), dec("0.3"))
		assert.True(t, got.Equal(decimal.Zero))
	})

	t.Run("exact zero", func(t *testing.T) {
		got := revokedDelegateWeight(dec("0.3"), dec("0.3"))
		assert.True(t, got.IsZero())
	})
}
