package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vecinal/backend/pkg/utils"
)

func TestCheckPassword(t *testing.T) {
	t.Run("round trip at current cost", func(t *testing.T) {
		hash, err := utils.HashPassword("s3cret")
		require.NoError(t, err)

		valid, upgraded := utils.CheckPassword("s3cret", hash)
		assert.True(t, valid)
		assert.Empty(t, upgraded, "a hash at current cost needs no upgrade")
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, err := utils.HashPassword("s3cret")
		require.NoError(t, err)

		valid, upgraded := utils.CheckPassword("wrong", hash)
		assert.False(t, valid)
		assert.Empty(t, upgraded)
	})

	t.Run("legacy hash triggers an upgrade", func(t *testing.T) {
		legacy, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		require.NoError(t, err)

		valid, upgraded := utils.CheckPassword("s3cret", string(legacy))
		assert.True(t, valid)
		require.NotEmpty(t, upgraded)

		cost, err := bcrypt.Cost([]byte(upgraded))
		require.NoError(t, err)
		assert.Equal(t, utils.HashCost, cost)

		// The upgraded hash still verifies the same password.
		valid, again := utils.CheckPassword("s3cret", upgraded)
		assert.True(t, valid)
		assert.Empty(t, again)
	})
}
