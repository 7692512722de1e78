package meetings_test

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecinal/backend/internal/meetings"
)

func TestQuorumRatio(t *testing.T) {
	t.Run("half attendance is fifty percent", func(t *testing.T) {
		ratio := meetings.QuorumRatio(decimal.NewFromFloat(0.5), decimal.NewFromInt(1))
		assert.True(t, ratio.Equal(decimal.NewFromInt(50)))
	})

	t.Run("full attendance is one hundred percent", func(t *testing.T) {
		ratio := meetings.QuorumRatio(decimal.NewFromInt(1), decimal.NewFromInt(1))
		assert.True(t, ratio.Equal(decimal.NewFromInt(100)))
	})

	t.Run("zero base yields zero, not a division error", func(t *testing.T) {
		ratio := meetings.QuorumRatio(decimal.NewFromInt(1), decimal.Zero)
		assert.True(t, ratio.IsZero())
	})

	t.Run("fractional weights", func(t *testing.T) {
		attended, _ := decimal.NewFromString("0.3")
		base, _ := decimal.NewFromString("1.2")
		ratio := meetings.QuorumRatio(attended, base)
		assert.True(t, ratio.Equal(decimal.NewFromInt(25)))
	})
}

func TestNewMeetingCode(t *testing.T) {
	pattern := regexp.MustCompile(`^U42_MTG_[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{6}$`)

	code := meetings.NewMeetingCode(42)
	require.Regexp(t, pattern, code)

	// Codes are random; two draws colliding would be extraordinary.
	assert.NotEqual(t, code, meetings.NewMeetingCode(42))
}
