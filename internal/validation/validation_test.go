package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidString(t *testing.T) {
	assert.True(t, IsValidString("design", 1, 50))
	assert.False(t, IsValidString("", 1, 50))
	assert.False(t, IsValidString(strings.Repeat("x", 51), 1, 50))
	assert.True(t, IsValidString("héllo", 5, 5))
}

func TestIsValidAmount(t *testing.T) {
	assert.True(t, IsValidAmount(1_000_000, 1_000_000, 100_000_000_000))
	assert.False(t, IsValidAmount(999_999, 1_000_000, 100_000_000_000))
	assert.False(t, IsValidAmount(100_000_000_001, 1_000_000, 100_000_000_000))
}

func TestIsValidDuration(t *testing.T) {
	assert.True(t, IsValidDuration(480, 8640))
	assert.True(t, IsValidDuration(8640, 8640))
	assert.False(t, IsValidDuration(0, 8640))
	assert.False(t, IsValidDuration(8641, 8640))
}

func TestIsValidPrincipal(t *testing.T) {
	assert.True(t, IsValidPrincipal("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"))
	assert.False(t, IsValidPrincipal(""))
	assert.False(t, IsValidPrincipal("with space"))
	assert.False(t, IsValidPrincipal("tab\there"))
	assert.False(t, IsValidPrincipal(burnPrincipal))
	assert.False(t, IsValidPrincipal(strings.Repeat("a", maxPrincipalLength+1)))
}

func TestIsValidRating(t *testing.T) {
	assert.True(t, IsValidRating(45, 10, 50))
	assert.False(t, IsValidRating(5, 10, 50))
	assert.False(t, IsValidRating(60, 10, 50))
}

func TestIsWithinPriceBand(t *testing.T) {
	cases := []struct {
		proposed uint64
		want     bool
	}{
		{8_000_000, true},
		{10_000_000, true},
		{10_000_001, false},
		{2_500_000, true},
		{2_499_999, false},
		{math.MaxUint64, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsWithinPriceBand(tc.proposed, 5_000_000, 50, 200), "proposed=%d", tc.proposed)
	}
}

func TestAreValidLinks(t *testing.T) {
	assert.True(t, AreValidLinks([]string{"https://example.com/work"}, 1, 5, 200))
	assert.False(t, AreValidLinks(nil, 1, 5, 200))
	assert.False(t, AreValidLinks(make([]string, 6), 1, 5, 200))
	assert.False(t, AreValidLinks([]string{"  "}, 1, 5, 200))
}
