package reputation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

func TestRecordScoreBounds(t *testing.T) {
	tr := NewTracker(10, 50)

	for _, score := range []uint8{5, 60, 0, 9, 51} {
		_, err := tr.Record(1, "provider", "client", score, 0)
		assert.True(t, errors.Is(err, apperr.InvalidRating), "score %d", score)
	}

	r, err := tr.Record(1, "provider", "client", 45, 9)
	require.NoError(t, err)
	assert.Equal(t, uint8(45), r.Score)
	assert.Equal(t, uint64(9), r.RatedAt)

	_, err = tr.Record(1, "provider", "client", 30, 10)
	assert.True(t, errors.Is(err, apperr.Duplicate))

	got, ok := tr.Rating(1)
	require.True(t, ok)
	assert.Equal(t, uint8(45), got.Score)
}

func TestProviderAggregate(t *testing.T) {
	tr := NewTracker(10, 50)
	assert.Equal(t, Provider{Account: "p"}, tr.Provider("p"))
	assert.Zero(t, tr.Provider("p").Average())

	tr.RecordCompletion("p", 1)
	tr.RecordCompletion("p", 2)
	_, err := tr.Record(1, "p", "c", 50, 3)
	require.NoError(t, err)
	_, err = tr.Record(2, "p", "c", 41, 4)
	require.NoError(t, err)
	tr.RecordDispute("p", 5)

	p := tr.Provider("p")
	assert.Equal(t, uint(2), p.CompletedServices)
	assert.Equal(t, uint(1), p.DisputedServices)
	assert.Equal(t, uint(2), p.RatingCount)
	assert.Equal(t, uint64(45), p.Average())
	assert.Equal(t, uint64(5), p.LastActivity)
}

func TestIsNewProvider(t *testing.T) {
	tr := NewTracker(10, 50)
	assert.True(t, tr.IsNewProvider("p", 3))
	for i := uint64(0); i < 3; i++ {
		tr.RecordCompletion("p", i)
	}
	assert.False(t, tr.IsNewProvider("p", 3))
}
