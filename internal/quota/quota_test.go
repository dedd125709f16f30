package quota

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

func testRules() Rules {
	return Rules{
		QuotaPercentage:           30,
		MinNewProviderSuggestions: 1,
		MaxSuggestions:            5,
		ExperiencedThreshold:      80,
		NewProviderThreshold:      70,
		MaxTimeline:               8640,
		MaxNotesLength:            500,
	}
}

func proposal(prob uint8) Proposal {
	return Proposal{EstimatedTimeline: 200, SuccessProbability: prob, RiskFactors: []string{"tight deadline"}}
}

func TestInitializeSlateOfFive(t *testing.T) {
	m := NewManager(testRules())
	q, err := m.Initialize(1, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(2), q.NewProviderSlots)
	assert.Equal(t, uint(3), q.ExperiencedSlots)

	_, err = m.Initialize(1, 5, 4)
	assert.True(t, errors.Is(err, apperr.Duplicate))
}

func TestSlots(t *testing.T) {
	tests := []struct {
		slate, pct, min uint
		wantNew, wantEx uint
	}{
		{1, 30, 1, 1, 0},
		{2, 30, 1, 1, 1},
		{4, 30, 1, 2, 2},
		{5, 30, 1, 2, 3},
		{5, 0, 1, 1, 4},
		{3, 100, 1, 3, 0},
	}
	for _, tt := range tests {
		n, e := Slots(tt.slate, tt.pct, tt.min)
		assert.Equal(t, tt.wantNew, n, "slate %d pct %d", tt.slate, tt.pct)
		assert.Equal(t, tt.wantEx, e, "slate %d pct %d", tt.slate, tt.pct)
	}
}

func TestInitializeRejectsBadSlate(t *testing.T) {
	m := NewManager(testRules())
	for _, size := range []uint{0, 6} {
		_, err := m.Initialize(1, size, 0)
		assert.True(t, errors.Is(err, apperr.InvalidInput))
	}
}

func TestSubmitExperienced(t *testing.T) {
	m := NewManager(testRules())

	_, err := m.SubmitExperienced(1, "p", proposal(90), 0)
	assert.True(t, errors.Is(err, apperr.NotFound))

	_, err = m.Initialize(1, 5, 0)
	require.NoError(t, err)

	_, err = m.SubmitExperienced(1, "p0", proposal(79), 1)
	assert.True(t, errors.Is(err, apperr.SuccessThresholdNotMet))

	for i := 0; i < 3; i++ {
		s, err := m.SubmitExperienced(1, fmt.Sprintf("p%d", i), proposal(80), 1)
		require.NoError(t, err)
		assert.Equal(t, Experienced, s.Bucket)
	}
	_, err = m.SubmitExperienced(1, "p0", proposal(95), 1)
	assert.True(t, errors.Is(err, apperr.Duplicate))
	_, err = m.SubmitExperienced(1, "p9", proposal(95), 1)
	assert.True(t, errors.Is(err, apperr.ExperiencedProviderQuotaFull))

	q, _ := m.Get(1)
	assert.Equal(t, uint(3), q.ExperiencedConsumed)
	assert.Len(t, m.Suggestions(1), 3)
}

func TestSubmitNewProvider(t *testing.T) {
	m := NewManager(testRules())
	_, err := m.Initialize(1, 5, 0)
	require.NoError(t, err)

	_, err = m.SubmitNewProvider(1, "veteran", 3, 3, proposal(90), 1)
	assert.True(t, errors.Is(err, apperr.NotNewProvider))

	_, err = m.SubmitNewProvider(1, "rookie", 0, 3, proposal(69), 1)
	assert.True(t, errors.Is(err, apperr.SuccessThresholdNotMet))

	s, err := m.SubmitNewProvider(1, "rookie", 0, 3, proposal(70), 1)
	require.NoError(t, err)
	assert.Equal(t, NewProvider, s.Bucket)
	_, err = m.SubmitNewProvider(1, "rookie-2", 2, 3, proposal(75), 1)
	require.NoError(t, err)

	_, err = m.SubmitNewProvider(1, "rookie-3", 0, 3, proposal(99), 1)
	assert.True(t, errors.Is(err, apperr.NewProviderQuotaFull))

	got, ok := m.Suggestion(1, "rookie")
	require.True(t, ok)
	assert.Equal(t, []string{"tight deadline"}, got.RiskFactors)
}

func TestCompleteFreezesSlate(t *testing.T) {
	m := NewManager(testRules())
	_, err := m.Complete(1)
	assert.True(t, errors.Is(err, apperr.NotFound))

	_, err = m.Initialize(1, 2, 0)
	require.NoError(t, err)
	q, err := m.Complete(1)
	require.NoError(t, err)
	assert.True(t, q.Completed)

	_, err = m.Complete(1)
	assert.True(t, errors.Is(err, apperr.InvalidState))
	_, err = m.SubmitExperienced(1, "p", proposal(99), 1)
	assert.True(t, errors.Is(err, apperr.InvalidState))
}

func TestSubmitValidatesProposal(t *testing.T) {
	m := NewManager(testRules())
	_, err := m.Initialize(1, 5, 0)
	require.NoError(t, err)

	p := proposal(90)
	p.EstimatedTimeline = 0
	_, err = m.SubmitExperienced(1, "p", p, 0)
	assert.True(t, errors.Is(err, apperr.InvalidDuration))

	_, err = m.SubmitExperienced(1, "p", proposal(101), 0)
	assert.True(t, errors.Is(err, apperr.InvalidInput))

	_, err = m.SubmitExperienced(1, "", proposal(90), 0)
	assert.True(t, errors.Is(err, apperr.InvalidInput))
}

func TestConsumedNeverExceedsSlate(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("consumed <= slate", prop.ForAll(
		func(slate uint, probs []uint8, newFlags []bool) bool {
			m := NewManager(testRules())
			if _, err := m.Initialize(1, slate, 0); err != nil {
				return false
			}
			for i, prob := range probs {
				provider := fmt.Sprintf("p%d", i)
				if i < len(newFlags) && newFlags[i] {
					_, _ = m.SubmitNewProvider(1, provider, 0, 3, proposal(prob), 0)
				} else {
					_, _ = m.SubmitExperienced(1, provider, proposal(prob), 0)
				}
			}
			q, _ := m.Get(1)
			return q.NewProviderConsumed <= q.NewProviderSlots &&
				q.ExperiencedConsumed <= q.ExperiencedSlots &&
				q.NewProviderConsumed+q.ExperiencedConsumed <= q.SlateSize &&
				uint(len(m.Suggestions(1))) == q.NewProviderConsumed+q.ExperiencedConsumed
		},
		gen.UIntRange(1, 5),
		gen.SliceOf(gen.UInt8Range(0, 100)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
