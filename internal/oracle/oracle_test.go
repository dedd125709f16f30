package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

func TestEstimateCost(t *testing.T) {
	o := NewStatic(2_000_000, 90, 250, 50)

	stx, err := o.EstimateCost(context.Background(), 10_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), stx)
}

func TestFeeRate(t *testing.T) {
	o := NewStatic(2_000_000, 90, 250, 50)
	ctx := context.Background()

	rate, err := o.FeeRate(ctx, FeeRequest{Amount: 5_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(250), rate)

	rate, err = o.FeeRate(ctx, FeeRequest{Amount: 5_000_000, Rush: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(300), rate)
}

func TestStaleRateIsReported(t *testing.T) {
	o := NewStatic(2_000_000, 90, 250, 50)
	o.SetRate(Rate{Price: 1_500_000, Confidence: 40, Stale: true})

	r, err := o.CurrentRate(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Stale)
	assert.Equal(t, uint8(40), r.Confidence)
}

func TestMissingPrice(t *testing.T) {
	o := NewStatic(0, 0, 250, 50)
	_, err := o.EstimateCost(context.Background(), 1)
	assert.True(t, errors.Is(err, apperr.InvalidState))
}

func TestCancelledContext(t *testing.T) {
	o := NewStatic(2_000_000, 90, 250, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.FeeRate(ctx, FeeRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
