package escrow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

const (
	client   = "client"
	provider = "provider"
	treasury = "treasury"
)

func newLedger(t *testing.T, clientBalance uint64) (*Ledger, *wallet.Book) {
	t.Helper()
	book := wallet.NewBook()
	if clientBalance > 0 {
		_, err := book.Deposit(client, clientBalance, "seed")
		require.NoError(t, err)
	}
	return New(book, 1_000_000, 100_000_000_000), book
}

func TestLockMovesFundsToPool(t *testing.T) {
	l, book := newLedger(t, 10_000_000)

	rec, err := l.Lock(1, client, 5_000_000, 250, 7)
	require.NoError(t, err)
	assert.True(t, rec.Locked())
	assert.Equal(t, uint64(7), rec.LockedAt)
	assert.Equal(t, uint64(5_000_000), book.Balance(client))
	assert.Equal(t, uint64(5_000_000), book.Balance(PoolAccount))
	assert.Equal(t, uint64(5_000_000), l.Totals().Locked)
}

func TestLockValidation(t *testing.T) {
	l, _ := newLedger(t, 200_000_000_000)

	_, err := l.Lock(1, client, 999_999, 250, 0)
	assert.True(t, errors.Is(err, apperr.InvalidAmount))

	_, err = l.Lock(1, client, 100_000_000_001, 250, 0)
	assert.True(t, errors.Is(err, apperr.InvalidAmount))

	_, err = l.Lock(1, client, 5_000_000, 10_000, 0)
	assert.True(t, errors.Is(err, apperr.InvalidInput))

	_, err = l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)
	_, err = l.Lock(1, client, 5_000_000, 250, 0)
	assert.True(t, errors.Is(err, apperr.Duplicate))
}

func TestLockInsufficientFunds(t *testing.T) {
	l, book := newLedger(t, 1_000_000)

	_, err := l.Lock(1, client, 2_000_000, 250, 0)
	assert.True(t, errors.Is(err, apperr.InsufficientFunds))
	_, ok := l.Get(1)
	assert.False(t, ok)
	assert.Equal(t, uint64(1_000_000), book.Balance(client))
}

func TestReleaseSplitsFee(t *testing.T) {
	l, book := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	s, err := l.Release(1, provider, treasury, 5_000_000, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(125_000), s.FeeAmount)
	assert.Equal(t, uint64(4_875_000), s.ProviderAmount)
	assert.Zero(t, s.ClientAmount)

	assert.Equal(t, uint64(4_875_000), book.Balance(provider))
	assert.Equal(t, uint64(125_000), book.Balance(treasury))
	assert.Zero(t, book.Balance(PoolAccount))

	rec, _ := l.Get(1)
	assert.Equal(t, Released, rec.Outcome)
	assert.Equal(t, uint64(9), rec.SettledAt)
}

func TestReleaseClampsPayableToLock(t *testing.T) {
	l, book := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	s, err := l.Release(1, provider, treasury, 8_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), s.ProviderAmount+s.FeeAmount)
	assert.Zero(t, s.ClientAmount)
	assert.Zero(t, book.Balance(PoolAccount))
}

func TestReleaseRefundsUnusedAmount(t *testing.T) {
	l, book := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	s, err := l.Release(1, provider, treasury, 3_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(75_000), s.FeeAmount)
	assert.Equal(t, uint64(2_925_000), s.ProviderAmount)
	assert.Equal(t, uint64(2_000_000), s.ClientAmount)
	assert.Equal(t, uint64(2_000_000), book.Balance(client))
}

func TestSettlementHappensOnce(t *testing.T) {
	l, _ := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	_, err = l.Refund(1, client, 1)
	require.NoError(t, err)

	_, err = l.Release(1, provider, treasury, 5_000_000, 2)
	assert.True(t, errors.Is(err, apperr.InvalidState))
	_, err = l.Refund(1, client, 2)
	assert.True(t, errors.Is(err, apperr.InvalidState))
	_, err = l.Split(1, 50, client, provider, treasury, 2)
	assert.True(t, errors.Is(err, apperr.InvalidState))

	rec, _ := l.Get(1)
	assert.Equal(t, Refunded, rec.Outcome)
}

func TestMissingRecord(t *testing.T) {
	l, _ := newLedger(t, 0)

	_, err := l.Release(42, provider, treasury, 1, 0)
	assert.True(t, errors.Is(err, apperr.NotFound))
	_, err = l.Refund(42, client, 0)
	assert.True(t, errors.Is(err, apperr.NotFound))
}

func TestRefundReturnsEverything(t *testing.T) {
	l, book := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	_, err = l.Refund(1, "someone-else", 1)
	assert.True(t, errors.Is(err, apperr.Unauthorized))

	amount, err := l.Refund(1, client, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), amount)
	assert.Equal(t, uint64(5_000_000), book.Balance(client))
	assert.Zero(t, book.Balance(treasury))
}

func TestSplitTakesFeeFromProviderShare(t *testing.T) {
	l, book := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	s, err := l.Split(1, 70, client, provider, treasury, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_500_000), s.ClientAmount)
	assert.Equal(t, uint64(1_462_500), s.ProviderAmount)
	assert.Equal(t, uint64(37_500), s.FeeAmount)

	assert.Equal(t, uint64(3_500_000), book.Balance(client))
	assert.Equal(t, uint64(1_462_500), book.Balance(provider))
	assert.Equal(t, uint64(37_500), book.Balance(treasury))

	rec, _ := l.Get(1)
	assert.Equal(t, Split, rec.Outcome)
}

func TestSplitRejectsBadPercentage(t *testing.T) {
	l, _ := newLedger(t, 5_000_000)
	_, err := l.Lock(1, client, 5_000_000, 250, 0)
	require.NoError(t, err)

	_, err = l.Split(1, 101, client, provider, treasury, 0)
	assert.True(t, errors.Is(err, apperr.InvalidInput))
	rec, _ := l.Get(1)
	assert.True(t, rec.Locked())
}

func TestSplitRoundingRemainderGoesToFee(t *testing.T) {
	// 1_000_003 * 33 / 100 = 330_000 (rem .99), * 67 / 100 = 670_002 (rem .01)
	s := SplitAmounts(1_000_003, 33, 250)
	assert.Equal(t, uint64(330_000), s.ClientAmount)
	assert.Equal(t, uint64(670_002-16_750), s.ProviderAmount)
	assert.Equal(t, uint64(16_750+1), s.FeeAmount)
	assert.Equal(t, uint64(1_000_003), s.Total())
}

func TestTotalsTrackOutcomes(t *testing.T) {
	l, _ := newLedger(t, 20_000_000)
	for id := uint64(1); id <= 3; id++ {
		_, err := l.Lock(id, client, 5_000_000, 250, 0)
		require.NoError(t, err)
	}
	_, err := l.Release(1, provider, treasury, 5_000_000, 1)
	require.NoError(t, err)
	_, err = l.Refund(2, client, 1)
	require.NoError(t, err)

	tot := l.Totals()
	assert.Equal(t, uint64(5_000_000), tot.Locked)
	assert.Equal(t, uint64(4_875_000), tot.Released)
	assert.Equal(t, uint64(5_000_000), tot.Refunded)
	assert.Equal(t, uint64(125_000), tot.Fees)
}
