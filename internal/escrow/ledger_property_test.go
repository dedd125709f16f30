package escrow

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/sudo-init-do/skillflow/internal/wallet"
)

func TestReleaseConservesAmount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("provider + fee == amount", prop.ForAll(
		func(amount, rate uint64) bool {
			book := wallet.NewBook()
			if _, err := book.Deposit(client, amount, "seed"); err != nil {
				return false
			}
			l := New(book, 1_000_000, 100_000_000_000)
			if _, err := l.Lock(1, client, amount, rate, 0); err != nil {
				return false
			}
			s, err := l.Release(1, provider, treasury, amount, 1)
			if err != nil {
				return false
			}
			return s.ProviderAmount+s.FeeAmount == amount &&
				s.FeeAmount == amount*rate/10_000 &&
				book.Balance(PoolAccount) == 0
		},
		gen.UInt64Range(1_000_000, 100_000_000_000),
		gen.UInt64Range(0, 9_999),
	))

	properties.TestingRun(t)
}

func TestSplitConservesAmount(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("client + provider + fee == amount", prop.ForAll(
		func(amount, pct, rate uint64) bool {
			s := SplitAmounts(amount, pct, rate)
			return s.Total() == amount && s.ClientAmount == amount*pct/100
		},
		gen.UInt64Range(1_000_000, 100_000_000_000),
		gen.UInt64Range(0, 100),
		gen.UInt64Range(0, 9_999),
	))

	properties.TestingRun(t)
}

func TestExactlyOneOutcome(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("second settlement always fails", prop.ForAll(
		func(first, second int) bool {
			book := wallet.NewBook()
			_, _ = book.Deposit(client, 5_000_000, "seed")
			l := New(book, 1_000_000, 100_000_000_000)
			if _, err := l.Lock(1, client, 5_000_000, 250, 0); err != nil {
				return false
			}
			if err := settleBy(l, first); err != nil {
				return false
			}
			return settleBy(l, second) != nil
		},
		gen.IntRange(0, 2),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

func settleBy(l *Ledger, how int) error {
	var err error
	switch how {
	case 0:
		_, err = l.Release(1, provider, treasury, 5_000_000, 1)
	case 1:
		_, err = l.Refund(1, client, 1)
	default:
		_, err = l.Split(1, 50, client, provider, treasury, 1)
	}
	return err
}
