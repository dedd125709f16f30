package wallet

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

// Book keeps per-account balances and the transaction log behind them.
type Book struct {
	mu       sync.RWMutex
	balances map[string]uint64
	txs      []Transaction
	now      func() time.Time
}

func NewBook() *Book {
	return &Book{
		balances: make(map[string]uint64),
		now:      time.Now,
	}
}

// Balance returns the available balance of account.
func (b *Book) Balance(account string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[account]
}

// CanCover reports whether account holds at least amount.
func (b *Book) CanCover(account string, amount uint64) bool {
	return b.Balance(account) >= amount
}

// Deposit credits account from outside the platform (a confirmed top-up).
func (b *Book) Deposit(account string, amount uint64, reference string) (Transaction, error) {
	const op = "wallet.deposit"
	if amount == 0 {
		return Transaction{}, apperr.New(op, apperr.InvalidAmount, "amount must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[account] > math.MaxUint64-amount {
		return Transaction{}, apperr.New(op, apperr.InvalidAmount, "balance overflow")
	}
	b.balances[account] += amount
	tx := b.record(account, amount, TypeCredit, StatusTopup, reference)
	return tx, nil
}

// Transfer moves amount between two accounts and logs both legs.
func (b *Book) Transfer(from, to string, amount uint64, status, reference string) error {
	const op = "wallet.transfer"
	if amount == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[from] < amount {
		return apperr.New(op, apperr.InsufficientFunds, "%s holds %d, needs %d", from, b.balances[from], amount)
	}
	if from != to && b.balances[to] > math.MaxUint64-amount {
		return apperr.New(op, apperr.InvalidAmount, "balance overflow for %s", to)
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	b.record(from, amount, TypeDebit, status, reference)
	b.record(to, amount, TypeCredit, status, reference)
	return nil
}

// Transactions returns account's log, newest first.
func (b *Book) Transactions(account string) []Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Transaction
	for i := len(b.txs) - 1; i >= 0; i-- {
		if b.txs[i].Account == account {
			out = append(out, b.txs[i])
		}
	}
	return out
}

// All returns the full log in insertion order.
func (b *Book) All() []Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Transaction(nil), b.txs...)
}

func (b *Book) record(account string, amount uint64, typ, status, reference string) Transaction {
	tx := Transaction{
		ID:        uuid.New().String(),
		Account:   account,
		Amount:    amount,
		Type:      typ,
		Status:    status,
		Reference: reference,
		CreatedAt: b.now(),
	}
	b.txs = append(b.txs, tx)
	return tx
}
