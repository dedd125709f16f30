// Package skilltoken is the SKILL balance ledger used as the anti-spam gate
// for applications. Debited tokens are burned.
package skilltoken

import (
	"context"
	"math"
	"sync"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

// Ledger is the collaborator the application registry debits.
type Ledger interface {
	DebitForApplication(ctx context.Context, account string, amount uint64) error
}

// Issuer is a Ledger the platform owner can mint into.
type Issuer interface {
	Ledger
	Mint(account string, amount uint64) error
	Balance(account string) uint64
}

// Memory is an in-process Ledger. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	enabled  bool
	balances map[string]uint64
	burned   uint64
}

// NewMemory returns a ledger; a disabled ledger rejects every debit as not
// configured.
func NewMemory(enabled bool) *Memory {
	return &Memory{enabled: enabled, balances: make(map[string]uint64)}
}

func (m *Memory) Mint(account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount == 0 || m.balances[account] > math.MaxUint64-amount {
		return apperr.New("skilltoken.mint", apperr.InvalidAmount, "cannot mint %d", amount)
	}
	m.balances[account] += amount
	return nil
}

func (m *Memory) Balance(account string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

// Burned returns the total debited through applications.
func (m *Memory) Burned() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.burned
}

func (m *Memory) DebitForApplication(ctx context.Context, account string, amount uint64) error {
	const op = "skilltoken.debit"
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.enabled:
		return apperr.New(op, apperr.SkillTokenContractNotSet, "")
	case amount == 0:
		return apperr.New(op, apperr.ApplicationFeeRequired, "application cost is zero")
	case m.balances[account] < amount:
		return apperr.New(op, apperr.InsufficientSkillTokens, "balance %d below %d", m.balances[account], amount)
	}
	m.balances[account] -= amount
	m.burned += amount
	return nil
}
