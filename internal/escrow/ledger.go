// Package escrow custodies service payments until the lifecycle engine settles
// them. Every record leaves the pending state exactly once.
package escrow

import (
	"strconv"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/config"
	"github.com/sudo-init-do/skillflow/internal/validation"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

// PoolAccount holds every pending escrow balance.
const PoolAccount = "escrow-pool"

type Outcome string

const (
	Pending  Outcome = "pending"
	Released Outcome = "released"
	Refunded Outcome = "refunded"
	Split    Outcome = "split"
)

// Record is the fund state of one service.
type Record struct {
	ServiceID      uint64  `json:"service_id"`
	Client         string  `json:"client"`
	Amount         uint64  `json:"amount"`
	FeeRate        uint64  `json:"fee_rate"`
	Outcome        Outcome `json:"outcome"`
	ProviderAmount uint64  `json:"provider_amount"`
	ClientAmount   uint64  `json:"client_amount"`
	FeeAmount      uint64  `json:"fee_amount"`
	LockedAt       uint64  `json:"locked_at"`
	SettledAt      uint64  `json:"settled_at,omitempty"`
}

// Locked reports whether funds are still held.
func (r Record) Locked() bool { return r.Outcome == Pending }

// Settlement is how a record's amount was distributed.
type Settlement struct {
	ClientAmount   uint64 `json:"client_amount"`
	ProviderAmount uint64 `json:"provider_amount"`
	FeeAmount      uint64 `json:"fee_amount"`
}

// Total is the sum of all legs; it always equals the locked amount.
func (s Settlement) Total() uint64 { return s.ClientAmount + s.ProviderAmount + s.FeeAmount }

// Funds is the balance book escrow moves money through.
type Funds interface {
	CanCover(account string, amount uint64) bool
	Transfer(from, to string, amount uint64, status, reference string) error
}

// Totals aggregates ledger activity for platform statistics.
type Totals struct {
	Locked   uint64 `json:"locked"`
	Released uint64 `json:"released"`
	Refunded uint64 `json:"refunded"`
	Fees     uint64 `json:"fees"`
}

// Ledger is not safe for concurrent use; the lifecycle engine serializes it.
type Ledger struct {
	funds     Funds
	minAmount uint64
	maxAmount uint64
	records   map[uint64]*Record
	totals    Totals
}

func New(funds Funds, minAmount, maxAmount uint64) *Ledger {
	return &Ledger{
		funds:     funds,
		minAmount: minAmount,
		maxAmount: maxAmount,
		records:   make(map[uint64]*Record),
	}
}

// Lock moves amount from client into the escrow pool and snapshots feeRate.
func (l *Ledger) Lock(serviceID uint64, client string, amount, feeRate, tick uint64) (Record, error) {
	const op = "escrow.lock"
	if !validation.IsValidAmount(amount, l.minAmount, l.maxAmount) {
		return Record{}, apperr.New(op, apperr.InvalidAmount, "amount %d outside [%d, %d]", amount, l.minAmount, l.maxAmount)
	}
	if feeRate >= config.BasisPoints {
		return Record{}, apperr.New(op, apperr.InvalidInput, "fee rate %d not below %d", feeRate, config.BasisPoints)
	}
	if _, ok := l.records[serviceID]; ok {
		return Record{}, apperr.New(op, apperr.Duplicate, "service %d already has escrow", serviceID)
	}
	if !l.funds.CanCover(client, amount) {
		return Record{}, apperr.New(op, apperr.InsufficientFunds, "client cannot cover %d", amount)
	}

	if err := l.funds.Transfer(client, PoolAccount, amount, wallet.StatusEscrowHold, ref(serviceID)); err != nil {
		return Record{}, err
	}
	rec := &Record{
		ServiceID: serviceID,
		Client:    client,
		Amount:    amount,
		FeeRate:   feeRate,
		Outcome:   Pending,
		LockedAt:  tick,
	}
	l.records[serviceID] = rec
	l.totals.Locked += amount
	return *rec, nil
}

// Release pays the provider for completed work. payable is the agreed price;
// it is clamped to the locked amount and any unused remainder returns to the
// client in the same step.
func (l *Ledger) Release(serviceID uint64, provider, treasury string, payable, tick uint64) (Settlement, error) {
	const op = "escrow.release"
	rec, err := l.pending(op, serviceID)
	if err != nil {
		return Settlement{}, err
	}

	if payable > rec.Amount {
		payable = rec.Amount
	}
	fee := FeeOf(payable, rec.FeeRate)
	s := Settlement{
		ProviderAmount: payable - fee,
		FeeAmount:      fee,
		ClientAmount:   rec.Amount - payable,
	}
	if err := l.payout(rec, s, provider, treasury, wallet.StatusReleased, wallet.StatusRefund); err != nil {
		return Settlement{}, err
	}
	l.settle(rec, Released, s, tick)
	return s, nil
}

// Refund returns the full locked amount to the client. No fee is taken.
func (l *Ledger) Refund(serviceID uint64, client string, tick uint64) (uint64, error) {
	const op = "escrow.refund"
	rec, err := l.pending(op, serviceID)
	if err != nil {
		return 0, err
	}
	if client != rec.Client {
		return 0, apperr.New(op, apperr.Unauthorized, "refund must go to the depositing client")
	}

	s := Settlement{ClientAmount: rec.Amount}
	if err := l.payout(rec, s, "", "", wallet.StatusRefund, wallet.StatusRefund); err != nil {
		return 0, err
	}
	l.settle(rec, Refunded, s, tick)
	return rec.Amount, nil
}

// Split divides the escrow after a dispute. The platform fee comes out of the
// provider's share only; any rounding remainder goes to the fee.
func (l *Ledger) Split(serviceID, clientSharePct uint64, client, provider, treasury string, tick uint64) (Settlement, error) {
	const op = "escrow.split"
	if !validation.IsValidPercentage(clientSharePct) {
		return Settlement{}, apperr.New(op, apperr.InvalidInput, "client share %d%% above 100%%", clientSharePct)
	}
	rec, err := l.pending(op, serviceID)
	if err != nil {
		return Settlement{}, err
	}
	if client != rec.Client {
		return Settlement{}, apperr.New(op, apperr.Unauthorized, "split must credit the depositing client")
	}

	s := SplitAmounts(rec.Amount, clientSharePct, rec.FeeRate)
	if err := l.payout(rec, s, provider, treasury, wallet.StatusSplit, wallet.StatusSplit); err != nil {
		return Settlement{}, err
	}
	l.settle(rec, Split, s, tick)
	return s, nil
}

// Get returns a copy of the record for serviceID.
func (l *Ledger) Get(serviceID uint64) (Record, bool) {
	rec, ok := l.records[serviceID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (l *Ledger) Totals() Totals { return l.totals }

// FeeOf computes amount*rate/BasisPoints with truncating division.
func FeeOf(amount, rate uint64) uint64 {
	return amount * rate / config.BasisPoints
}

// SplitAmounts is the deterministic dispute split used by Split.
func SplitAmounts(amount, clientSharePct, feeRate uint64) Settlement {
	clientAmount := amount * clientSharePct / 100
	providerGross := amount * (100 - clientSharePct) / 100
	remainder := amount - clientAmount - providerGross
	fee := FeeOf(providerGross, feeRate)
	return Settlement{
		ClientAmount:   clientAmount,
		ProviderAmount: providerGross - fee,
		FeeAmount:      fee + remainder,
	}
}

func (l *Ledger) pending(op string, serviceID uint64) (*Record, error) {
	rec, ok := l.records[serviceID]
	if !ok {
		return nil, apperr.New(op, apperr.NotFound, "no escrow for service %d", serviceID)
	}
	if rec.Outcome != Pending {
		return nil, apperr.New(op, apperr.InvalidState, "escrow for service %d already %s", serviceID, rec.Outcome)
	}
	return rec, nil
}

func (l *Ledger) payout(rec *Record, s Settlement, provider, treasury, providerStatus, clientStatus string) error {
	if s.Total() != rec.Amount {
		return apperr.New("escrow.payout", apperr.InvalidState, "settlement %d does not match locked %d", s.Total(), rec.Amount)
	}
	if !l.funds.CanCover(PoolAccount, rec.Amount) {
		return apperr.New("escrow.payout", apperr.InsufficientFunds, "escrow pool cannot cover service %d", rec.ServiceID)
	}
	r := ref(rec.ServiceID)
	if err := l.funds.Transfer(PoolAccount, provider, s.ProviderAmount, providerStatus, r); err != nil {
		return err
	}
	if err := l.funds.Transfer(PoolAccount, treasury, s.FeeAmount, wallet.StatusPlatformFee, r); err != nil {
		return err
	}
	return l.funds.Transfer(PoolAccount, rec.Client, s.ClientAmount, clientStatus, r)
}

func (l *Ledger) settle(rec *Record, outcome Outcome, s Settlement, tick uint64) {
	rec.Outcome = outcome
	rec.ProviderAmount = s.ProviderAmount
	rec.ClientAmount = s.ClientAmount
	rec.FeeAmount = s.FeeAmount
	rec.SettledAt = tick

	l.totals.Locked -= rec.Amount
	l.totals.Released += s.ProviderAmount
	l.totals.Refunded += s.ClientAmount
	l.totals.Fees += s.FeeAmount
}

func ref(serviceID uint64) string {
	return "service:" + strconv.FormatUint(serviceID, 10)
}
