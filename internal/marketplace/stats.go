package marketplace

import (
	"context"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/oracle"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

// Stats returns platform aggregates including escrow totals.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Totals = e.escrow.Totals()
	return s
}

// Escrow returns the fund state of a service.
func (e *Engine) Escrow(serviceID uint64) (EscrowView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.service("get_escrow", serviceID)
	if err != nil {
		return EscrowView{}, err
	}
	rec, ok := e.escrow.Get(serviceID)
	if !ok {
		return EscrowView{}, apperr.New("get_escrow", apperr.NotFound, "no escrow for service %d", serviceID)
	}
	return EscrowView{Record: rec, Payable: s.Payable()}, nil
}

// SweepStale reports services that have sat in Matched or InProgress past the
// stale timeout. Each service is reported once per stale period.
func (e *Engine) SweepStale(ctx context.Context) []ServiceRequest {
	var stale []ServiceRequest
	_ = e.do(ctx, "sweep_stale", func(tick uint64) ([]events.Event, error) {
		var evs []events.Event
		for id := uint64(1); id <= e.nextID; id++ {
			s, ok := e.services[id]
			if !ok || e.staleReported[id] || !e.isStale(s, tick) {
				continue
			}
			e.staleReported[id] = true
			e.seq++
			ev := events.New(e.seq, events.ServiceStale, id, "", tick, map[string]any{
				"status":     s.Status.String(),
				"idle_since": s.UpdatedAt,
				"idle_for":   tick - s.UpdatedAt,
			})
			ev.Parties = s.parties()
			evs = append(evs, ev)
			stale = append(stale, e.view(s, tick))
		}
		return evs, nil
	})
	return stale
}

// Quote converts a micro-USD amount to micro-STX and reports the fee rates
// that would apply.
func (e *Engine) Quote(ctx context.Context, usd uint64) (CostQuote, error) {
	if e.oracle == nil {
		return CostQuote{}, apperr.New("quote", apperr.InvalidState, "no price oracle configured")
	}
	amount, err := e.oracle.EstimateCost(ctx, usd)
	if err != nil {
		return CostQuote{}, err
	}
	rate, err := e.oracle.CurrentRate(ctx)
	if err != nil {
		return CostQuote{}, err
	}
	normal, err := e.oracle.FeeRate(ctx, oracle.FeeRequest{Amount: amount})
	if err != nil {
		return CostQuote{}, err
	}
	rush, err := e.oracle.FeeRate(ctx, oracle.FeeRequest{Amount: amount, Rush: true})
	if err != nil {
		return CostQuote{}, err
	}
	return CostQuote{USD: usd, Amount: amount, FeeRate: normal, RushFeeRate: rush, Stale: rate.Stale}, nil
}

func (e *Engine) WalletBalance(account string) uint64 {
	return e.wallets.Balance(account)
}

func (e *Engine) WalletTransactions(account string) []wallet.Transaction {
	return e.wallets.Transactions(account)
}
