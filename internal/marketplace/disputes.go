package marketplace

import (
	"context"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// InitiateDispute freezes a matched or in-progress service until an admin
// resolves it.
func (e *Engine) InitiateDispute(ctx context.Context, serviceID uint64, caller, reason string) (ServiceRequest, error) {
	const op = "initiate_dispute"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if !s.participant(caller) {
			return nil, apperr.New(op, apperr.Unauthorized, "only the client or provider can dispute")
		}
		if s.Status != Matched && s.Status != InProgress {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		if !validation.IsValidString(reason, 1, e.params.MaxDescriptionLength) {
			return nil, apperr.New(op, apperr.InvalidInput, "reason must be 1-%d characters", e.params.MaxDescriptionLength)
		}
		stale := e.isStale(s, tick)
		s.Status = Disputed
		s.Disputed = true
		s.DisputedBy = caller
		s.DisputeReason = reason
		e.rep.RecordDispute(s.Provider, tick)
		e.stats.ServicesDisputed++
		out = *s
		return []events.Event{e.event(events.DisputeOpened, s, caller, tick, map[string]any{
			"reason": reason,
			"stale":  stale,
		})}, nil
	})
	return out, err
}

// ResolveDispute splits escrow by clientSharePct and completes the service.
// favorClient must agree with the percentage.
func (e *Engine) ResolveDispute(ctx context.Context, serviceID uint64, admin string, favorClient bool, clientSharePct uint64) (ServiceRequest, error) {
	const op = "resolve_dispute"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		if err := e.requireAdmin(op, admin); err != nil {
			return nil, err
		}
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if s.Status != Disputed {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		if !validation.IsValidPercentage(clientSharePct) {
			return nil, apperr.New(op, apperr.InvalidInput, "client share %d%% above 100%%", clientSharePct)
		}
		if (favorClient && clientSharePct < 50) || (!favorClient && clientSharePct > 50) {
			return nil, apperr.New(op, apperr.InvalidInput, "client share %d%% contradicts the ruling", clientSharePct)
		}
		settlement, err := e.escrow.Split(serviceID, clientSharePct, s.Client, s.Provider, e.platform.Treasury, tick)
		if err != nil {
			return nil, err
		}
		pct := clientSharePct
		s.Status = Completed
		s.ClientSharePct = &pct
		out = *s
		return []events.Event{e.event(events.DisputeResolved, s, admin, tick, map[string]any{
			"favor_client":     favorClient,
			"client_share_pct": clientSharePct,
			"client_amount":    settlement.ClientAmount,
			"provider_amount":  settlement.ProviderAmount,
			"fee_amount":       settlement.FeeAmount,
		})}, nil
	})
	return out, err
}
