package marketplace

import (
	"context"
	"math"
	"strings"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/oracle"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// CreateService validates the request, locks the payment in escrow and opens
// the service.
func (e *Engine) CreateService(ctx context.Context, client string, req CreateRequest) (ServiceRequest, error) {
	const op = "create_service"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		p := e.params
		if !e.platform.Active {
			return nil, apperr.New(op, apperr.Paused, "")
		}
		if !e.limiter.Allow(actionCreate, client, tick, p.MaxServicesPerTick) {
			return nil, apperr.New(op, apperr.RateLimited, "%d services per block", p.MaxServicesPerTick)
		}
		if !validation.IsValidPrincipal(client) {
			return nil, apperr.New(op, apperr.InvalidInput, "malformed client")
		}
		category := strings.TrimSpace(req.Category)
		if !validation.IsValidString(category, p.MinCategoryLength, p.MaxCategoryLength) {
			return nil, apperr.New(op, apperr.InvalidInput, "category must be %d-%d characters", p.MinCategoryLength, p.MaxCategoryLength)
		}
		if !validation.IsValidString(req.Description, 1, p.MaxDescriptionLength) {
			return nil, apperr.New(op, apperr.InvalidInput, "description must be 1-%d characters", p.MaxDescriptionLength)
		}
		if !validation.IsValidAmount(req.Amount, p.MinServiceAmount, p.MaxServiceAmount) {
			return nil, apperr.New(op, apperr.InvalidAmount, "amount %d outside [%d, %d]", req.Amount, p.MinServiceAmount, p.MaxServiceAmount)
		}
		if !validation.IsValidDuration(req.Duration, p.MaxServiceDuration) {
			return nil, apperr.New(op, apperr.InvalidDuration, "duration must be 1-%d ticks", p.MaxServiceDuration)
		}
		if req.Rush && req.Duration > p.RushMaxDuration {
			return nil, apperr.New(op, apperr.InvalidDuration, "rush delivery must fit in %d ticks", p.RushMaxDuration)
		}
		feeRate, err := e.feeRate(ctx, req.Amount, req.Rush)
		if err != nil {
			return nil, err
		}
		quote := e.quote(ctx, req.Amount)

		id := e.nextID + 1
		if _, err := e.escrow.Lock(id, client, req.Amount, feeRate, tick); err != nil {
			return nil, err
		}
		e.nextID = id
		e.limiter.Commit(actionCreate, client, tick)
		e.stats.ServicesCreated++

		s := &ServiceRequest{
			ID:              id,
			Client:          client,
			Category:        category,
			Description:     req.Description,
			Amount:          req.Amount,
			EffectiveAmount: req.Amount,
			Rush:            req.Rush,
			Duration:        req.Duration,
			FeeRate:         feeRate,
			Quote:           quote,
			CreatedAt:       tick,
			Status:          Open,
		}
		e.services[id] = s
		ev := e.event(events.ServiceCreated, s, client, tick, map[string]any{
			"amount":   s.Amount,
			"fee_rate": feeRate,
			"rush":     s.Rush,
			"category": s.Category,
		})
		out = *s
		return []events.Event{ev}, nil
	})
	return out, err
}

// Cancel closes an open service and refunds the full escrow.
func (e *Engine) Cancel(ctx context.Context, serviceID uint64, client string) (ServiceRequest, error) {
	const op = "cancel"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if client != s.Client {
			return nil, apperr.New(op, apperr.Unauthorized, "only the client can cancel")
		}
		if s.Status != Open {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		refunded, err := e.escrow.Refund(serviceID, s.Client, tick)
		if err != nil {
			return nil, err
		}
		s.Status = Cancelled
		e.stats.ServicesCancelled++
		ev := e.event(events.ServiceCancelled, s, client, tick, map[string]any{"refunded": refunded})
		out = *s
		return []events.Event{ev}, nil
	})
	return out, err
}

// Service returns the service with its stale flag evaluated now.
func (e *Engine) Service(serviceID uint64) (ServiceRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.service("get_service", serviceID)
	if err != nil {
		return ServiceRequest{}, err
	}
	return e.view(s, e.clock.Now()), nil
}

// Services lists every service in creation order.
func (e *Engine) Services() []ServiceRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	tick := e.clock.Now()
	out := make([]ServiceRequest, 0, len(e.services))
	for id := uint64(1); id <= e.nextID; id++ {
		if s, ok := e.services[id]; ok {
			out = append(out, e.view(s, tick))
		}
	}
	return out
}

func (e *Engine) feeRate(ctx context.Context, amount uint64, rush bool) (uint64, error) {
	if e.oracle == nil {
		if rush {
			return e.params.PlatformFeeRate + e.params.RushFeeSurcharge, nil
		}
		return e.params.PlatformFeeRate, nil
	}
	rate, err := e.oracle.FeeRate(ctx, oracle.FeeRequest{Amount: amount, Rush: rush})
	if err != nil {
		if apperr.KindOf(err) != 0 {
			return 0, err
		}
		return 0, apperr.New("oracle.fee_rate", apperr.InvalidState, "%v", err)
	}
	return rate, nil
}

// quote records the oracle reading; an unavailable oracle yields a stale quote.
func (e *Engine) quote(ctx context.Context, amount uint64) Quote {
	if e.oracle == nil {
		return Quote{Stale: true}
	}
	r, err := e.oracle.CurrentRate(ctx)
	if err != nil {
		e.log.WithError(err).Warn("price oracle unavailable")
		return Quote{Stale: true}
	}
	q := Quote{Price: r.Price, Confidence: r.Confidence, Stale: r.Stale}
	if r.Price == 0 || amount <= math.MaxUint64/r.Price {
		q.USDValue = amount * r.Price / oracle.MicroUnits
	}
	return q
}
