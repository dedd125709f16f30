package marketplace

import (
	"context"

	"github.com/sudo-init-do/skillflow/internal/applications"
	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
)

func (e *Engine) registryView(s *ServiceRequest) applications.Service {
	return applications.Service{ID: s.ID, Client: s.Client, Amount: s.Amount, Open: s.Status == Open}
}

// Apply admits a provider's application after the platform, rate limit and
// service checks; the registry runs the field checks and the fee debit.
func (e *Engine) Apply(ctx context.Context, serviceID uint64, provider string, req applications.Request) (applications.Application, error) {
	const op = "apply"
	var out applications.Application
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		if !e.platform.Active {
			return nil, apperr.New(op, apperr.Paused, "")
		}
		if !e.limiter.Allow(actionApply, provider, tick, e.params.MaxApplicationsPerTick) {
			return nil, apperr.New(op, apperr.RateLimited, "%d applications per block", e.params.MaxApplicationsPerTick)
		}
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		app, err := e.apps.Apply(ctx, e.registryView(s), provider, req, tick)
		if err != nil {
			return nil, err
		}
		e.limiter.Commit(actionApply, provider, tick)
		e.stats.Applications++
		payload := map[string]any{"provider": provider, "timeline": app.Timeline}
		if app.ProposedPrice != nil {
			payload["proposed_price"] = *app.ProposedPrice
		}
		out = app
		return []events.Event{e.event(events.ApplicationSubmitted, s, provider, tick, payload)}, nil
	})
	return out, err
}

func (e *Engine) WithdrawApplication(ctx context.Context, serviceID uint64, provider string) (applications.Application, error) {
	const op = "withdraw_application"
	var out applications.Application
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		app, err := e.apps.Withdraw(e.registryView(s), provider, tick)
		if err != nil {
			return nil, err
		}
		out = app
		return []events.Event{e.event(events.ApplicationWithdrawn, s, provider, tick, map[string]any{"provider": provider})}, nil
	})
	return out, err
}

// SelectProvider matches the service with a provider who has a live
// application or an accepted suggestion. Accepting a proposed price changes
// the effective amount only; escrow keeps the original lock.
func (e *Engine) SelectProvider(ctx context.Context, serviceID uint64, client, provider string, acceptProposedPrice bool) (ServiceRequest, error) {
	const op = "select_provider"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if client != s.Client {
			return nil, apperr.New(op, apperr.Unauthorized, "only the client can select a provider")
		}
		if s.Status != Open {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		src, err := e.source(op, serviceID, provider)
		if err != nil {
			return nil, err
		}

		s.Status = Matched
		s.Provider = provider
		s.Source = src
		if price, ok := src.ProposedPrice(); ok && acceptProposedPrice {
			s.EffectiveAmount = price
		}
		ev := e.event(events.ProviderSelected, s, client, tick, map[string]any{
			"provider":         provider,
			"source":           src.Kind,
			"effective_amount": s.EffectiveAmount,
			"payable":          s.Payable(),
		})
		out = *s
		return []events.Event{ev}, nil
	})
	return out, err
}

// source prefers a live application over a suggestion for the same provider.
func (e *Engine) source(op string, serviceID uint64, provider string) (*SelectionSource, error) {
	if app, ok := e.apps.Live(serviceID, provider); ok {
		return applicationSource(app), nil
	}
	if sug, ok := e.quotas.Suggestion(serviceID, provider); ok {
		return suggestionSource(sug), nil
	}
	return nil, apperr.New(op, apperr.NotFound, "provider has no live application or suggestion")
}

func (e *Engine) Applications(serviceID uint64) ([]applications.Application, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.service("list_applications", serviceID); err != nil {
		return nil, err
	}
	return e.apps.List(serviceID), nil
}

func (e *Engine) Application(serviceID uint64, provider string) (applications.Application, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	app, ok := e.apps.Get(serviceID, provider)
	if !ok {
		return applications.Application{}, apperr.New("get_application", apperr.NotFound, "no application from provider on service %d", serviceID)
	}
	return app, nil
}
