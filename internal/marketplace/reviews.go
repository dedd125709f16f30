package marketplace

import (
	"context"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/reputation"
)

// RateProvider stores the client's single rating of a completed service.
func (e *Engine) RateProvider(ctx context.Context, serviceID uint64, client string, score uint8) (reputation.Rating, error) {
	const op = "rate_provider"
	var out reputation.Rating
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if client != s.Client {
			return nil, apperr.New(op, apperr.Unauthorized, "only the client can rate")
		}
		if s.Status != Completed {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		r, err := e.rep.Record(serviceID, s.Provider, client, score, tick)
		if err != nil {
			return nil, err
		}
		s.Rating = &r.Score
		e.stats.Ratings++
		out = r
		return []events.Event{e.event(events.ProviderRated, s, client, tick, map[string]any{
			"provider": s.Provider,
			"score":    score,
		})}, nil
	})
	return out, err
}

func (e *Engine) Rating(serviceID uint64) (reputation.Rating, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rep.Rating(serviceID)
	if !ok {
		return reputation.Rating{}, apperr.New("get_rating", apperr.NotFound, "service %d not rated", serviceID)
	}
	return r, nil
}

// Reputation returns the provider's aggregate; unknown providers are empty.
func (e *Engine) Reputation(provider string) reputation.Provider {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rep.Provider(provider)
}
