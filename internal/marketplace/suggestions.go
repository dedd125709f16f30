package marketplace

import (
	"context"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/quota"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// openForSuggestions checks the caller is the suggestion operator or an admin
// and that the service still accepts candidates.
func (e *Engine) openForSuggestions(op string, serviceID uint64, caller string) (*ServiceRequest, error) {
	if caller == "" || (caller != e.operator && !e.admins[caller]) {
		return nil, apperr.New(op, apperr.Unauthorized, "only the suggestion operator can manage slates")
	}
	s, err := e.service(op, serviceID)
	if err != nil {
		return nil, err
	}
	if s.Status != Open {
		return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
	}
	return s, nil
}

func (e *Engine) InitializeSuggestions(ctx context.Context, serviceID uint64, caller string, slateSize uint) (quota.Quota, error) {
	const op = "initialize_suggestions"
	var out quota.Quota
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		if _, err := e.openForSuggestions(op, serviceID, caller); err != nil {
			return nil, err
		}
		q, err := e.quotas.Initialize(serviceID, slateSize, tick)
		if err != nil {
			return nil, err
		}
		out = q
		return nil, nil
	})
	return out, err
}

func (e *Engine) SubmitExperiencedSuggestion(ctx context.Context, serviceID uint64, caller, provider string, p quota.Proposal) (quota.Suggestion, error) {
	return e.submitSuggestion(ctx, "submit_experienced_suggestion", serviceID, caller, provider, p, func(tick uint64) (quota.Suggestion, error) {
		return e.quotas.SubmitExperienced(serviceID, provider, p, tick)
	})
}

// SubmitNewProviderSuggestion fills a new-provider slot; the provider must
// still be within its trial projects.
func (e *Engine) SubmitNewProviderSuggestion(ctx context.Context, serviceID uint64, caller, provider string, p quota.Proposal) (quota.Suggestion, error) {
	return e.submitSuggestion(ctx, "submit_new_provider_suggestion", serviceID, caller, provider, p, func(tick uint64) (quota.Suggestion, error) {
		completed := e.rep.Provider(provider).CompletedServices
		return e.quotas.SubmitNewProvider(serviceID, provider, completed, e.params.TrialProjects, p, tick)
	})
}

func (e *Engine) submitSuggestion(ctx context.Context, op string, serviceID uint64, caller, provider string, p quota.Proposal, submit func(tick uint64) (quota.Suggestion, error)) (quota.Suggestion, error) {
	var out quota.Suggestion
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.openForSuggestions(op, serviceID, caller)
		if err != nil {
			return nil, err
		}
		if provider == s.Client || !validation.IsValidPrincipal(provider) {
			return nil, apperr.New(op, apperr.InvalidInput, "provider cannot be the client")
		}
		sug, err := submit(tick)
		if err != nil {
			return nil, err
		}
		e.stats.Suggestions++
		out = sug
		return []events.Event{e.event(events.SuggestionAccepted, s, caller, tick, map[string]any{
			"provider":            provider,
			"bucket":              sug.Bucket,
			"success_probability": sug.SuccessProbability,
		})}, nil
	})
	return out, err
}

func (e *Engine) CompleteSuggestions(ctx context.Context, serviceID uint64, caller string) (quota.Quota, error) {
	const op = "complete_suggestions"
	var out quota.Quota
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		if _, err := e.openForSuggestions(op, serviceID, caller); err != nil {
			return nil, err
		}
		q, err := e.quotas.Complete(serviceID)
		if err != nil {
			return nil, err
		}
		out = q
		return nil, nil
	})
	return out, err
}

// Quota returns the slate of a service.
func (e *Engine) Quota(serviceID uint64) (QuotaView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.quotas.Get(serviceID)
	if !ok {
		return QuotaView{}, apperr.New("get_quota", apperr.NotFound, "no slate for service %d", serviceID)
	}
	return QuotaView{Quota: q, Suggestions: e.quotas.Suggestions(serviceID)}, nil
}
