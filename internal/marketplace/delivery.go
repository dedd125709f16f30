package marketplace

import (
	"context"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// StartSession moves a matched service into progress.
func (e *Engine) StartSession(ctx context.Context, serviceID uint64, caller, meetingRef string) (ServiceRequest, error) {
	const op = "start_session"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if !s.participant(caller) {
			return nil, apperr.New(op, apperr.Unauthorized, "only the client or provider can start the session")
		}
		if s.Status != Matched {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		if !validation.IsValidString(meetingRef, 1, e.params.MaxReferenceLength) {
			return nil, apperr.New(op, apperr.InvalidInput, "meeting reference must be 1-%d characters", e.params.MaxReferenceLength)
		}
		s.Status = InProgress
		s.MeetingRef = meetingRef
		out = *s
		return []events.Event{e.event(events.SessionStarted, s, caller, tick, nil)}, nil
	})
	return out, err
}

// MarkCompleted records the provider's evidence. Funds stay in escrow until
// the client confirms.
func (e *Engine) MarkCompleted(ctx context.Context, serviceID uint64, provider, evidence string) (ServiceRequest, error) {
	const op = "mark_completed"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if provider == "" || provider != s.Provider {
			return nil, apperr.New(op, apperr.Unauthorized, "only the matched provider can mark completion")
		}
		if s.Status != InProgress {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		if s.ProviderEvidence != "" {
			return nil, apperr.New(op, apperr.InvalidState, "completion already marked")
		}
		if !validation.IsValidString(evidence, 1, e.params.MaxReferenceLength) {
			return nil, apperr.New(op, apperr.InvalidInput, "evidence must be 1-%d characters", e.params.MaxReferenceLength)
		}
		s.ProviderEvidence = evidence
		out = *s
		return []events.Event{e.event(events.WorkMarkedCompleted, s, provider, tick, nil)}, nil
	})
	return out, err
}

// ConfirmCompletion releases escrow to the provider and completes the
// service. Status and fund outcome change together.
func (e *Engine) ConfirmCompletion(ctx context.Context, serviceID uint64, client string) (ServiceRequest, error) {
	const op = "confirm_completion"
	var out ServiceRequest
	err := e.do(ctx, op, func(tick uint64) ([]events.Event, error) {
		s, err := e.service(op, serviceID)
		if err != nil {
			return nil, err
		}
		if client != s.Client {
			return nil, apperr.New(op, apperr.Unauthorized, "only the client can confirm")
		}
		if s.Status != InProgress {
			return nil, apperr.New(op, apperr.InvalidState, "service is %s", s.Status)
		}
		if s.ProviderEvidence == "" {
			return nil, apperr.New(op, apperr.InvalidState, "provider has not marked completion")
		}
		settlement, err := e.escrow.Release(serviceID, s.Provider, e.platform.Treasury, s.Payable(), tick)
		if err != nil {
			return nil, err
		}
		s.Status = Completed
		s.ConfirmedAt = tick
		e.rep.RecordCompletion(s.Provider, tick)
		e.stats.ServicesCompleted++
		out = *s
		return []events.Event{e.event(events.ServiceCompleted, s, client, tick, map[string]any{
			"provider":        s.Provider,
			"provider_amount": settlement.ProviderAmount,
			"fee_amount":      settlement.FeeAmount,
			"client_amount":   settlement.ClientAmount,
		})}, nil
	})
	return out, err
}
