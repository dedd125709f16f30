// Package events carries committed engine operations to the outside world.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Kind string

const (
	ServiceCreated           Kind = "service.created"
	ApplicationSubmitted     Kind = "application.submitted"
	ApplicationWithdrawn     Kind = "application.withdrawn"
	SuggestionAccepted       Kind = "suggestion.accepted"
	ProviderSelected         Kind = "provider.selected"
	SessionStarted           Kind = "session.started"
	WorkMarkedCompleted      Kind = "work.marked_completed"
	ServiceCompleted         Kind = "service.completed"
	ProviderRated            Kind = "provider.rated"
	DisputeOpened            Kind = "dispute.opened"
	DisputeResolved          Kind = "dispute.resolved"
	ServiceCancelled         Kind = "service.cancelled"
	ServiceEmergencyCanceled Kind = "service.emergency_cancelled"
	ServiceStale             Kind = "service.stale"
)

// Event describes one committed operation. Seq is the engine's admission
// order and is unique across all services.
type Event struct {
	ID        string         `json:"id"`
	Seq       uint64         `json:"seq"`
	Kind      Kind           `json:"kind"`
	ServiceID uint64         `json:"service_id"`
	Actor     string         `json:"actor"`
	Parties   []string       `json:"parties,omitempty"`
	Tick      uint64         `json:"tick"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

func New(seq uint64, kind Kind, serviceID uint64, actor string, tick uint64, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Seq:       seq,
		Kind:      kind,
		ServiceID: serviceID,
		Actor:     actor,
		Tick:      tick,
		Payload:   payload,
		At:        time.Now().UTC(),
	}
}

type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Fanout delivers each event to every sink. Delivery is best-effort: a
// failing sink is logged and the rest still receive the event.
type Fanout struct {
	log   *logrus.Logger
	sinks map[string]Sink
	order []string
}

func NewFanout(log *logrus.Logger) *Fanout {
	return &Fanout{log: log, sinks: make(map[string]Sink)}
}

// Add registers a sink under name, replacing any previous one.
func (f *Fanout) Add(name string, s Sink) {
	if _, ok := f.sinks[name]; !ok {
		f.order = append(f.order, name)
	}
	f.sinks[name] = s
}

func (f *Fanout) Publish(ctx context.Context, e Event) error {
	for _, name := range f.order {
		if err := f.sinks[name].Publish(ctx, e); err != nil {
			f.log.WithFields(logrus.Fields{
				"sink":       name,
				"event":      e.Kind,
				"service_id": e.ServiceID,
				"seq":        e.Seq,
			}).WithError(err).Warn("event delivery failed")
		}
	}
	return nil
}
