// Package sweeper drives the logical clock and the stale-service sweep.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/marketplace"
)

// Clock is the writable side of the logical clock.
type Clock interface {
	Advance(n uint64) uint64
}

// Engine is the part of the settlement engine the sweep needs.
type Engine interface {
	SweepStale(ctx context.Context) []marketplace.ServiceRequest
}

type Sweeper struct {
	clock  Clock
	engine Engine
	onTick func(tick uint64)
	log    *logrus.Logger
}

// New builds a sweeper. onTick may be nil.
func New(clock Clock, engine Engine, onTick func(uint64), log *logrus.Logger) *Sweeper {
	return &Sweeper{clock: clock, engine: engine, onTick: onTick, log: log}
}

// Step advances one tick and returns the services that became stale.
func (s *Sweeper) Step(ctx context.Context) []marketplace.ServiceRequest {
	tick := s.clock.Advance(1)
	if s.onTick != nil {
		s.onTick(tick)
	}
	stale := s.engine.SweepStale(ctx)
	for _, svc := range stale {
		s.log.WithFields(logrus.Fields{
			"service_id": svc.ID,
			"status":     svc.Status.String(),
			"tick":       tick,
		}).Warn("service stale")
	}
	return stale
}

// Start runs Step every interval until ctx is done. The returned cron is
// already started; Stop waits for a running step.
func (s *Sweeper) Start(ctx context.Context, every time.Duration) *cron.Cron {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(every), cron.FuncJob(func() { s.Step(ctx) }))
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c
}
