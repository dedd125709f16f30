// Package marketplace is the service lifecycle engine. It owns service status,
// drives escrow settlement and admits applications and suggestions.
package marketplace

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/applications"
	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/clock"
	"github.com/sudo-init-do/skillflow/internal/config"
	"github.com/sudo-init-do/skillflow/internal/escrow"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/oracle"
	"github.com/sudo-init-do/skillflow/internal/quota"
	"github.com/sudo-init-do/skillflow/internal/ratelimit"
	"github.com/sudo-init-do/skillflow/internal/reputation"
	"github.com/sudo-init-do/skillflow/internal/skilltoken"
	"github.com/sudo-init-do/skillflow/internal/validation"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

const (
	actionCreate = "create_service"
	actionApply  = "apply"
)

// RejectionObserver is told about every rejected operation.
type RejectionObserver interface {
	ObserveRejection(op string, kind apperr.Kind)
}

// Deps wires the engine to its collaborators. Events, Rejections and Log are
// optional.
type Deps struct {
	Params             config.Params
	Clock              clock.Clock
	Wallets            *wallet.Book
	Oracle             oracle.PriceOracle
	Tokens             skilltoken.Ledger
	Events             events.Sink
	Rejections         RejectionObserver
	Log                *logrus.Logger
	Admins             []string
	Treasury           string
	SuggestionOperator string
}

// Engine serializes every operation under one lock, so each operation is
// atomic and services observe a single admission order.
type Engine struct {
	mu sync.Mutex
	// pub is taken before mu is released so events leave in seq order.
	pub sync.Mutex

	params   config.Params
	clock    clock.Clock
	wallets  *wallet.Book
	escrow   *escrow.Ledger
	apps     *applications.Registry
	quotas   *quota.Manager
	rep      *reputation.Tracker
	limiter  *ratelimit.Limiter
	oracle   oracle.PriceOracle
	tokens   skilltoken.Ledger
	events   events.Sink
	rejects  RejectionObserver
	log      *logrus.Logger
	admins   map[string]bool
	operator string

	platform      Platform
	services      map[uint64]*ServiceRequest
	staleReported map[uint64]bool
	nextID        uint64
	seq           uint64
	stats         Stats
}

func New(d Deps) (*Engine, error) {
	if err := checkTreasury("new_engine", d.Treasury); err != nil {
		return nil, err
	}
	p := d.Params
	log := d.Log
	if log == nil {
		log = logrus.New()
	}
	admins := make(map[string]bool, len(d.Admins))
	for _, a := range d.Admins {
		admins[a] = true
	}
	var gate applications.FeeGate
	if d.Tokens != nil {
		gate = d.Tokens
	}
	return &Engine{
		params:  p,
		clock:   d.Clock,
		wallets: d.Wallets,
		escrow:  escrow.New(d.Wallets, p.MinServiceAmount, p.MaxServiceAmount),
		apps: applications.NewRegistry(applications.Limits{
			MinMessageLength: p.MinMessageLength,
			MaxMessageLength: p.MaxMessageLength,
			MaxTimeline:      p.MaxServiceDuration,
			MinLinks:         p.MinPortfolioLinks,
			MaxLinks:         p.MaxPortfolioLinks,
			MaxFieldLength:   p.MaxReferenceLength,
			PriceBandMinPct:  p.PriceBandMinPct,
			PriceBandMaxPct:  p.PriceBandMaxPct,
			MaxPerService:    p.MaxApplicationsPerService,
			ApplicationCost:  p.ApplicationCost,
		}, gate),
		quotas: quota.NewManager(quota.Rules{
			QuotaPercentage:           p.QuotaPercentage,
			MinNewProviderSuggestions: p.MinNewProviderSuggestions,
			MaxSuggestions:            p.MaxSuggestions,
			ExperiencedThreshold:      p.ExperiencedThreshold,
			NewProviderThreshold:      p.NewProviderThreshold,
			MaxTimeline:               p.MaxServiceDuration,
			MaxNotesLength:            p.MaxDescriptionLength,
		}),
		rep:           reputation.NewTracker(p.MinRating, p.MaxRating),
		limiter:       ratelimit.New(),
		oracle:        d.Oracle,
		tokens:        d.Tokens,
		events:        d.Events,
		rejects:       d.Rejections,
		log:           log,
		admins:        admins,
		operator:      d.SuggestionOperator,
		platform:      Platform{Active: true, Treasury: d.Treasury},
		services:      make(map[uint64]*ServiceRequest),
		staleReported: make(map[uint64]bool),
	}, nil
}

// IsAdmin reports whether account holds the administrator role.
func (e *Engine) IsAdmin(account string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admins[account]
}

// do runs fn under the engine lock. Events fn committed are published after
// the lock is released, in sequence order across operations. Sinks must not
// call back into the engine.
func (e *Engine) do(ctx context.Context, op string, fn func(tick uint64) ([]events.Event, error)) error {
	e.mu.Lock()
	tick := e.clock.Now()
	evs, err := fn(tick)
	if err != nil {
		e.mu.Unlock()
		e.reject(op, err)
		return err
	}
	e.pub.Lock()
	e.mu.Unlock()
	defer e.pub.Unlock()

	for _, ev := range evs {
		e.log.WithFields(logrus.Fields{
			"op":         op,
			"event":      ev.Kind,
			"service_id": ev.ServiceID,
			"actor":      ev.Actor,
			"tick":       ev.Tick,
			"seq":        ev.Seq,
		}).Info("operation committed")
		if e.events != nil {
			_ = e.events.Publish(ctx, ev)
		}
	}
	return nil
}

// event allocates the next sequence number. Callers hold the lock.
func (e *Engine) event(kind events.Kind, s *ServiceRequest, actor string, tick uint64, payload map[string]any) events.Event {
	e.seq++
	s.Seq = e.seq
	s.UpdatedAt = tick
	delete(e.staleReported, s.ID)
	ev := events.New(e.seq, kind, s.ID, actor, tick, payload)
	ev.Parties = s.parties()
	return ev
}

func (e *Engine) service(op string, id uint64) (*ServiceRequest, error) {
	s, ok := e.services[id]
	if !ok {
		return nil, apperr.New(op, apperr.NotFound, "service %d", id)
	}
	return s, nil
}

// checkTreasury rejects principals that cannot receive fees: malformed
// ones, the burn address, and the escrow pool itself.
func checkTreasury(op, treasury string) error {
	if !validation.IsValidPrincipal(treasury) || treasury == escrow.PoolAccount {
		return apperr.New(op, apperr.InvalidInput, "invalid treasury principal %q", treasury)
	}
	return nil
}

func (e *Engine) requireAdmin(op, caller string) error {
	if !e.admins[caller] {
		return apperr.New(op, apperr.AdminOnly, "")
	}
	return nil
}

func (e *Engine) emergencyActive(tick uint64) bool {
	return e.platform.EmergencyMode && tick < e.platform.EmergencyActivatedAt+e.params.EmergencyTimeout
}

// view copies s and evaluates the stale timeout against tick.
func (e *Engine) view(s *ServiceRequest, tick uint64) ServiceRequest {
	out := *s
	out.Stale = e.isStale(s, tick)
	return out
}

func (e *Engine) isStale(s *ServiceRequest, tick uint64) bool {
	if s.Status != Matched && s.Status != InProgress {
		return false
	}
	return tick >= s.UpdatedAt+e.params.StaleServiceTimeout
}
