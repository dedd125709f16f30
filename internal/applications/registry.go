// Package applications tracks provider applications per service and admits
// new ones through the SKILL token fee gate.
package applications

import (
	"context"
	"strings"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// Application is keyed by (ServiceID, Provider).
type Application struct {
	ServiceID      uint64   `json:"service_id"`
	Provider       string   `json:"provider"`
	Message        string   `json:"message"`
	ProposedPrice  *uint64  `json:"proposed_price,omitempty"`
	Timeline       uint64   `json:"timeline"`
	PortfolioLinks []string `json:"portfolio_links"`
	Question       string   `json:"question,omitempty"`
	SubmittedAt    uint64   `json:"submitted_at"`
	Withdrawn      bool     `json:"withdrawn"`
	WithdrawnAt    uint64   `json:"withdrawn_at,omitempty"`
}

// Live reports whether the application can still be selected.
func (a Application) Live() bool { return !a.Withdrawn }

// Request carries the provider-supplied fields of an application.
type Request struct {
	Message        string
	Timeline       uint64
	PortfolioLinks []string
	ProposedPrice  *uint64
	Question       string
}

// Service is what the registry needs to know about the target service.
type Service struct {
	ID     uint64
	Client string
	Amount uint64
	Open   bool
}

// FeeGate debits the anti-spam application fee.
type FeeGate interface {
	DebitForApplication(ctx context.Context, account string, amount uint64) error
}

// Limits are the application bounds taken from the parameter registry.
type Limits struct {
	MinMessageLength int
	MaxMessageLength int
	MaxTimeline      uint64
	MinLinks         int
	MaxLinks         int
	MaxFieldLength   int
	PriceBandMinPct  uint64
	PriceBandMaxPct  uint64
	MaxPerService    int
	ApplicationCost  uint64
}

// Registry is not safe for concurrent use; the lifecycle engine serializes it.
type Registry struct {
	limits    Limits
	gate      FeeGate
	byService map[uint64]map[string]*Application
	order     map[uint64][]string
}

func NewRegistry(limits Limits, gate FeeGate) *Registry {
	return &Registry{
		limits:    limits,
		gate:      gate,
		byService: make(map[uint64]map[string]*Application),
		order:     make(map[uint64][]string),
	}
}

// Apply validates req in a fixed order and, when every check passes, debits
// the application fee and stores the application.
func (r *Registry) Apply(ctx context.Context, svc Service, provider string, req Request, tick uint64) (Application, error) {
	const op = "applications.apply"
	lim := r.limits

	if !svc.Open {
		return Application{}, apperr.New(op, apperr.InvalidState, "service %d is not open", svc.ID)
	}
	if !validation.IsValidPrincipal(provider) {
		return Application{}, apperr.New(op, apperr.InvalidInput, "malformed provider")
	}
	if provider == svc.Client {
		return Application{}, apperr.New(op, apperr.Unauthorized, "clients cannot apply to their own service")
	}
	if !validation.IsValidString(strings.TrimSpace(req.Message), lim.MinMessageLength, lim.MaxMessageLength) {
		return Application{}, apperr.New(op, apperr.InvalidInput, "message must be %d-%d characters", lim.MinMessageLength, lim.MaxMessageLength)
	}
	if !validation.IsValidDuration(req.Timeline, lim.MaxTimeline) {
		return Application{}, apperr.New(op, apperr.InvalidDuration, "timeline must be 1-%d ticks", lim.MaxTimeline)
	}
	if !validation.AreValidLinks(req.PortfolioLinks, lim.MinLinks, lim.MaxLinks, lim.MaxFieldLength) {
		return Application{}, apperr.New(op, apperr.InvalidInput, "portfolio needs %d-%d links", lim.MinLinks, lim.MaxLinks)
	}
	if req.ProposedPrice != nil && !validation.IsWithinPriceBand(*req.ProposedPrice, svc.Amount, lim.PriceBandMinPct, lim.PriceBandMaxPct) {
		return Application{}, apperr.New(op, apperr.InvalidAmount, "proposed price must be %d%%-%d%% of %d", lim.PriceBandMinPct, lim.PriceBandMaxPct, svc.Amount)
	}
	if !validation.IsValidString(req.Question, 0, lim.MaxFieldLength) {
		return Application{}, apperr.New(op, apperr.InvalidInput, "question longer than %d characters", lim.MaxFieldLength)
	}
	if _, ok := r.Live(svc.ID, provider); ok {
		return Application{}, apperr.New(op, apperr.Duplicate, "provider already applied to service %d", svc.ID)
	}
	if r.LiveCount(svc.ID) >= lim.MaxPerService {
		return Application{}, apperr.New(op, apperr.InvalidStatus, "service %d has %d applications", svc.ID, lim.MaxPerService)
	}
	if err := r.debit(ctx, provider); err != nil {
		return Application{}, err
	}

	app := &Application{
		ServiceID:      svc.ID,
		Provider:       provider,
		Message:        strings.TrimSpace(req.Message),
		Timeline:       req.Timeline,
		PortfolioLinks: append([]string(nil), req.PortfolioLinks...),
		Question:       req.Question,
		SubmittedAt:    tick,
	}
	if req.ProposedPrice != nil {
		price := *req.ProposedPrice
		app.ProposedPrice = &price
	}

	apps := r.byService[svc.ID]
	if apps == nil {
		apps = make(map[string]*Application)
		r.byService[svc.ID] = apps
	}
	if _, seen := apps[provider]; !seen {
		r.order[svc.ID] = append(r.order[svc.ID], provider)
	}
	apps[provider] = app
	return *app, nil
}

// Withdraw marks the provider's live application withdrawn.
func (r *Registry) Withdraw(svc Service, provider string, tick uint64) (Application, error) {
	const op = "applications.withdraw"
	app, ok := r.byService[svc.ID][provider]
	if !ok || app.Withdrawn {
		return Application{}, apperr.New(op, apperr.NotFound, "no live application from provider on service %d", svc.ID)
	}
	if !svc.Open {
		return Application{}, apperr.New(op, apperr.InvalidState, "applications are frozen once service %d leaves open", svc.ID)
	}
	app.Withdrawn = true
	app.WithdrawnAt = tick
	return *app, nil
}

// Get returns the latest application from provider, withdrawn or not.
func (r *Registry) Get(serviceID uint64, provider string) (Application, bool) {
	app, ok := r.byService[serviceID][provider]
	if !ok {
		return Application{}, false
	}
	return *app, true
}

// Live returns the provider's application only while it is not withdrawn.
func (r *Registry) Live(serviceID uint64, provider string) (Application, bool) {
	app, ok := r.Get(serviceID, provider)
	if !ok || app.Withdrawn {
		return Application{}, false
	}
	return app, true
}

// List returns every application for the service in submission order.
func (r *Registry) List(serviceID uint64) []Application {
	out := make([]Application, 0, len(r.order[serviceID]))
	for _, p := range r.order[serviceID] {
		out = append(out, *r.byService[serviceID][p])
	}
	return out
}

func (r *Registry) LiveCount(serviceID uint64) int {
	n := 0
	for _, app := range r.byService[serviceID] {
		if !app.Withdrawn {
			n++
		}
	}
	return n
}

func (r *Registry) debit(ctx context.Context, provider string) error {
	const op = "applications.fee"
	if r.gate == nil {
		return apperr.New(op, apperr.SkillTokenContractNotSet, "no fee ledger configured")
	}
	err := r.gate.DebitForApplication(ctx, provider, r.limits.ApplicationCost)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != 0 {
		return err
	}
	return apperr.New(op, apperr.ApplicationFeeRequired, "%v", err)
}
