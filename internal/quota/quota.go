// Package quota allocates the automated suggestion slate of a service between
// experienced and new providers.
package quota

import (
	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// Bucket names the slot category a suggestion consumed.
type Bucket string

const (
	Experienced Bucket = "experienced"
	NewProvider Bucket = "new_provider"
)

// Quota is the per-service slate. Consumed counts never exceed their slots.
type Quota struct {
	ServiceID           uint64 `json:"service_id"`
	SlateSize           uint   `json:"slate_size"`
	NewProviderSlots    uint   `json:"new_provider_slots"`
	ExperiencedSlots    uint   `json:"experienced_slots"`
	NewProviderConsumed uint   `json:"new_provider_consumed"`
	ExperiencedConsumed uint   `json:"experienced_consumed"`
	Completed           bool   `json:"completed"`
	InitializedAt       uint64 `json:"initialized_at"`
}

// Remaining returns the open slots in both buckets.
func (q Quota) Remaining() (experienced, newProvider uint) {
	return q.ExperiencedSlots - q.ExperiencedConsumed, q.NewProviderSlots - q.NewProviderConsumed
}

// Suggestion is one accepted entry of a slate.
type Suggestion struct {
	ServiceID          uint64   `json:"service_id"`
	Provider           string   `json:"provider"`
	Bucket             Bucket   `json:"bucket"`
	EstimatedTimeline  uint64   `json:"estimated_timeline"`
	SuccessProbability uint8    `json:"success_probability"`
	RiskFactors        []string `json:"risk_factors"`
	AdjustmentNotes    string   `json:"adjustment_notes,omitempty"`
	InitialSkillScore  uint8    `json:"initial_skill_score"`
	SubmittedAt        uint64   `json:"submitted_at"`
}

// Proposal is the operator-supplied part of a suggestion.
type Proposal struct {
	EstimatedTimeline  uint64
	SuccessProbability uint8
	RiskFactors        []string
	AdjustmentNotes    string
	InitialSkillScore  uint8
}

type Rules struct {
	QuotaPercentage           uint
	MinNewProviderSuggestions uint
	MaxSuggestions            uint
	ExperiencedThreshold      uint8
	NewProviderThreshold      uint8
	MaxTimeline               uint64
	MaxNotesLength            int
}

// Manager is not safe for concurrent use.
type Manager struct {
	rules       Rules
	quotas      map[uint64]*Quota
	suggestions map[uint64][]Suggestion
}

func NewManager(rules Rules) *Manager {
	return &Manager{
		rules:       rules,
		quotas:      make(map[uint64]*Quota),
		suggestions: make(map[uint64][]Suggestion),
	}
}

// Slots splits a slate: the new-provider bucket gets ceil(slate*pct/100) slots,
// never fewer than the configured minimum and never more than the slate.
func Slots(slate, pct, minNew uint) (newProvider, experienced uint) {
	newProvider = (slate*pct + 99) / 100
	if newProvider < minNew {
		newProvider = minNew
	}
	if newProvider > slate {
		newProvider = slate
	}
	return newProvider, slate - newProvider
}

func (m *Manager) Initialize(serviceID uint64, slateSize uint, tick uint64) (Quota, error) {
	const op = "quota.initialize"
	if slateSize == 0 || slateSize > m.rules.MaxSuggestions {
		return Quota{}, apperr.New(op, apperr.InvalidInput, "slate size must be 1-%d", m.rules.MaxSuggestions)
	}
	if _, ok := m.quotas[serviceID]; ok {
		return Quota{}, apperr.New(op, apperr.Duplicate, "quota for service %d already initialized", serviceID)
	}
	newSlots, expSlots := Slots(slateSize, m.rules.QuotaPercentage, m.rules.MinNewProviderSuggestions)
	q := &Quota{
		ServiceID:        serviceID,
		SlateSize:        slateSize,
		NewProviderSlots: newSlots,
		ExperiencedSlots: expSlots,
		InitializedAt:    tick,
	}
	m.quotas[serviceID] = q
	return *q, nil
}

func (m *Manager) SubmitExperienced(serviceID uint64, provider string, p Proposal, tick uint64) (Suggestion, error) {
	const op = "quota.submit_experienced"
	q, err := m.open(op, serviceID, provider, p)
	if err != nil {
		return Suggestion{}, err
	}
	if q.ExperiencedConsumed >= q.ExperiencedSlots {
		return Suggestion{}, apperr.New(op, apperr.ExperiencedProviderQuotaFull, "%d experienced slots used", q.ExperiencedSlots)
	}
	if p.SuccessProbability < m.rules.ExperiencedThreshold {
		return Suggestion{}, apperr.New(op, apperr.SuccessThresholdNotMet, "probability %d below %d", p.SuccessProbability, m.rules.ExperiencedThreshold)
	}
	q.ExperiencedConsumed++
	return m.store(serviceID, provider, Experienced, p, tick), nil
}

// SubmitNewProvider accepts a suggestion for a provider still in its trial
// period. completed is the provider's count of completed services.
func (m *Manager) SubmitNewProvider(serviceID uint64, provider string, completed, trialProjects uint, p Proposal, tick uint64) (Suggestion, error) {
	const op = "quota.submit_new_provider"
	q, err := m.open(op, serviceID, provider, p)
	if err != nil {
		return Suggestion{}, err
	}
	if q.NewProviderConsumed >= q.NewProviderSlots {
		return Suggestion{}, apperr.New(op, apperr.NewProviderQuotaFull, "%d new-provider slots used", q.NewProviderSlots)
	}
	if completed >= trialProjects {
		return Suggestion{}, apperr.New(op, apperr.NotNewProvider, "provider completed %d services", completed)
	}
	if p.SuccessProbability < m.rules.NewProviderThreshold {
		return Suggestion{}, apperr.New(op, apperr.SuccessThresholdNotMet, "probability %d below %d", p.SuccessProbability, m.rules.NewProviderThreshold)
	}
	q.NewProviderConsumed++
	return m.store(serviceID, provider, NewProvider, p, tick), nil
}

// Complete freezes the slate.
func (m *Manager) Complete(serviceID uint64) (Quota, error) {
	const op = "quota.complete"
	q, ok := m.quotas[serviceID]
	if !ok {
		return Quota{}, apperr.New(op, apperr.NotFound, "no quota for service %d", serviceID)
	}
	if q.Completed {
		return Quota{}, apperr.New(op, apperr.InvalidState, "quota for service %d already completed", serviceID)
	}
	q.Completed = true
	return *q, nil
}

func (m *Manager) Get(serviceID uint64) (Quota, bool) {
	q, ok := m.quotas[serviceID]
	if !ok {
		return Quota{}, false
	}
	return *q, true
}

// Suggestion returns the accepted suggestion for provider, if any.
func (m *Manager) Suggestion(serviceID uint64, provider string) (Suggestion, bool) {
	for _, s := range m.suggestions[serviceID] {
		if s.Provider == provider {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Suggestions returns the slate in submission order.
func (m *Manager) Suggestions(serviceID uint64) []Suggestion {
	return append([]Suggestion(nil), m.suggestions[serviceID]...)
}

func (m *Manager) open(op string, serviceID uint64, provider string, p Proposal) (*Quota, error) {
	q, ok := m.quotas[serviceID]
	if !ok {
		return nil, apperr.New(op, apperr.NotFound, "no quota for service %d", serviceID)
	}
	if q.Completed {
		return nil, apperr.New(op, apperr.InvalidState, "slate for service %d is complete", serviceID)
	}
	if !validation.IsValidPrincipal(provider) {
		return nil, apperr.New(op, apperr.InvalidInput, "malformed provider")
	}
	if p.SuccessProbability > 100 {
		return nil, apperr.New(op, apperr.InvalidInput, "success probability above 100")
	}
	if !validation.IsValidDuration(p.EstimatedTimeline, m.rules.MaxTimeline) {
		return nil, apperr.New(op, apperr.InvalidDuration, "timeline must be 1-%d ticks", m.rules.MaxTimeline)
	}
	if !validation.IsValidString(p.AdjustmentNotes, 0, m.rules.MaxNotesLength) {
		return nil, apperr.New(op, apperr.InvalidInput, "adjustment notes longer than %d characters", m.rules.MaxNotesLength)
	}
	if _, dup := m.Suggestion(serviceID, provider); dup {
		return nil, apperr.New(op, apperr.Duplicate, "provider already suggested for service %d", serviceID)
	}
	return q, nil
}

func (m *Manager) store(serviceID uint64, provider string, b Bucket, p Proposal, tick uint64) Suggestion {
	s := Suggestion{
		ServiceID:          serviceID,
		Provider:           provider,
		Bucket:             b,
		EstimatedTimeline:  p.EstimatedTimeline,
		SuccessProbability: p.SuccessProbability,
		RiskFactors:        append([]string(nil), p.RiskFactors...),
		AdjustmentNotes:    p.AdjustmentNotes,
		InitialSkillScore:  p.InitialSkillScore,
		SubmittedAt:        tick,
	}
	m.suggestions[serviceID] = append(m.suggestions[serviceID], s)
	return s
}
