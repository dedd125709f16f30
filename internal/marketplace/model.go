package marketplace

import (
	"github.com/sudo-init-do/skillflow/internal/applications"
	"github.com/sudo-init-do/skillflow/internal/escrow"
	"github.com/sudo-init-do/skillflow/internal/quota"
)

// Status is the lifecycle state of a service.
type Status uint8

const (
	Open Status = iota
	Matched
	InProgress
	Completed
	Disputed
	Cancelled
)

var statusNames = [...]string{"open", "matched", "in_progress", "completed", "disputed", "cancelled"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == Completed || s == Cancelled }

// ServiceRequest is a client's paid request. Records are never deleted.
type ServiceRequest struct {
	ID              uint64 `json:"id"`
	Client          string `json:"client"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	Amount          uint64 `json:"amount"`
	EffectiveAmount uint64 `json:"effective_amount"`
	Rush            bool   `json:"rush"`
	Duration        uint64 `json:"duration"`
	FeeRate         uint64 `json:"fee_rate"`
	Quote           Quote  `json:"quote"`
	CreatedAt       uint64 `json:"created_at"`
	UpdatedAt       uint64 `json:"updated_at"`
	Status          Status `json:"status"`

	Provider   string           `json:"provider,omitempty"`
	Source     *SelectionSource `json:"source,omitempty"`
	MeetingRef string           `json:"meeting_ref,omitempty"`

	ProviderEvidence string `json:"provider_evidence,omitempty"`
	ConfirmedAt      uint64 `json:"confirmed_at,omitempty"`
	Rating           *uint8 `json:"rating,omitempty"`

	Disputed       bool    `json:"disputed"`
	DisputedBy     string  `json:"disputed_by,omitempty"`
	DisputeReason  string  `json:"dispute_reason,omitempty"`
	ClientSharePct *uint64 `json:"client_share_pct,omitempty"`

	Stale bool   `json:"stale"`
	Seq   uint64 `json:"seq"`
}

// Payable is the amount released on confirmation: the effective price, never
// more than what escrow holds.
func (s ServiceRequest) Payable() uint64 {
	if s.EffectiveAmount > s.Amount {
		return s.Amount
	}
	return s.EffectiveAmount
}

// parties lists the client and, once matched, the provider.
func (s *ServiceRequest) parties() []string {
	if s.Provider == "" {
		return []string{s.Client}
	}
	return []string{s.Client, s.Provider}
}

func (s *ServiceRequest) participant(account string) bool {
	return account != "" && (account == s.Client || account == s.Provider)
}

// Quote is the oracle reading taken at creation. It is advisory only.
type Quote struct {
	Price      uint64 `json:"price"`
	Confidence uint8  `json:"confidence"`
	Stale      bool   `json:"stale"`
	USDValue   uint64 `json:"usd_value"`
}

// SourceKind tags how a provider reached selection.
type SourceKind string

const (
	FromApplication SourceKind = "application"
	FromSuggestion  SourceKind = "suggestion"
)

// SelectionSource is either an application or an accepted suggestion; exactly
// one of the pointers is set.
type SelectionSource struct {
	Kind        SourceKind                `json:"kind"`
	Application *applications.Application `json:"application,omitempty"`
	Suggestion  *quota.Suggestion         `json:"suggestion,omitempty"`
}

func applicationSource(a applications.Application) *SelectionSource {
	return &SelectionSource{Kind: FromApplication, Application: &a}
}

func suggestionSource(s quota.Suggestion) *SelectionSource {
	return &SelectionSource{Kind: FromSuggestion, Suggestion: &s}
}

// ProposedPrice returns the application's price override, if any.
func (s SelectionSource) ProposedPrice() (uint64, bool) {
	if s.Kind != FromApplication || s.Application == nil || s.Application.ProposedPrice == nil {
		return 0, false
	}
	return *s.Application.ProposedPrice, true
}

// Timeline is the delivery estimate carried by the source.
func (s SelectionSource) Timeline() uint64 {
	switch s.Kind {
	case FromApplication:
		return s.Application.Timeline
	case FromSuggestion:
		return s.Suggestion.EstimatedTimeline
	}
	return 0
}

// CreateRequest holds the client-supplied fields of a new service.
type CreateRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	Rush        bool   `json:"rush"`
	Duration    uint64 `json:"duration"`
}

// Platform is the global switch state.
type Platform struct {
	Active               bool   `json:"active"`
	EmergencyMode        bool   `json:"emergency_mode"`
	EmergencyActivatedAt uint64 `json:"emergency_activated_at,omitempty"`
	Treasury             string `json:"treasury"`
}

// Stats are platform-wide aggregates.
type Stats struct {
	ServicesCreated   uint64 `json:"services_created"`
	ServicesCompleted uint64 `json:"services_completed"`
	ServicesCancelled uint64 `json:"services_cancelled"`
	ServicesDisputed  uint64 `json:"services_disputed"`
	Applications      uint64 `json:"applications"`
	Suggestions       uint64 `json:"suggestions"`
	Ratings           uint64 `json:"ratings"`

	escrow.Totals
}

// EscrowView pairs an escrow record with the service it belongs to.
type EscrowView struct {
	escrow.Record
	Payable uint64 `json:"payable"`
}

// QuotaView is the slate of a service.
type QuotaView struct {
	quota.Quota
	Suggestions []quota.Suggestion `json:"suggestions"`
}

// CostQuote is the answer to a USD cost estimate.
type CostQuote struct {
	USD         uint64 `json:"usd"`
	Amount      uint64 `json:"amount"`
	FeeRate     uint64 `json:"fee_rate"`
	RushFeeRate uint64 `json:"rush_fee_rate"`
	Stale       bool   `json:"stale"`
}
