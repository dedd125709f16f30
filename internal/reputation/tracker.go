// Package reputation stores client ratings and per-provider aggregates.
package reputation

import (
	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/validation"
)

// Rating is immutable once written. Score is in tenths of a star.
type Rating struct {
	ServiceID uint64 `json:"service_id"`
	Provider  string `json:"provider"`
	Rater     string `json:"rater"`
	Score     uint8  `json:"score"`
	RatedAt   uint64 `json:"rated_at"`
}

// Provider aggregates a provider's track record.
type Provider struct {
	Account           string `json:"account"`
	CompletedServices uint   `json:"completed_services"`
	DisputedServices  uint   `json:"disputed_services"`
	RatingCount       uint   `json:"rating_count"`
	RatingTotal       uint64 `json:"rating_total"`
	LastActivity      uint64 `json:"last_activity"`
}

// Average returns the mean score in tenths, or 0 without ratings.
func (p Provider) Average() uint64 {
	if p.RatingCount == 0 {
		return 0
	}
	return p.RatingTotal / uint64(p.RatingCount)
}

// Tracker is not safe for concurrent use.
type Tracker struct {
	minScore, maxScore uint8
	ratings            map[uint64]Rating
	providers          map[string]*Provider
}

func NewTracker(minScore, maxScore uint8) *Tracker {
	return &Tracker{
		minScore:  minScore,
		maxScore:  maxScore,
		ratings:   make(map[uint64]Rating),
		providers: make(map[string]*Provider),
	}
}

// Check validates a rating without storing it.
func (t *Tracker) Check(serviceID uint64, score uint8) error {
	const op = "reputation.rate"
	if !validation.IsValidRating(score, t.minScore, t.maxScore) {
		return apperr.New(op, apperr.InvalidRating, "score %d outside %d-%d", score, t.minScore, t.maxScore)
	}
	if _, ok := t.ratings[serviceID]; ok {
		return apperr.New(op, apperr.Duplicate, "service %d already rated", serviceID)
	}
	return nil
}

// Record stores the single rating of a service and folds it into the
// provider aggregate.
func (t *Tracker) Record(serviceID uint64, provider, rater string, score uint8, tick uint64) (Rating, error) {
	if err := t.Check(serviceID, score); err != nil {
		return Rating{}, err
	}
	r := Rating{ServiceID: serviceID, Provider: provider, Rater: rater, Score: score, RatedAt: tick}
	t.ratings[serviceID] = r
	p := t.provider(provider)
	p.RatingCount++
	p.RatingTotal += uint64(score)
	p.LastActivity = tick
	return r, nil
}

func (t *Tracker) RecordCompletion(provider string, tick uint64) {
	p := t.provider(provider)
	p.CompletedServices++
	p.LastActivity = tick
}

func (t *Tracker) RecordDispute(provider string, tick uint64) {
	p := t.provider(provider)
	p.DisputedServices++
	p.LastActivity = tick
}

func (t *Tracker) Rating(serviceID uint64) (Rating, bool) {
	r, ok := t.ratings[serviceID]
	return r, ok
}

// Provider returns the aggregate; unknown providers get a zero record.
func (t *Tracker) Provider(account string) Provider {
	if p, ok := t.providers[account]; ok {
		return *p
	}
	return Provider{Account: account}
}

// IsNewProvider reports whether the provider is still within its trial projects.
func (t *Tracker) IsNewProvider(account string, trialProjects uint) bool {
	return t.Provider(account).CompletedServices < trialProjects
}

func (t *Tracker) provider(account string) *Provider {
	p, ok := t.providers[account]
	if !ok {
		p = &Provider{Account: account}
		t.providers[account] = p
	}
	return p
}
