// Package oracle exposes the price feed the settlement engine consumes. Fee
// multipliers live here; the engine only snapshots the rate it is given.
package oracle

import (
	"context"
	"math"
	"sync"

	"github.com/sudo-init-do/skillflow/internal/apperr"
)

// MicroUnits is the number of micro-units in one STX or one USD.
const MicroUnits uint64 = 1_000_000

// Rate is a USD price for one STX in micro-USD.
type Rate struct {
	Price      uint64 `json:"price"`
	Confidence uint8  `json:"confidence"`
	Stale      bool   `json:"stale"`
}

// FeeRequest describes the service a fee rate is requested for.
type FeeRequest struct {
	Amount uint64
	Rush   bool
}

type PriceOracle interface {
	CurrentRate(ctx context.Context) (Rate, error)
	// EstimateCost converts micro-USD into micro-STX.
	EstimateCost(ctx context.Context, usd uint64) (uint64, error)
	// FeeRate returns the platform fee in basis points.
	FeeRate(ctx context.Context, req FeeRequest) (uint64, error)
}

// Static serves a configured price. It is safe for concurrent use.
type Static struct {
	mu          sync.RWMutex
	rate        Rate
	baseFee     uint64
	rushPremium uint64
}

func NewStatic(price uint64, confidence uint8, baseFee, rushPremium uint64) *Static {
	return &Static{
		rate:        Rate{Price: price, Confidence: confidence},
		baseFee:     baseFee,
		rushPremium: rushPremium,
	}
}

// SetRate replaces the published rate.
func (s *Static) SetRate(r Rate) {
	s.mu.Lock()
	s.rate = r
	s.mu.Unlock()
}

func (s *Static) CurrentRate(ctx context.Context) (Rate, error) {
	if err := ctx.Err(); err != nil {
		return Rate{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rate.Price == 0 {
		return Rate{}, apperr.New("oracle.rate", apperr.InvalidState, "no price published")
	}
	return s.rate, nil
}

func (s *Static) EstimateCost(ctx context.Context, usd uint64) (uint64, error) {
	r, err := s.CurrentRate(ctx)
	if err != nil {
		return 0, err
	}
	if usd > math.MaxUint64/MicroUnits {
		return 0, apperr.New("oracle.estimate", apperr.InvalidAmount, "usd amount too large")
	}
	return usd * MicroUnits / r.Price, nil
}

func (s *Static) FeeRate(ctx context.Context, req FeeRequest) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if req.Rush {
		return s.baseFee + s.rushPremium, nil
	}
	return s.baseFee, nil
}
