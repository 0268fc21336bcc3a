package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the resolution of a simulated trade.
type Outcome struct {
	Success  bool
	Returned decimal.Decimal
}

// OutcomeGenerator decides how much a trade of the given size returns.
type OutcomeGenerator interface {
	Resolve(ctx context.Context, amount decimal.Decimal) Outcome
}

// OutcomeConfig bounds are return multipliers applied to the invested amount.
type OutcomeConfig struct {
	SuccessRate float64
	WinMin      decimal.Decimal
	WinMax      decimal.Decimal
	LossMin     decimal.Decimal
	LossMax     decimal.Decimal
}

func DefaultOutcomeConfig() OutcomeConfig {
	return OutcomeConfig{
		SuccessRate: 0.7,
		WinMin:      decimal.RequireFromString("1.5"),
		WinMax:      decimal.RequireFromString("3.0"),
		LossMin:     decimal.RequireFromString("0.5"),
		LossMax:     decimal.RequireFromString("0.95"),
	}
}

// SimulatedOutcome is a weighted coin flip followed by a uniform draw of
// the return multiplier.
type SimulatedOutcome struct {
	cfg OutcomeConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedOutcome seeds from the clock when seed is 0.
func NewSimulatedOutcome(cfg OutcomeConfig, seed int64) *SimulatedOutcome {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedOutcome{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedOutcome) Resolve(_ context.Context, amount decimal.Decimal) Outcome {
	s.mu.Lock()
	success := s.rng.Float64() < s.cfg.SuccessRate
	f := s.rng.Float64()
	s.mu.Unlock()

	lo, hi := s.cfg.LossMin, s.cfg.LossMax
	if success {
		lo, hi = s.cfg.WinMin, s.cfg.WinMax
	}
	mult := lo.Add(hi.Sub(lo).Mul(decimal.NewFromFloat(f)))

	return Outcome{
		Success:  success,
		Returned: amount.Mul(mult).Round(lamportPlaces),
	}
}

// SOL has 9 decimal places (lamports).
const lamportPlaces = 9
