package bot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the operator-tunable trading parameters.
type Settings struct {
	TradeAmount      decimal.Decimal `json:"trade_amount"`
	TargetMultiplier decimal.Decimal `json:"target_multiplier"`
}

func (s Settings) Validate() error {
	if !s.TradeAmount.IsPositive() {
		return fmt.Errorf("%w: trade_amount must be > 0, got %s", ErrInvalidSettings, s.TradeAmount)
	}
	if !s.TargetMultiplier.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: target_multiplier must be > 1, got %s", ErrInvalidSettings, s.TargetMultiplier)
	}
	return nil
}

func (s Settings) Equal(o Settings) bool {
	return s.TradeAmount.Equal(o.TradeAmount) && s.TargetMultiplier.Equal(o.TargetMultiplier)
}

// Target is the take-profit price for an entry price.
func (s Settings) Target(price decimal.Decimal) decimal.Decimal {
	return price.Mul(s.TargetMultiplier)
}

// SettingsPatch is a partial update; nil fields keep their current value.
type SettingsPatch struct {
	TradeAmount      *decimal.Decimal `json:"trade_amount,omitempty"`
	TargetMultiplier *decimal.Decimal `json:"target_multiplier,omitempty"`
}

type SettingsStore struct {
	mu  sync.RWMutex
	cur Settings
}

func NewSettingsStore(initial Settings) *SettingsStore {
	return &SettingsStore{cur: initial}
}

func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update applies p and validates the merged result. On error nothing changes.
func (s *SettingsStore) Update(p SettingsPatch) (Settings, error) {
	next, _, err := s.apply(p)
	return next, err
}

// apply is Update that also reports whether any value actually changed.
func (s *SettingsStore) apply(p SettingsPatch) (Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur
	if p.TradeAmount != nil {
		next.TradeAmount = *p.TradeAmount
	}
	if p.TargetMultiplier != nil {
		next.TargetMultiplier = *p.TargetMultiplier
	}
	if err := next.Validate(); err != nil {
		return s.cur, false, err
	}
	changed := !next.Equal(s.cur)
	s.cur = next
	return next, changed, nil
}
