package risk

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DailyTradeCounter abstracts the trade-counting dependency so Guardian
// can be tested without a ledger.
type DailyTradeCounter interface {
	CountToday(ctx context.Context) (int, error)
}

// Limits holds the risk thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxDailyTrades    int
	MaxTradeAmount    decimal.Decimal
	StopLossPercent   decimal.Decimal
	TakeProfitPercent decimal.Decimal
}

type Guardian struct {
	limits  Limits
	counter DailyTradeCounter
}

func NewGuardian(limits Limits, counter DailyTradeCounter) *Guardian {
	return &Guardian{limits: limits, counter: counter}
}

// PreTradeCheck validates per-trade constraints before a trade is opened.
// Returns nil if the trade is allowed, a descriptive error if blocked.
func (g *Guardian) PreTradeCheck(ctx context.Context, amount decimal.Decimal) error {
	if g.limits.MaxTradeAmount.IsPositive() && amount.GreaterThan(g.limits.MaxTradeAmount) {
		return fmt.Errorf("trade blocked: size %s SOL exceeds max %s SOL",
			amount.String(), g.limits.MaxTradeAmount.String())
	}

	if g.limits.MaxDailyTrades > 0 && g.counter != nil {
		count, err := g.counter.CountToday(ctx)
		if err != nil {
			return fmt.Errorf("trade blocked: unable to verify daily trade count: %w", err)
		}
		if count >= g.limits.MaxDailyTrades {
			return fmt.Errorf("trade blocked: daily limit of %d trades reached (%d opened today)",
				g.limits.MaxDailyTrades, count)
		}
	}

	return nil
}

// PortfolioCheck evaluates the ledger-wide circuit breakers.
// pnlPercent is the realized P&L percentage (e.g. -8.5 means down 8.5%).
// Returns nil if trading should continue, a descriptive error if a breaker tripped.
func (g *Guardian) PortfolioCheck(pnlPercent decimal.Decimal) error {
	if sl := g.limits.StopLossPercent; sl.IsPositive() && pnlPercent.LessThanOrEqual(sl.Neg()) {
		return fmt.Errorf("STOP-LOSS triggered: ledger down %s%% (threshold: -%s%%)",
			pnlPercent.StringFixed(2), sl.StringFixed(2))
	}

	if tp := g.limits.TakeProfitPercent; tp.IsPositive() && pnlPercent.GreaterThanOrEqual(tp) {
		return fmt.Errorf("TAKE-PROFIT triggered: ledger up %s%% (threshold: +%s%%)",
			pnlPercent.StringFixed(2), tp.StringFixed(2))
	}

	return nil
}
