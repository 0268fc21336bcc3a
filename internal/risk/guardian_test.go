package risk

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockCounter struct {
	count int
	err   error
}

func (m *mockCounter) CountToday(_ context.Context) (int, error) {
	return m.count, m.err
}

// --- PreTradeCheck ---

func TestPreTradeCheck_TradeSize_Allowed(t *testing.T) {
	g := NewGuardian(Limits{MaxTradeAmount: dec("0.5")}, &mockCounter{})
	if err := g.PreTradeCheck(context.Background(), dec("0.4999")); err != nil {
		t.Fatalf("expected trade to be allowed, got: %v", err)
	}
}

func TestPreTradeCheck_TradeSize_Blocked(t *testing.T) {
	g := NewGuardian(Limits{MaxTradeAmount: dec("0.5")}, &mockCounter{})
	err := g.PreTradeCheck(context.Background(), dec("0.5001"))
	if err == nil {
		t.Fatal("expected trade to be blocked")
	}
	t.Logf("Correctly blocked: %v", err)
}

func TestPreTradeCheck_TradeSize_DisabledWhenZero(t *testing.T) {
	g := NewGuardian(Limits{MaxTradeAmount: dec("0")}, &mockCounter{})
	if err := g.PreTradeCheck(context.Background(), dec("1000")); err != nil {
		t.Fatalf("zero limit should disable check, got: %v", err)
	}
}

func TestPreTradeCheck_DailyTrades_Allowed(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 50}, &mockCounter{count: 49})
	if err := g.PreTradeCheck(context.Background(), dec("0.0215")); err != nil {
		t.Fatalf("expected trade to be allowed (49/50), got: %v", err)
	}
}

func TestPreTradeCheck_DailyTrades_Blocked(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 50}, &mockCounter{count: 50})
	err := g.PreTradeCheck(context.Background(), dec("0.0215"))
	if err == nil {
		t.Fatal("expected trade to be blocked (50/50)")
	}
	t.Logf("Correctly blocked: %v", err)
}

func TestPreTradeCheck_DailyTrades_CounterError(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 50}, &mockCounter{err: fmt.Errorf("ledger unavailable")})
	err := g.PreTradeCheck(context.Background(), dec("0.0215"))
	if err == nil {
		t.Fatal("expected error when counter fails")
	}
	t.Logf("Correctly blocked on counter error: %v", err)
}

func TestPreTradeCheck_DailyTrades_DisabledWhenZero(t *testing.T) {
	g := NewGuardian(Limits{MaxDailyTrades: 0}, &mockCounter{count: 9999})
	if err := g.PreTradeCheck(context.Background(), dec("0.0215")); err != nil {
		t.Fatalf("zero limit should disable check, got: %v", err)
	}
}

func TestPreTradeCheck_BothChecks_TradeSizeFailsFirst(t *testing.T) {
	g := NewGuardian(Limits{
		MaxTradeAmount: dec("0.1"),
		MaxDailyTrades: 50,
	}, &mockCounter{count: 49})

	err := g.PreTradeCheck(context.Background(), dec("0.2"))
	if err == nil {
		t.Fatal("expected trade to be blocked by trade size")
	}
	t.Logf("Correctly blocked: %v", err)
}

func TestPreTradeCheck_AllDisabled(t *testing.T) {
	g := NewGuardian(Limits{}, &mockCounter{count: 9999})
	if err := g.PreTradeCheck(context.Background(), dec("1000")); err != nil {
		t.Fatalf("all-zero limits should allow everything, got: %v", err)
	}
}

// --- PortfolioCheck ---

func TestPortfolioCheck_StopLoss_Triggered(t *testing.T) {
	g := NewGuardian(Limits{StopLossPercent: dec("10")}, nil)
	err := g.PortfolioCheck(dec("-10.0"))
	if err == nil {
		t.Fatal("expected stop-loss to trigger at -10%")
	}
	t.Logf("Correctly triggered: %v", err)
}

func TestPortfolioCheck_StopLoss_NotTriggered(t *testing.T) {
	g := NewGuardian(Limits{StopLossPercent: dec("10")}, nil)
	if err := g.PortfolioCheck(dec("-9.99")); err != nil {
		t.Fatalf("expected no trigger at -9.99%%, got: %v", err)
	}
}

func TestPortfolioCheck_TakeProfit_Triggered(t *testing.T) {
	g := NewGuardian(Limits{TakeProfitPercent: dec("20")}, nil)
	err := g.PortfolioCheck(dec("20.0"))
	if err == nil {
		t.Fatal("expected take-profit to trigger at +20%")
	}
	t.Logf("Correctly triggered: %v", err)
}

func TestPortfolioCheck_TakeProfit_NotTriggered(t *testing.T) {
	g := NewGuardian(Limits{TakeProfitPercent: dec("20")}, nil)
	if err := g.PortfolioCheck(dec("19.99")); err != nil {
		t.Fatalf("expected no trigger at +19.99%%, got: %v", err)
	}
}

func TestPortfolioCheck_BothDisabled(t *testing.T) {
	g := NewGuardian(Limits{}, nil)
	if err := g.PortfolioCheck(dec("-99")); err != nil {
		t.Fatalf("zero limits should disable all checks, got: %v", err)
	}
	if err := g.PortfolioCheck(dec("99")); err != nil {
		t.Fatalf("zero limits should disable all checks, got: %v", err)
	}
}

func TestPortfolioCheck_StopLoss_ExactBoundary(t *testing.T) {
	g := NewGuardian(Limits{StopLossPercent: dec("5")}, nil)
	err := g.PortfolioCheck(dec("-5.0"))
	if err == nil {
		t.Fatal("expected stop-loss to trigger at exactly -5%")
	}
}

func TestPortfolioCheck_TakeProfit_ExactBoundary(t *testing.T) {
	g := NewGuardian(Limits{TakeProfitPercent: dec("15")}, nil)
	err := g.PortfolioCheck(dec("15.0"))
	if err == nil {
		t.Fatal("expected take-profit to trigger at exactly +15%")
	}
}

func TestPreTradeCheck_LedgerCounter(t *testing.T) {
	l := ledger.New(0, 0)
	g := NewGuardian(Limits{MaxDailyTrades: 2}, l)

	l.RecordTrade("a", dec("0.01"), nil)
	if err := g.PreTradeCheck(context.Background(), dec("0.01")); err != nil {
		t.Fatalf("expected trade to be allowed (1/2), got: %v", err)
	}

	l.RecordTrade("b", dec("0.01"), nil)
	if err := g.PreTradeCheck(context.Background(), dec("0.01")); err == nil {
		t.Fatal("expected trade to be blocked (2/2)")
	}
}

func TestPreTradeCheck_DailyLimitAboveRetention(t *testing.T) {
	l := ledger.New(100, 50)
	g := NewGuardian(Limits{MaxDailyTrades: 120}, l)

	opened := 0
	for i := 0; i < 200; i++ {
		if err := g.PreTradeCheck(context.Background(), dec("0.01")); err != nil {
			break
		}
		l.RecordTrade("tok", dec("0.01"), nil)
		opened++
	}

	if opened != 120 {
		t.Fatalf("expected the daily limit to stop trading at 120, opened %d", opened)
	}
}
