package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPnL_EmptyLedger(t *testing.T) {
	l := New(0, 0)
	p := l.PnL()

	assert.True(t, p.Amount.IsZero())
	assert.True(t, p.Percentage.IsZero())
	assert.True(t, p.Invested.IsZero())
	assert.True(t, p.Returned.IsZero())
}

func TestPnL_SettledAndOpenTrades(t *testing.T) {
	l := New(0, 0)

	a := l.RecordTrade("tokenA", d("1"), nil)
	b := l.RecordTrade("tokenB", d("2"), nil)
	l.RecordTrade("tokenC", d("1"), nil) // left open

	require.True(t, l.SettleTrade(a.ID, d("3")))
	require.True(t, l.SettleTrade(b.ID, d("1")))

	p := l.PnL()
	assert.True(t, p.Invested.Equal(d("4")), "invested %s", p.Invested)
	assert.True(t, p.Returned.Equal(d("4")), "returned %s", p.Returned)
	assert.True(t, p.Amount.IsZero(), "amount %s", p.Amount)
	assert.True(t, p.Percentage.IsZero(), "percentage %s", p.Percentage)
}

func TestPnL_Percentage(t *testing.T) {
	cases := []struct {
		invested, returned []string
		amount, pct        string
	}{
		{[]string{"2"}, []string{"3"}, "1", "50"},
		{[]string{"0.0215"}, []string{"0.043"}, "0.0215", "100"},
		{[]string{"1", "1", "2"}, []string{"0.5", "0.5", "1"}, "-2", "-50"},
		{[]string{"0.1", "0.3"}, []string{"0.25", "0.25"}, "0.1", "25"},
	}

	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			l := New(0, 0)
			for j := range tc.invested {
				tr := l.RecordTrade("tok", d(tc.invested[j]), nil)
				require.True(t, l.SettleTrade(tr.ID, d(tc.returned[j])))
			}
			p := l.PnL()
			assert.True(t, p.Amount.Equal(d(tc.amount)), "amount: got %s want %s", p.Amount, tc.amount)
			assert.True(t, p.Percentage.Equal(d(tc.pct)), "pct: got %s want %s", p.Percentage, tc.pct)
		})
	}
}

func TestPnL_ZeroInvestedGivesZeroPercentage(t *testing.T) {
	l := New(0, 0)
	tr := l.RecordTrade("tok", decimal.Zero, nil)
	require.True(t, l.SettleTrade(tr.ID, d("1")))

	p := l.PnL()
	assert.True(t, p.Amount.Equal(d("1")))
	assert.True(t, p.Percentage.IsZero())
}

func TestRetention_Trades(t *testing.T) {
	l := New(100, 50)
	for i := 0; i < 150; i++ {
		l.RecordTrade(fmt.Sprintf("token-%03d", i), d("1"), nil)
	}

	got := l.RecentTrades(1000)
	require.Len(t, got, 100)
	assert.Equal(t, 100, l.TradeCount())
	assert.Equal(t, "token-050", got[0].Token)
	assert.Equal(t, "token-149", got[99].Token)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.Before(got[i-1].CreatedAt), "not chronological at %d", i)
	}
}

func TestRetention_Transactions(t *testing.T) {
	l := New(100, 50)
	for i := 0; i < 60; i++ {
		l.RecordTransaction("send", "SOL", d("0.1"), fmt.Sprintf("dest-%02d", i), "")
	}

	got := l.RecentTransactions(0)
	require.Len(t, got, 50)
	assert.Equal(t, "dest-10", got[0].Counterparty)
	assert.Equal(t, "dest-59", got[49].Counterparty)
}

func TestRecentTrades_Window(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 10; i++ {
		l.RecordTrade(fmt.Sprintf("t%d", i), d("1"), nil)
	}

	got := l.RecentTrades(3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"t7", "t8", "t9"}, []string{got[0].Token, got[1].Token, got[2].Token})

	assert.Len(t, l.RecentTrades(50), 10)
}

func TestRecentTrades_ReturnsCopies(t *testing.T) {
	l := New(0, 0)
	l.RecordTrade("original", d("1"), nil)

	got := l.RecentTrades(0)
	got[0].Token = "mutated"

	assert.Equal(t, "original", l.RecentTrades(0)[0].Token)
}

func TestSettleTrade_Evicted(t *testing.T) {
	l := New(2, 2)
	first := l.RecordTrade("a", d("1"), nil)
	l.RecordTrade("b", d("1"), nil)
	l.RecordTrade("c", d("1"), nil)

	assert.False(t, l.SettleTrade(first.ID, d("2")))
	assert.True(t, l.PnL().Returned.IsZero())
}

func TestSettleTrade_OnlyOnce(t *testing.T) {
	l := New(0, 0)
	tr := l.RecordTrade("a", d("1"), nil)

	require.True(t, l.SettleTrade(tr.ID, d("2")))
	assert.False(t, l.SettleTrade(tr.ID, d("5")))

	got := l.RecentTrades(0)[0]
	require.NotNil(t, got.ReturnedAmount)
	assert.True(t, got.ReturnedAmount.Equal(d("2")))
}

func TestRecordTrade_CopiesEntryPrice(t *testing.T) {
	l := New(0, 0)
	price := d("0.000123")
	tr := l.RecordTrade("a", d("1"), &price)
	price = d("99")

	require.NotNil(t, tr.EntryPrice)
	assert.True(t, tr.EntryPrice.Equal(d("0.000123")))
	assert.True(t, l.RecentTrades(0)[0].EntryPrice.Equal(d("0.000123")))
}

func TestCountToday(t *testing.T) {
	l := New(0, 0)
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	l.now = func() time.Time { return fixed.Add(-13 * time.Hour) }
	l.RecordTrade("yesterday", d("1"), nil)

	l.now = func() time.Time { return fixed }
	l.RecordTrade("today-1", d("1"), nil)
	l.RecordTrade("today-2", d("1"), nil)

	n, err := l.CountToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestConcurrentAccess(t *testing.T) {
	l := New(100, 50)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr := l.RecordTrade("tok", d("1"), nil)
				l.SettleTrade(tr.ID, d("1"))
				_ = l.PnL()
				_ = l.RecentTrades(10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, l.TradeCount())
	p := l.PnL()
	assert.True(t, p.Amount.IsZero(), "amount %s", p.Amount)
}

func TestSummary_SingleState(t *testing.T) {
	l := New(10, 10)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				l.RecordTrade("tok", d("1"), nil)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		p, n := l.Summary()
		require.True(t, p.Invested.Equal(decimal.NewFromInt(int64(n))),
			"invested %s with %d trades", p.Invested, n)
	}
	close(stop)
	wg.Wait()
}

func TestCountToday_SurvivesEviction(t *testing.T) {
	l := New(5, 5)
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	for i := 0; i < 8; i++ {
		l.RecordTrade("tok", d("1"), nil)
	}

	assert.Equal(t, 5, l.TradeCount())
	n, err := l.CountToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestCountToday_ResetsAtMidnight(t *testing.T) {
	l := New(0, 0)
	fixed := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	l.RecordTrade("late", d("1"), nil)
	l.RecordTrade("later", d("1"), nil)

	l.now = func() time.Time { return fixed.Add(2 * time.Minute) }
	n, err := l.CountToday(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing opened yet on the new day")

	l.RecordTrade("fresh", d("1"), nil)
	n, _ = l.CountToday(context.Background())
	assert.Equal(t, 1, n)
}
