// Package ledger holds the in-memory trade and transaction history and
// derives aggregate profit and loss from it. Nothing is persisted.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/models"
)

const (
	DefaultTradeCapacity       = 100
	DefaultTransactionCapacity = 50
)

var hundred = decimal.NewFromInt(100)

// Ledger is the single process-wide store of trade and transaction records.
// Both histories are bounded and evict their oldest entries first.
// Readers always receive copies.
type Ledger struct {
	mu           sync.RWMutex
	trades       []models.TradeRecord
	transactions []models.TransactionRecord
	tradeCap     int
	txCap        int
	now          func() time.Time

	// Trades opened on day (UTC midnight), kept apart from the bounded
	// history so eviction never lowers it.
	day       time.Time
	dayTrades int
}

func New(tradeCap, txCap int) *Ledger {
	if tradeCap <= 0 {
		tradeCap = DefaultTradeCapacity
	}
	if txCap <= 0 {
		txCap = DefaultTransactionCapacity
	}
	return &Ledger{
		tradeCap: tradeCap,
		txCap:    txCap,
		now:      time.Now,
	}
}

// RecordTrade appends an open trade. entryPrice may be nil.
func (l *Ledger) RecordTrade(token string, invested decimal.Decimal, entryPrice *decimal.Decimal) models.TradeRecord {
	rec := models.TradeRecord{
		ID:             uuid.New(),
		Token:          token,
		InvestedAmount: invested,
	}
	if entryPrice != nil {
		p := *entryPrice
		rec.EntryPrice = &p
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec.CreatedAt = l.now()
	if today := utcMidnight(rec.CreatedAt); !today.Equal(l.day) {
		l.day = today
		l.dayTrades = 0
	}
	l.dayTrades++
	l.trades = append(l.trades, rec)
	if over := len(l.trades) - l.tradeCap; over > 0 {
		l.trades = slices.Delete(l.trades, 0, over)
	}
	return rec
}

// SettleTrade sets the returned amount on the newest unsettled record with
// the given id. It reports false when the record has been evicted or was
// already settled; that case is logged and otherwise ignored.
func (l *Ledger) SettleTrade(id uuid.UUID, returned decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.trades) - 1; i >= 0; i-- {
		t := &l.trades[i]
		if t.ID != id || t.Settled() {
			continue
		}
		r := returned
		t.ReturnedAmount = &r
		return true
	}

	fmt.Printf("[LEDGER] Settlement dropped: trade %s no longer open (evicted or already settled)\n", id)
	return false
}

func (l *Ledger) RecordTransaction(kind models.TransactionKind, asset string, amount decimal.Decimal, counterparty, ref string) models.TransactionRecord {
	rec := models.TransactionRecord{
		ID:           uuid.New(),
		Kind:         kind,
		Asset:        asset,
		Amount:       amount,
		Counterparty: counterparty,
		ExternalRef:  ref,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec.CreatedAt = l.now()
	l.transactions = append(l.transactions, rec)
	if over := len(l.transactions) - l.txCap; over > 0 {
		l.transactions = slices.Delete(l.transactions, 0, over)
	}
	return rec
}

// PnL aggregates over the retained trades. Open trades count as invested
// with nothing returned. An empty ledger yields all zeros.
func (l *Ledger) PnL() models.PnL {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pnl()
}

// Summary returns the P&L and the retained trade count from the same
// ledger state.
func (l *Ledger) Summary() (models.PnL, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pnl(), len(l.trades)
}

func (l *Ledger) pnl() models.PnL {
	invested := decimal.Zero
	returned := decimal.Zero
	for _, t := range l.trades {
		invested = invested.Add(t.InvestedAmount)
		if t.ReturnedAmount != nil {
			returned = returned.Add(*t.ReturnedAmount)
		}
	}

	amount := returned.Sub(invested)
	pct := decimal.Zero
	if invested.IsPositive() {
		pct = amount.Div(invested).Mul(hundred)
	}
	return models.PnL{
		Amount:     amount,
		Percentage: pct,
		Invested:   invested,
		Returned:   returned,
	}
}

// RecentTrades returns up to limit of the newest trades, oldest first.
// A limit of zero or less returns everything retained.
func (l *Ledger) RecentTrades(limit int) []models.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return tail(l.trades, limit)
}

func (l *Ledger) RecentTransactions(limit int) []models.TransactionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return tail(l.transactions, limit)
}

func (l *Ledger) TradeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// CountToday counts trades opened since UTC midnight, including ones
// already evicted from the history.
func (l *Ledger) CountToday(_ context.Context) (int, error) {
	today := utcMidnight(l.now())

	l.mu.RLock()
	defer l.mu.RUnlock()
	if !today.Equal(l.day) {
		return 0, nil
	}
	return l.dayTrades, nil
}

// CountSince counts retained trades opened at or after t.

func (l *Ledger) CountSince(t time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, tr := range l.trades {
		if !tr.CreatedAt.Before(t) {
			n++
		}
	}
	return n
}

func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func tail[T any](src []T, limit int) []T {
	start := 0
	if limit > 0 && limit < len(src) {
		start = len(src) - limit
	}
	out := make([]T, len(src)-start)
	copy(out, src[start:])
	return out
}
