// Package status renders the bot/ledger snapshot shared by the dashboard,
// the chat bot and the periodic push.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/bot"
	"github.com/kjannette/signalforge-backend/internal/ledger"
)

// SpotPricer converts SOL into the display currency.
type SpotPricer interface {
	SOLPrice(ctx context.Context) (decimal.Decimal, error)
}

// RunStateReader is the part of the bot service the reporter reads.
type RunStateReader interface {
	Status() bot.Status
	StartedAt() time.Time
}

type Snapshot struct {
	Status string  `json:"status"`
	Uptime string  `json:"uptime"`
	Trades int     `json:"trades"`
	PnL    PnLView `json:"pnl"`
}

type PnLView struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	USD        decimal.Decimal `json:"usd"`
	Invested   decimal.Decimal `json:"invested"`
	Returned   decimal.Decimal `json:"returned"`
}

type Reporter struct {
	ledger *ledger.Ledger
	state  RunStateReader
	prices SpotPricer
	now    func() time.Time
}

func NewReporter(l *ledger.Ledger, state RunStateReader, prices SpotPricer) *Reporter {
	return &Reporter{ledger: l, state: state, prices: prices, now: time.Now}
}

// Snapshot has no side effects. If the spot price is unavailable the USD
// figure is zero.
func (r *Reporter) Snapshot(ctx context.Context) Snapshot {
	pnl, trades := r.ledger.Summary()

	return Snapshot{
		Status: string(r.state.Status()),
		Uptime: FormatUptime(r.now().Sub(r.state.StartedAt())),
		Trades: trades,
		PnL: PnLView{
			Amount:     pnl.Amount,
			Percentage: pnl.Percentage.Round(2),
			USD:        pnl.Amount.Mul(r.solPrice(ctx)).Round(2),
			Invested:   pnl.Invested,
			Returned:   pnl.Returned,
		},
	}
}

// SOLPrice is the spot price used for display, zero when unavailable.
func (r *Reporter) SOLPrice(ctx context.Context) decimal.Decimal {
	return r.solPrice(ctx)
}

func (r *Reporter) solPrice(ctx context.Context) decimal.Decimal {
	if r.prices == nil {
		return decimal.Zero
	}
	price, err := r.prices.SOLPrice(ctx)
	if err != nil {
		fmt.Printf("[STATUS] SOL price unavailable: %v\n", err)
		return decimal.Zero
	}
	return price
}

// FormatUptime renders d as "<H>h <M>m <S>s".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}

// Line is the one-line summary used in periodic operator reports.
func (s Snapshot) Line() string {
	return fmt.Sprintf("Status: %s | Uptime: %s | Trades: %d | P&L: %s SOL (%s%%) ≈ $%s",
		s.Status, s.Uptime, s.Trades,
		s.PnL.Amount.StringFixed(4), s.PnL.Percentage.StringFixed(2), s.PnL.USD.StringFixed(2))
}
