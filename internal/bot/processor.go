package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/ledger"
	"github.com/kjannette/signalforge-backend/internal/metrics"
	"github.com/kjannette/signalforge-backend/internal/models"
	"github.com/kjannette/signalforge-backend/internal/risk"
	"github.com/kjannette/signalforge-backend/internal/tokenaddr"
)

// Quoter prices a token for a notional trade size, in SOL.
type Quoter interface {
	Quote(ctx context.Context, mint string, amount decimal.Decimal) (decimal.Decimal, error)
}

type Result string

const (
	ResultIgnored   Result = "ignored"
	ResultNoAddress Result = "no_address"
	ResultBlocked   Result = "blocked"
	ResultNoQuote   Result = "no_quote"
	ResultSettled   Result = "settled"
	ResultDropped   Result = "settle_dropped"
)

// SignalResult describes what happened to one inbound message.
type SignalResult struct {
	Result  Result
	Token   string
	Trade   *models.TradeRecord
	Outcome *Outcome
}

// Processor turns signal messages into simulated trades. Messages are
// handled one at a time: trade k is settled before trade k+1 is opened.
type Processor struct {
	mu sync.Mutex

	svc      *Service
	ledger   *ledger.Ledger
	quoter   Quoter
	outcome  OutcomeGenerator
	guardian *risk.Guardian
	notify   Notifier
}

func NewProcessor(svc *Service, l *ledger.Ledger, quoter Quoter, outcome OutcomeGenerator, notify Notifier) *Processor {
	return &Processor{
		svc:     svc,
		ledger:  l,
		quoter:  quoter,
		outcome: outcome,
		notify:  notify,
	}
}

// WithGuardian enables pre-trade limits and the ledger circuit breakers.
func (p *Processor) WithGuardian(g *risk.Guardian) *Processor {
	p.guardian = g
	return p
}

func (p *Processor) Handle(ctx context.Context, text string) SignalResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.handle(ctx, text)
	metrics.SignalsTotal.WithLabelValues(string(res.Result)).Inc()
	return res
}

func (p *Processor) handle(ctx context.Context, text string) SignalResult {
	if !p.svc.Running() {
		return SignalResult{Result: ResultIgnored}
	}

	token, ok := tokenaddr.Extract(text)
	if !ok {
		p.notify.Send("ℹ️ Signal skipped: no token address found")
		return SignalResult{Result: ResultNoAddress}
	}
	fmt.Printf("[BOT] Token detected: %s\n", token)
	p.notify.Send(fmt.Sprintf("📥 Token: %s", token))

	settings := p.svc.Settings()
	amount := settings.TradeAmount

	if p.guardian != nil {
		if err := p.guardian.PreTradeCheck(ctx, amount); err != nil {
			p.notify.Send(fmt.Sprintf("⛔ %v", err))
			return SignalResult{Result: ResultBlocked, Token: token}
		}
	}

	start := time.Now()
	price, err := p.quoter.Quote(ctx, token, amount)
	metrics.QuoteLatency.Observe(time.Since(start).Seconds())
	if err != nil || !price.IsPositive() {
		fmt.Printf("[BOT] Quote unavailable for %s: %v\n", token, err)
		p.notify.Send(fmt.Sprintf("⚠️ No price for %s, signal skipped", tokenaddr.Truncate(token, 8)))
		return SignalResult{Result: ResultNoQuote, Token: token}
	}

	trade := p.ledger.RecordTrade(token, amount, &price)
	p.notify.Send(fmt.Sprintf("💰 Price: %s SOL → 🎯 Target: %s SOL",
		price.StringFixed(6), settings.Target(price).StringFixed(6)))

	out := p.outcome.Resolve(ctx, amount)
	return p.settle(trade, out)
}

// Simulate records and settles a trade without quoting. It shares the
// pipeline lock so it never interleaves with a signal in flight.
func (p *Processor) Simulate(ctx context.Context, token string, amount decimal.Decimal) SignalResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token == "" {
		token = "unknown"
	}
	if !amount.IsPositive() {
		amount = p.svc.Settings().TradeAmount
	}

	trade := p.ledger.RecordTrade(token, amount, nil)
	res := p.settle(trade, p.outcome.Resolve(ctx, amount))
	metrics.SignalsTotal.WithLabelValues("simulated").Inc()
	return res
}

// settle closes the trade, reports the result and runs the circuit breakers.
func (p *Processor) settle(trade models.TradeRecord, out Outcome) SignalResult {
	res := SignalResult{Result: ResultSettled, Token: trade.Token, Outcome: &out}

	if !p.ledger.SettleTrade(trade.ID, out.Returned) {
		res.Result = ResultDropped
		return res
	}
	returned := out.Returned
	trade.ReturnedAmount = &returned
	res.Trade = &trade

	profit := trade.Profit()
	if out.Success {
		metrics.TradesSettled.WithLabelValues("win").Inc()
		p.notify.Send(fmt.Sprintf("✅ Trade successful: %s SOL", signed(profit, 4)))
	} else {
		metrics.TradesSettled.WithLabelValues("loss").Inc()
		p.notify.Send(fmt.Sprintf("❌ Trade failed: %s SOL", signed(profit, 4)))
	}

	pnl := p.ledger.PnL()
	metrics.LedgerPnLPercent.Set(pnl.Percentage.InexactFloat64())
	if p.guardian != nil {
		if err := p.guardian.PortfolioCheck(pnl.Percentage); err != nil {
			p.svc.Halt(err.Error())
		}
	}
	return res
}

// signed formats d with an explicit sign.
func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}
