package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/ledger"
	"github.com/kjannette/signalforge-backend/internal/metrics"
	"github.com/kjannette/signalforge-backend/internal/models"
	"github.com/kjannette/signalforge-backend/internal/tokenaddr"
)

const (
	DefaultTransferTimeout = 5 * time.Second
	nativeAsset            = "SOL"
)

var (
	ErrWalletNotConfigured = errors.New("wallet not initialized")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidReceiver     = errors.New("invalid receiver address")
	ErrTransferFailed      = errors.New("transfer failed")
)

// Transferrer moves SOL from the bot wallet and returns the transaction id.
type Transferrer interface {
	Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}

type BalanceSource interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type TokenLister interface {
	Tokens(ctx context.Context, owner string) ([]models.TokenHolding, error)
}

type SpotPricer interface {
	SOLPrice(ctx context.Context) (decimal.Decimal, error)
}

type Notifier interface {
	Send(msg string)
}

// Account is the signing wallet: Transferrer and BalanceSource together.
type Account interface {
	Transferrer
	BalanceSource
	Address() string
}

type SOLBalance struct {
	Balance decimal.Decimal `json:"balance"`
	Value   decimal.Decimal `json:"value"`
	Price   decimal.Decimal `json:"price"`
}

type Balance struct {
	SOL        SOLBalance            `json:"sol"`
	Tokens     []models.TokenHolding `json:"tokens"`
	TotalValue decimal.Decimal       `json:"total_value"`
	Wallet     string                `json:"wallet"`
}

// Service fronts the bot wallet for the API and chat surfaces. Transfers
// are bounded by a timeout and recorded in the ledger on success.
type Service struct {
	ledger  *ledger.Ledger
	account Account
	tokens  TokenLister
	prices  SpotPricer
	notify  Notifier
	timeout time.Duration
}

// NewService accepts a nil account; every operation then degrades or
// returns ErrWalletNotConfigured.
func NewService(l *ledger.Ledger, account Account, prices SpotPricer, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	return &Service{ledger: l, account: account, prices: prices, timeout: timeout}
}

func (s *Service) WithTokens(tl TokenLister) *Service {
	s.tokens = tl
	return s
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notify = n
	return s
}

func (s *Service) Configured() bool {
	return s.account != nil
}

// Address returns the wallet's public address, or "" when no key is loaded.
func (s *Service) Address() string {
	if s.account == nil {
		return ""
	}
	return s.account.Address()
}

// SOLBalance returns 0 when the wallet is missing or the RPC node is down.
func (s *Service) SOLBalance(ctx context.Context) decimal.Decimal {
	if s.account == nil {
		return decimal.Zero
	}
	bal, err := s.account.Balance(ctx)
	if err != nil {
		fmt.Printf("[SOLANA] Balance lookup failed: %v\n", err)
		return decimal.Zero
	}
	return bal
}

// Balance assembles the SOL and token view. Collaborator failures leave
// zeros or an empty token list rather than failing the call.
func (s *Service) Balance(ctx context.Context) Balance {
	out := Balance{Wallet: s.Address(), Tokens: []models.TokenHolding{}}
	if s.account == nil {
		return out
	}

	out.SOL.Balance = s.SOLBalance(ctx)
	if s.prices != nil {
		if price, err := s.prices.SOLPrice(ctx); err != nil {
			fmt.Printf("[PRICE] SOL price unavailable: %v\n", err)
		} else {
			out.SOL.Price = price
			out.SOL.Value = out.SOL.Balance.Mul(price)
		}
	}

	if s.tokens != nil {
		tokens, err := s.tokens.Tokens(ctx, out.Wallet)
		if err != nil {
			fmt.Printf("[SOLANA] Token list unavailable: %v\n", err)
		} else {
			out.Tokens = tokens
		}
	}

	out.TotalValue = out.SOL.Value
	for _, t := range out.Tokens {
		out.TotalValue = out.TotalValue.Add(t.ValueUSD)
	}
	return out
}

// Send transfers amount SOL to receiver. Only the receiver's length is
// checked here; anything else is up to the chain.
func (s *Service) Send(ctx context.Context, receiver string, amount decimal.Decimal) (models.TransactionRecord, error) {
	if s.account == nil {
		return models.TransactionRecord{}, ErrWalletNotConfigured
	}
	if !amount.IsPositive() {
		metrics.TransfersTotal.WithLabelValues("rejected").Inc()
		return models.TransactionRecord{}, ErrInvalidAmount
	}
	if !tokenaddr.ValidLength(receiver) {
		metrics.TransfersTotal.WithLabelValues("rejected").Inc()
		return models.TransactionRecord{}, ErrInvalidReceiver
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sig, err := s.account.Transfer(ctx, receiver, amount)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("failed").Inc()
		fmt.Printf("[SOLANA] Transfer of %s SOL to %s failed: %v\n", amount, receiver, err)
		return models.TransactionRecord{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	metrics.TransfersTotal.WithLabelValues("ok").Inc()
	rec := s.ledger.RecordTransaction(models.TransactionSend, nativeAsset, amount, receiver, sig)
	if s.notify != nil {
		s.notify.Send(fmt.Sprintf("💸 Sent %s SOL to %s\nTx: %s",
			amount, tokenaddr.Truncate(receiver, 8), sig))
	}
	return rec, nil
}
