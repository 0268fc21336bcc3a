package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Server
	Port            int
	APIKey          string
	CORSAllowOrigin string

	// Notifications
	BotName    string
	WebhookURL string

	// Telegram
	TelegramBotToken    string
	TelegramChatID      string
	TelegramChannel     string
	TelegramAPIURL      string
	TelegramPollTimeout int

	// Wallet / Solana
	PrivateKey      string
	SolanaRPCURL    string
	TransferTimeout time.Duration

	// Market data
	JupiterQuoteURL string
	CoinGeckoURL    string
	SolscanURL      string
	SolscanAPIToken string
	RedisURL        string
	QuoteCacheTTL   time.Duration
	PriceCacheTTL   time.Duration

	// Trading
	DefaultBotStatus string
	TradeAmount      decimal.Decimal
	TargetMultiplier decimal.Decimal

	// Outcome simulation
	OutcomeSuccessRate float64
	OutcomeWinMin      decimal.Decimal
	OutcomeWinMax      decimal.Decimal
	OutcomeLossMin     decimal.Decimal
	OutcomeLossMax     decimal.Decimal
	OutcomeSeed        int64

	// Ledger
	LedgerTradeCapacity int
	LedgerTxCapacity    int

	// Risk Management
	MaxDailyTrades    int
	MaxTradeAmount    decimal.Decimal
	StopLossPercent   decimal.Decimal
	TakeProfitPercent decimal.Decimal

	// Timing
	StatusPushInterval   time.Duration
	StatusReportInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Port:            envInt("PORT", 5000),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Notifications
		BotName:    envStr("BOT_NAME", "SignalForge"),
		WebhookURL: envStr("WEBHOOK_URL", ""),

		// Telegram
		TelegramBotToken:    envStr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      envStr("TELEGRAM_CHAT_ID", ""),
		TelegramChannel:     envStr("TELEGRAM_CHANNEL", ""),
		TelegramAPIURL:      envStr("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramPollTimeout: envInt("TELEGRAM_POLL_TIMEOUT_SECONDS", 25),

		// Wallet / Solana
		PrivateKey:      envStr("PRIVATE_KEY", ""),
		SolanaRPCURL:    envStr("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		TransferTimeout: envDuration("TRANSFER_TIMEOUT_SECONDS", time.Second, 5),

		// Market data
		JupiterQuoteURL: envStr("JUPITER_QUOTE_URL", "https://quote-api.jup.ag/v6/quote"),
		CoinGeckoURL:    envStr("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		SolscanURL:      envStr("SOLSCAN_URL", "https://public-api.solscan.io"),
		SolscanAPIToken: envStr("SOLSCAN_API_TOKEN", ""),
		RedisURL:        envStr("REDIS_URL", ""),
		QuoteCacheTTL:   envDuration("QUOTE_CACHE_TTL_SECONDS", time.Second, 15),
		PriceCacheTTL:   envDuration("PRICE_CACHE_TTL_SECONDS", time.Second, 60),

		// Trading
		DefaultBotStatus: envStr("DEFAULT_BOT_STATUS", "stopped"),
		TradeAmount:      envDecimal("TRADE_AMOUNT_SOL", "0.0215"),
		TargetMultiplier: envDecimal("TARGET_MULTIPLIER", "2.0"),

		// Outcome simulation
		OutcomeSuccessRate: envFloat("OUTCOME_SUCCESS_RATE", 0.7),
		OutcomeWinMin:      envDecimal("OUTCOME_WIN_MIN", "1.5"),
		OutcomeWinMax:      envDecimal("OUTCOME_WIN_MAX", "3.0"),
		OutcomeLossMin:     envDecimal("OUTCOME_LOSS_MIN", "0.5"),
		OutcomeLossMax:     envDecimal("OUTCOME_LOSS_MAX", "0.95"),
		OutcomeSeed:        int64(envInt("OUTCOME_SEED", 0)),

		// Ledger
		LedgerTradeCapacity: envInt("LEDGER_TRADE_CAPACITY", 100),
		LedgerTxCapacity:    envInt("LEDGER_TX_CAPACITY", 50),

		// Risk Management
		MaxDailyTrades:    envInt("MAX_DAILY_TRADES", 0),
		MaxTradeAmount:    envDecimal("MAX_TRADE_AMOUNT_SOL", "0"),
		StopLossPercent:   envDecimal("STOP_LOSS_PERCENT", "0"),
		TakeProfitPercent: envDecimal("TAKE_PROFIT_PERCENT", "0"),

		// Timing
		StatusPushInterval:   envDuration("STATUS_PUSH_INTERVAL_SECONDS", time.Second, 5),
		StatusReportInterval: envDuration("STATUS_REPORT_INTERVAL_MINUTES", time.Minute, 0),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	one := decimal.NewFromInt(1)
	if !c.TradeAmount.IsPositive() {
		errs = append(errs, "TRADE_AMOUNT_SOL must be > 0")
	}
	if !c.TargetMultiplier.GreaterThan(one) {
		errs = append(errs, "TARGET_MULTIPLIER must be > 1")
	}
	switch strings.ToLower(c.DefaultBotStatus) {
	case "running", "stopped":
	default:
		errs = append(errs, fmt.Sprintf("DEFAULT_BOT_STATUS must be running or stopped, got %q", c.DefaultBotStatus))
	}
	if c.OutcomeSuccessRate < 0 || c.OutcomeSuccessRate > 1 {
		errs = append(errs, "OUTCOME_SUCCESS_RATE must be within [0, 1]")
	}
	if c.OutcomeWinMin.GreaterThan(c.OutcomeWinMax) {
		errs = append(errs, "OUTCOME_WIN_MIN must not exceed OUTCOME_WIN_MAX")
	}
	if c.OutcomeLossMin.GreaterThan(c.OutcomeLossMax) {
		errs = append(errs, "OUTCOME_LOSS_MIN must not exceed OUTCOME_LOSS_MAX")
	}
	if c.OutcomeLossMin.IsNegative() {
		errs = append(errs, "OUTCOME_LOSS_MIN must not be negative")
	}
	if c.LedgerTradeCapacity <= 0 || c.LedgerTxCapacity <= 0 {
		errs = append(errs, "LEDGER_TRADE_CAPACITY and LEDGER_TX_CAPACITY must be > 0")
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT out of range: %d", c.Port))
	}

	if c.PrivateKey == "" {
		fmt.Println("[WARN] PRIVATE_KEY not set: wallet features (balance, send) disabled")
	}
	if c.TelegramBotToken == "" {
		fmt.Println("[WARN] TELEGRAM_BOT_TOKEN not set: chat bot and signal channel disabled")
	} else if c.TelegramChannel == "" {
		fmt.Println("[WARN] TELEGRAM_CHANNEL not set: no signals will be processed")
	}
	if c.TelegramChatID == "" {
		fmt.Println("[WARN] TELEGRAM_CHAT_ID not set: commands accepted from any chat, no log chat")
	}
	if c.QuoteCacheTTL <= 0 {
		fmt.Println("[WARN] QUOTE_CACHE_TTL_SECONDS is 0: quotes are not cached")
	}
	if c.RedisURL == "" {
		fmt.Println("[WARN] REDIS_URL not set: using in-process quote cache")
	}
	if c.StopLossPercent.IsZero() && c.TakeProfitPercent.IsZero() {
		fmt.Println("[WARN] STOP_LOSS_PERCENT and TAKE_PROFIT_PERCENT are both 0: no portfolio circuit breakers active")
	}
	if c.MaxDailyTrades == 0 && c.MaxTradeAmount.IsZero() {
		fmt.Println("[WARN] MAX_DAILY_TRADES and MAX_TRADE_AMOUNT_SOL are both 0: no per-trade limits active")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set: REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== SignalForge Trading Bot Configuration ===")
	fmt.Println("════════════════════════════════════════")
	fmt.Println("  SIMULATED TRADING")
	fmt.Println("  Signals are quoted, outcomes are simulated")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Initial Status: %s\n", c.DefaultBotStatus)
	fmt.Printf("Trade Amount: %s SOL\n", c.TradeAmount)
	fmt.Printf("Target Multiplier: %sx\n", c.TargetMultiplier)
	fmt.Printf("Outcome: %.0f%% win, win %s-%sx, loss %s-%sx\n",
		c.OutcomeSuccessRate*100, c.OutcomeWinMin, c.OutcomeWinMax, c.OutcomeLossMin, c.OutcomeLossMax)
	fmt.Println("--------------------------------------")
	fmt.Printf("Wallet Key: %s\n", boolLabel(c.PrivateKey != "", "configured", "not set"))
	fmt.Printf("Solana RPC: %s\n", c.SolanaRPCURL)
	fmt.Printf("Quote Cache: %s (ttl %s)\n", boolLabel(c.RedisURL != "", "redis", "in-process"), c.QuoteCacheTTL)
	fmt.Println("--------------------------------------")
	fmt.Println("Telegram:")
	fmt.Printf("  Bot Token: %s\n", boolLabel(c.TelegramBotToken != "", truncSecret(c.TelegramBotToken), "not set"))
	fmt.Printf("  Signal Channel: %s\n", boolLabel(c.TelegramChannel != "", c.TelegramChannel, "not set"))
	fmt.Printf("  Admin Chat: %s\n", boolLabel(c.TelegramChatID != "", c.TelegramChatID, "any"))
	fmt.Println("--------------------------------------")
	fmt.Println("Ledger:")
	fmt.Printf("  Trades kept: %d\n", c.LedgerTradeCapacity)
	fmt.Printf("  Transactions kept: %d\n", c.LedgerTxCapacity)
	fmt.Println("======================================")
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}

// envDuration reads an integer count of unit.
func envDuration(key string, unit time.Duration, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * unit
}

func truncSecret(s string) string {
	if len(s) > 10 {
		return s[:6] + "..."
	}
	return "***"
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
