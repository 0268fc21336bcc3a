package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "TRADE_AMOUNT_SOL", "TARGET_MULTIPLIER", "DEFAULT_BOT_STATUS", "STATUS_REPORT_INTERVAL_MINUTES"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.True(t, cfg.TradeAmount.Equal(decimal.RequireFromString("0.0215")))
	assert.True(t, cfg.TargetMultiplier.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "stopped", cfg.DefaultBotStatus)
	assert.Equal(t, 5*time.Second, cfg.StatusPushInterval)
	assert.Zero(t, cfg.StatusReportInterval)
	assert.Equal(t, 100, cfg.LedgerTradeCapacity)
	assert.Equal(t, 50, cfg.LedgerTxCapacity)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TRADE_AMOUNT_SOL", "0.5")
	t.Setenv("TARGET_MULTIPLIER", "3")
	t.Setenv("STATUS_REPORT_INTERVAL_MINUTES", "15")
	t.Setenv("TRANSFER_TIMEOUT_SECONDS", "9")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "0.5", cfg.TradeAmount.String())
	assert.Equal(t, "3", cfg.TargetMultiplier.String())
	assert.Equal(t, 15*time.Minute, cfg.StatusReportInterval)
	assert.Equal(t, 9*time.Second, cfg.TransferTimeout)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("TRADE_AMOUNT_SOL", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "0.0215", cfg.TradeAmount.String())
}

func validConfig() *Config {
	return &Config{
		Port:                5000,
		DefaultBotStatus:    "stopped",
		TradeAmount:         decimal.RequireFromString("0.0215"),
		TargetMultiplier:    decimal.NewFromInt(2),
		OutcomeSuccessRate:  0.7,
		OutcomeWinMin:       decimal.RequireFromString("1.5"),
		OutcomeWinMax:       decimal.RequireFromString("3"),
		OutcomeLossMin:      decimal.RequireFromString("0.5"),
		OutcomeLossMax:      decimal.RequireFromString("0.95"),
		LedgerTradeCapacity: 100,
		LedgerTxCapacity:    50,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"zero trade amount", func(c *Config) { c.TradeAmount = decimal.Zero }, "TRADE_AMOUNT_SOL"},
		{"multiplier of one", func(c *Config) { c.TargetMultiplier = decimal.NewFromInt(1) }, "TARGET_MULTIPLIER"},
		{"unknown status", func(c *Config) { c.DefaultBotStatus = "paused" }, "DEFAULT_BOT_STATUS"},
		{"success rate above one", func(c *Config) { c.OutcomeSuccessRate = 1.5 }, "OUTCOME_SUCCESS_RATE"},
		{"inverted win range", func(c *Config) { c.OutcomeWinMin = decimal.NewFromInt(5) }, "OUTCOME_WIN_MIN"},
		{"inverted loss range", func(c *Config) { c.OutcomeLossMax = decimal.RequireFromString("0.1") }, "OUTCOME_LOSS_MIN"},
		{"empty ledger", func(c *Config) { c.LedgerTxCapacity = 0 }, "LEDGER_TRADE_CAPACITY"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_RunningStatusAnyCase(t *testing.T) {
	c := validConfig()
	c.DefaultBotStatus = "Running"
	assert.NoError(t, c.Validate())
}

func TestTruncSecret(t *testing.T) {
	assert.Equal(t, "123456...", truncSecret("123456:ABCDEFGHIJ"))
	assert.Equal(t, "***", truncSecret("short"))
}
