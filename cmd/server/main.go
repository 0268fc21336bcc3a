package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/api"
	"github.com/kjannette/signalforge-backend/internal/bot"
	"github.com/kjannette/signalforge-backend/internal/config"
	"github.com/kjannette/signalforge-backend/internal/external"
	"github.com/kjannette/signalforge-backend/internal/ledger"
	"github.com/kjannette/signalforge-backend/internal/notifications"
	"github.com/kjannette/signalforge-backend/internal/risk"
	"github.com/kjannette/signalforge-backend/internal/scheduler"
	"github.com/kjannette/signalforge-backend/internal/solana"
	"github.com/kjannette/signalforge-backend/internal/status"
	"github.com/kjannette/signalforge-backend/internal/telegram"
	"github.com/kjannette/signalforge-backend/internal/wallet"
	"github.com/kjannette/signalforge-backend/internal/wshub"
)

const banner = `
╔══════════════════════════════════════╗
║     SignalForge Signal Bot v0.1      ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ledger and control state
	l := ledger.New(cfg.LedgerTradeCapacity, cfg.LedgerTxCapacity)
	state := bot.NewRunState(bot.ParseStatus(cfg.DefaultBotStatus), time.Now())
	settings := bot.NewSettingsStore(bot.Settings{
		TradeAmount:      cfg.TradeAmount,
		TargetMultiplier: cfg.TargetMultiplier,
	})

	// Market data
	prices := external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.PriceCacheTTL)
	solscan := external.NewSolscanClient(cfg.SolscanURL, cfg.SolscanAPIToken)

	var quoteCache external.QuoteCache = external.NewMemoryQuoteCache(cfg.QuoteCacheTTL)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err = external.DialRedis(dialCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			fmt.Printf("[CACHE] Redis unavailable, using in-process cache: %v\n", err)
		} else {
			quoteCache = external.NewRedisQuoteCache(rdb, cfg.QuoteCacheTTL)
			fmt.Println("[CACHE] Redis quote cache connected")
			defer func() {
				rdb.Close()
				fmt.Println("[CACHE] Redis connection closed")
			}()
		}
	}
	quoter := external.NewCachedQuoter(external.NewJupiterClient(cfg.JupiterQuoteURL), quoteCache)

	// Dashboard push channel
	hub := wshub.NewHub(cfg.CORSAllowOrigin)

	// Telegram
	var tg *telegram.Client
	if cfg.TelegramBotToken != "" {
		tg = telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramAPIURL)
	}

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName).WithPublisher(hub)
	if tg != nil {
		notify.WithChat(tg, cfg.TelegramChatID)
	}

	botService := bot.NewService(state, settings, notify)
	botService.SetPublisher(hub)

	// Wallet
	var account wallet.Account
	if cfg.PrivateKey != "" {
		key, err := solana.ParseKeypair(cfg.PrivateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[SOLANA] %v\n", err)
			os.Exit(1)
		}
		client, err := solana.Dial(ctx, cfg.SolanaRPCURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[SOLANA] %v\n", err)
			os.Exit(1)
		}
		defer client.Close()
		w := solana.NewWallet(client, key)
		account = w
		fmt.Printf("[SOLANA] Wallet loaded: %s\n", w.Address())
	}
	walletSvc := wallet.NewService(l, account, prices, cfg.TransferTimeout).
		WithTokens(solscan).
		WithNotifier(notify)

	// Signal pipeline
	outcome := bot.NewSimulatedOutcome(bot.OutcomeConfig{
		SuccessRate: cfg.OutcomeSuccessRate,
		WinMin:      cfg.OutcomeWinMin,
		WinMax:      cfg.OutcomeWinMax,
		LossMin:     cfg.OutcomeLossMin,
		LossMax:     cfg.OutcomeLossMax,
	}, cfg.OutcomeSeed)
	guardian := risk.NewGuardian(risk.Limits{
		MaxDailyTrades:    cfg.MaxDailyTrades,
		MaxTradeAmount:    cfg.MaxTradeAmount,
		StopLossPercent:   cfg.StopLossPercent,
		TakeProfitPercent: cfg.TakeProfitPercent,
	}, l)
	processor := bot.NewProcessor(botService, l, quoter, outcome, notify).WithGuardian(guardian)

	reporter := status.NewReporter(l, botService, prices)

	hub.OnConnect(func(ctx context.Context) (string, any) {
		return "bot_status", reporter.Snapshot(ctx)
	})
	hub.OnRequest("request_status", func(ctx context.Context) (string, any) {
		return "status_update", reporter.Snapshot(ctx)
	})
	go hub.Run(ctx)

	// 1. API server
	srv := api.NewServer(api.Deps{
		Bot:       botService,
		Processor: processor,
		Ledger:    l,
		Reporter:  reporter,
		Wallet:    walletSvc,
		Quoter:    quoter,
		Hub:       hub,
		Channel:   cfg.TelegramChannel,
	}, cfg.Port, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Status push and operator reports
	statusSched := scheduler.NewStatusScheduler(reporter, hub, notify, scheduler.StatusSchedulerConfig{
		PushInterval:   cfg.StatusPushInterval,
		ReportInterval: cfg.StatusReportInterval,
	})
	statusSched.Start()

	// 3. Telegram chat bot and signal channel
	pollerDone := make(chan struct{})
	if tg != nil {
		router := telegram.NewRouter(botService, l, reporter, walletSvc, cfg.TelegramChannel)
		poller := telegram.NewPoller(tg, router, processor, cfg.TelegramChannel, cfg.TelegramChatID, cfg.TelegramPollTimeout)
		go func() {
			defer close(pollerDone)
			poller.Run(ctx)
		}()
	} else {
		close(pollerDone)
		fmt.Println("[TELEGRAM] Skipped - no bot token configured")
	}

	notify.Send(fmt.Sprintf("🚀 SignalForge online (status: %s)", botService.Status()))
	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	statusSched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-pollerDone:
	case <-shutdownCtx.Done():
		fmt.Println("[TELEGRAM] Poller did not exit in time")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Server error on shutdown: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}
