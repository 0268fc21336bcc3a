package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/bot"
	"github.com/kjannette/signalforge-backend/internal/ledger"
	"github.com/kjannette/signalforge-backend/internal/status"
	"github.com/kjannette/signalforge-backend/internal/tokenaddr"
	"github.com/kjannette/signalforge-backend/internal/wallet"
)

const (
	historyLimit  = 5
	balanceTokens = 5
	dateLayout    = "2006-01-02 15:04:05"
)

// Reply is one outgoing chat message. Text is HTML.
type Reply struct {
	Text     string
	Keyboard [][]InlineKeyboardButton
}

func text(s string) Reply { return Reply{Text: s} }

// Router renders chat commands. It owns no state; every reply is built
// from the bot service, the ledger and the wallet at call time.
type Router struct {
	svc      *bot.Service
	ledger   *ledger.Ledger
	reporter *status.Reporter
	wallet   *wallet.Service
	channel  string
}

func NewRouter(svc *bot.Service, l *ledger.Ledger, reporter *status.Reporter, w *wallet.Service, channel string) *Router {
	return &Router{svc: svc, ledger: l, reporter: reporter, wallet: w, channel: channel}
}

// Command handles a "/name args" message. ok is false for anything that
// is not a known command.
func (r *Router) Command(ctx context.Context, msg string) (replies []Reply, ok bool) {
	fields := strings.Fields(msg)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return nil, false
	}
	// "/cmd@BotName" in groups
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	args := fields[1:]

	switch strings.ToLower(name) {
	case "start":
		return []Reply{r.menu()}, true
	case "help":
		return []Reply{text(helpText)}, true
	case "runbot":
		return []Reply{text(html.EscapeString(r.svc.Start()))}, true
	case "stopbot":
		return []Reply{text(html.EscapeString(r.svc.Stop()))}, true
	case "balance":
		return r.balance(ctx), true
	case "history":
		return []Reply{r.history()}, true
	case "pnl":
		return []Reply{r.pnl(ctx)}, true
	case "wallet":
		return []Reply{r.walletAddress()}, true
	case "receive":
		return []Reply{r.receive()}, true
	case "send":
		return r.send(ctx, args), true
	case "about":
		return []Reply{r.about(ctx)}, true
	case "disclaimer":
		return []Reply{text(disclaimerText)}, true
	}
	return nil, false
}

// Callback handles an inline button press. When edit is true the reply
// replaces the message carrying the keyboard.
func (r *Router) Callback(ctx context.Context, data string) (reply Reply, edit bool, ok bool) {
	switch data {
	case "balance":
		replies := r.balance(ctx)
		return replies[len(replies)-1], false, true
	case "history":
		return r.history(), false, true
	case "pnl":
		return r.pnl(ctx), false, true
	case "wallet_address", "receive_funds":
		return r.walletAddress(), false, true
	case "about":
		return r.about(ctx), false, true
	case "help":
		return text(helpText), false, true
	case "disclaimer":
		return text(disclaimerText), false, true
	case "runbot":
		return text(html.EscapeString(r.svc.Start())), true, true
	case "stopbot":
		return text(html.EscapeString(r.svc.Stop())), true, true
	case "send_funds":
		return text("📤 To send funds, use the command: /send &lt;amount&gt; &lt;receiver_address&gt;"), true, true
	}
	return Reply{}, false, false
}

func (r *Router) menu() Reply {
	st := r.svc.Status()
	settings := r.svc.Settings()
	emoji := "🛑"
	if st == bot.StatusRunning {
		emoji = "✅"
	}

	var b strings.Builder
	b.WriteString("🤖 <b>SignalForge Trading Bot</b>\n\n")
	fmt.Fprintf(&b, "<b>Status</b>: %s %s\n", emoji, strings.ToUpper(string(st)))
	fmt.Fprintf(&b, "<b>Channel</b>: %s\n", html.EscapeString(r.channelName()))
	fmt.Fprintf(&b, "<b>Trade Amount</b>: %s SOL\n", settings.TradeAmount)
	fmt.Fprintf(&b, "<b>Target</b>: %sx\n\n", settings.TargetMultiplier)
	b.WriteString("Select an option below:")

	return Reply{Text: b.String(), Keyboard: menuKeyboard}
}

var menuKeyboard = [][]InlineKeyboardButton{
	{{Text: "💰 Wallet Balance", CallbackData: "balance"}, {Text: "📊 Trading History", CallbackData: "history"}},
	{{Text: "📈 PnL", CallbackData: "pnl"}, {Text: "🏦 Wallet Address", CallbackData: "wallet_address"}},
	{{Text: "📤 Send Funds", CallbackData: "send_funds"}, {Text: "📥 Receive Funds", CallbackData: "receive_funds"}},
	{{Text: "▶️ Run Bot", CallbackData: "runbot"}, {Text: "⏹️ Stop Bot", CallbackData: "stopbot"}},
	{{Text: "ℹ️ About", CallbackData: "about"}, {Text: "❓ Help", CallbackData: "help"}},
	{{Text: "⚠️ Disclaimer", CallbackData: "disclaimer"}},
}

func (r *Router) balance(ctx context.Context) []Reply {
	if !r.wallet.Configured() {
		return []Reply{text("❌ Wallet not initialized")}
	}
	bal := r.wallet.Balance(ctx)

	var b strings.Builder
	b.WriteString("💰 <b>Wallet Balance</b>\n\n")
	fmt.Fprintf(&b, "<b>SOL</b>: %s ($%s)\n", bal.SOL.Balance.StringFixed(4), bal.SOL.Value.StringFixed(2))
	fmt.Fprintf(&b, "<b>SOL Price</b>: $%s\n\n", bal.SOL.Price.StringFixed(2))

	if len(bal.Tokens) > 0 {
		b.WriteString("<b>Tokens</b>:\n")
		for i, t := range bal.Tokens {
			if i == balanceTokens {
				fmt.Fprintf(&b, "\n... and %d more tokens\n", len(bal.Tokens)-balanceTokens)
				break
			}
			fmt.Fprintf(&b, "• %s: %s ($%s)\n", html.EscapeString(t.Symbol), t.Balance.StringFixed(4), t.ValueUSD.StringFixed(2))
		}
	}

	fmt.Fprintf(&b, "\n<b>Total Portfolio Value</b>: $%s", bal.TotalValue.StringFixed(2))
	fmt.Fprintf(&b, "\n<b>Address</b>: <code>%s</code>", tokenaddr.Truncate(bal.Wallet, 8))

	return []Reply{text("💰 Fetching wallet balance..."), text(b.String())}
}

func (r *Router) history() Reply {
	trades := r.ledger.RecentTrades(historyLimit)
	if len(trades) == 0 {
		return text("📊 No trading history yet.")
	}

	var b strings.Builder
	b.WriteString("📊 <b>Trading History</b>\n\n")
	for i, t := range trades {
		emoji := "⏳"
		if t.Settled() {
			emoji = resultEmoji(t.Profit())
		}
		fmt.Fprintf(&b, "<b>Trade #%d</b> %s\n", i+1, emoji)
		fmt.Fprintf(&b, "Date: %s\n", t.CreatedAt.UTC().Format(dateLayout))
		fmt.Fprintf(&b, "Token: %s\n", html.EscapeString(tokenaddr.Truncate(t.Token, 8)))
		fmt.Fprintf(&b, "Amount: %s SOL\n", t.InvestedAmount.StringFixed(4))
		if t.Settled() {
			fmt.Fprintf(&b, "Return: %s SOL\n", t.ReturnedAmount.StringFixed(4))
			fmt.Fprintf(&b, "PnL: %s SOL\n", signedFixed(t.Profit(), 4))
		}
		b.WriteString("\n")
	}

	pnl := r.ledger.PnL()
	fmt.Fprintf(&b, "<b>Overall PnL</b>: %s SOL (%s%%)", signedFixed(pnl.Amount, 4), signedFixed(pnl.Percentage, 2))
	return text(b.String())
}

func (r *Router) pnl(ctx context.Context) Reply {
	snap := r.reporter.Snapshot(ctx)
	if snap.PnL.Invested.IsZero() {
		return text("📈 No trades executed yet.")
	}

	var b strings.Builder
	b.WriteString("📈 <b>Profit &amp; Loss</b>\n\n")
	fmt.Fprintf(&b, "Total Invested: %s SOL\n", snap.PnL.Invested.StringFixed(4))
	fmt.Fprintf(&b, "Total Returned: %s SOL\n", snap.PnL.Returned.StringFixed(4))
	fmt.Fprintf(&b, "PnL: %s SOL (%s%%)\n", signedFixed(snap.PnL.Amount, 4), signedFixed(snap.PnL.Percentage, 2))
	fmt.Fprintf(&b, "PnL (USD): $%s\n\n", snap.PnL.USD.StringFixed(2))

	switch snap.PnL.Amount.Sign() {
	case 1:
		b.WriteString("✅ Profitable")
	case -1:
		b.WriteString("❌ Losing")
	default:
		b.WriteString("⚪ Break-even")
	}
	return text(b.String())
}

func (r *Router) walletAddress() Reply {
	if !r.wallet.Configured() {
		return text("❌ Wallet not initialized")
	}
	return text(fmt.Sprintf("🏦 <b>Your Wallet Address:</b>\n<code>%s</code>", r.wallet.Address()))
}

func (r *Router) receive() Reply {
	if !r.wallet.Configured() {
		return text("❌ Wallet not initialized")
	}
	return text(fmt.Sprintf("📥 <b>Your Wallet Address:</b>\n<code>%s</code>\n\nSend SOL or tokens to this address.", r.wallet.Address()))
}

func (r *Router) send(ctx context.Context, args []string) []Reply {
	if !r.wallet.Configured() {
		return []Reply{text("❌ Wallet not initialized")}
	}
	if len(args) < 2 {
		return []Reply{text("❌ Usage: /send &lt;amount&gt; &lt;receiver_address&gt;\nExample: /send 0.1 5gksC...")}
	}

	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return []Reply{text("❌ Invalid amount. Please use numbers only.")}
	}
	receiver := args[1]
	if !tokenaddr.ValidLength(receiver) {
		return []Reply{text("❌ Invalid receiver address")}
	}

	progress := text(fmt.Sprintf("🔄 Sending %s SOL to %s", amount, html.EscapeString(tokenaddr.Truncate(receiver, 8))))

	tx, err := r.wallet.Send(ctx, receiver, amount)
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount):
		return []Reply{text("❌ Invalid amount. Amount must be positive.")}
	case err != nil:
		return []Reply{progress, text("❌ Failed to send SOL: " + html.EscapeString(err.Error()))}
	}
	return []Reply{progress, text(fmt.Sprintf("✅ Successfully sent %s SOL\nTransaction: https://solscan.io/tx/%s",
		tx.Amount, html.EscapeString(tx.ExternalRef)))}
}

func (r *Router) about(ctx context.Context) Reply {
	snap := r.reporter.Snapshot(ctx)
	running := "🛑 Stopped"
	if snap.Status == string(bot.StatusRunning) {
		running = "✅ Running"
	}

	var b strings.Builder
	b.WriteString("ℹ️ <b>About SignalForge Trading Bot</b>\n\n")
	b.WriteString(aboutBlurb)
	fmt.Fprintf(&b, "<b>Status</b>: %s\n", running)
	fmt.Fprintf(&b, "<b>Uptime</b>: %s\n", snap.Uptime)
	fmt.Fprintf(&b, "<b>Wallet</b>: %s\n", tokenaddr.Truncate(r.wallet.Address(), 8))
	fmt.Fprintf(&b, "<b>Trades Executed</b>: %d\n", snap.Trades)
	fmt.Fprintf(&b, "<b>PnL</b>: %s SOL\n", signedFixed(snap.PnL.Amount, 4))
	fmt.Fprintf(&b, "<b>Monitoring</b>: %s\n\n", html.EscapeString(r.channelName()))
	b.WriteString("Use /help to see all available commands.")
	return text(b.String())
}

func (r *Router) channelName() string {
	if r.channel == "" {
		return "N/A"
	}
	return r.channel
}

func resultEmoji(profit decimal.Decimal) string {
	switch profit.Sign() {
	case 1:
		return "✅"
	case -1:
		return "❌"
	}
	return "⚪"
}

func signedFixed(d decimal.Decimal, places int32) string {
	if d.IsNegative() {
		return d.StringFixed(places)
	}
	return "+" + d.StringFixed(places)
}

const helpText = `🤖 <b>SignalForge Trading Bot - Help Guide</b>

<b>Available Commands:</b>
/start - Show the main menu
/runbot - Start the bot and begin monitoring
/stopbot - Stop the bot
/balance - Check your wallet balance
/history - View your trading history
/pnl - Check your profit and loss
/wallet - Show your wallet address
/send - Send SOL to another address
/receive - Show your wallet address to receive funds
/about - Information about this bot
/disclaimer - Legal disclaimer
/help - Show this help message`

const aboutBlurb = `<b>⚡ SignalForge TradingBot</b>
<i>Your automated gateway to fast, smart, and secure DEX trading on Solana.</i>

SignalForge listens to <b>public signal channels</b>, extracts <b>token contract addresses</b> and prices them through the <b>Jupiter Aggregator</b>.

`

const disclaimerText = `⚠️ <b>Disclaimer</b>

1. This trading bot is provided as-is without any warranties.
2. Cryptocurrency trading involves significant risk of loss.
3. Past performance is not indicative of future results.
4. You are solely responsible for any trading decisions.
5. The bot developers are not responsible for any financial losses.

By using this bot, you acknowledge and accept these risks.`
