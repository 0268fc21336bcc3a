package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/signalforge-backend/internal/api"
	"github.com/kjannette/signalforge-backend/internal/bot"
	"github.com/kjannette/signalforge-backend/internal/ledger"
	"github.com/kjannette/signalforge-backend/internal/status"
	"github.com/kjannette/signalforge-backend/internal/wallet"
)

const (
	walletAddr = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	mint       = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type nopNotifier struct{}

func (nopNotifier) Send(string) {}

type fixedQuoter struct {
	price decimal.Decimal
	err   error
}

func (q fixedQuoter) Quote(context.Context, string, decimal.Decimal) (decimal.Decimal, error) {
	return q.price, q.err
}

type fixedOutcome struct{ out bot.Outcome }

func (f fixedOutcome) Resolve(context.Context, decimal.Decimal) bot.Outcome { return f.out }

type fixedPrice struct{ price decimal.Decimal }

func (p fixedPrice) SOLPrice(context.Context) (decimal.Decimal, error) { return p.price, nil }

type fakeAccount struct {
	err error
}

func (f *fakeAccount) Address() string { return walletAddr }
func (f *fakeAccount) Balance(context.Context) (decimal.Decimal, error) {
	return d("2"), nil
}
func (f *fakeAccount) Transfer(context.Context, string, decimal.Decimal) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "5txSig", nil
}

type fixture struct {
	handler http.Handler
	svc     *bot.Service
	ledger  *ledger.Ledger
	account *fakeAccount
}

type option func(*api.Deps, *fixture)

func withoutWallet() option {
	return func(deps *api.Deps, f *fixture) {
		deps.Wallet = wallet.NewService(f.ledger, nil, nil, 0)
	}
}

func withQuoter(q bot.Quoter) option {
	return func(deps *api.Deps, _ *fixture) { deps.Quoter = q }
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	l := ledger.New(0, 0)
	state := bot.NewRunState(bot.StatusStopped, time.Now().Add(-time.Hour))
	settings := bot.NewSettingsStore(bot.Settings{TradeAmount: d("0.0215"), TargetMultiplier: d("2")})
	svc := bot.NewService(state, settings, nopNotifier{})
	quoter := fixedQuoter{price: d("0.5")}
	outcome := fixedOutcome{out: bot.Outcome{Success: true, Returned: d("0.043")}}
	prices := fixedPrice{price: d("100")}

	f := &fixture{svc: svc, ledger: l, account: &fakeAccount{}}
	deps := api.Deps{
		Bot:       svc,
		Processor: bot.NewProcessor(svc, l, quoter, outcome, nopNotifier{}),
		Ledger:    l,
		Reporter:  status.NewReporter(l, svc, prices),
		Wallet:    wallet.NewService(l, f.account, prices, time.Second),
		Quoter:    quoter,
		Channel:   "@alpha_calls",
	}
	for _, o := range opts {
		o(&deps, f)
	}
	f.handler = api.NewServer(deps, 0, "", "").Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return rr.Code, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"bot": "stopped", "wallet": "initialized"}, body["services"])
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	tr := f.ledger.RecordTrade(mint, d("1"), nil)
	f.ledger.SettleTrade(tr.ID, d("1.5"))

	code, body := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stopped", body["status"])
	assert.Equal(t, "1h 0m 0s", body["uptime"])
	assert.EqualValues(t, 1, body["trades"])
	assert.Equal(t, true, body["wallet_initialized"])
	assert.Equal(t, walletAddr, body["wallet_address"])
	assert.EqualValues(t, 2, body["sol_balance"])

	pnl := body["pnl"].(map[string]any)
	assert.EqualValues(t, 0.5, pnl["amount"])
	assert.EqualValues(t, 50, pnl["percentage"])
	assert.EqualValues(t, 50, pnl["usd"])

	settings := body["settings"].(map[string]any)
	assert.EqualValues(t, 0.0215, settings["trade_amount"])
	assert.Equal(t, "@alpha_calls", settings["channel"])
}

func TestStatus_NoWallet(t *testing.T) {
	f := newFixture(t, withoutWallet())
	_, body := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, false, body["wallet_initialized"])
	assert.Nil(t, body["wallet_address"])
	assert.EqualValues(t, 0, body["sol_balance"])
}

func TestStartStopIdempotent(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "✅ Bot monitoring started!", body["message"])

	code, body = f.do(t, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Bot is already running!", body["message"])
	assert.True(t, f.svc.Running())

	_, body = f.do(t, http.MethodPost, "/api/stop", "")
	assert.Equal(t, "🛑 Bot monitoring stopped!", body["message"])
	code, body = f.do(t, http.MethodPost, "/api/stop", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Bot is already stopped!", body["message"])
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodPost, "/api/settings", `{"trade_amount": 0.05, "target_multiplier": "3"}`)
	require.Equal(t, http.StatusOK, code)

	_, body := f.do(t, http.MethodGet, "/api/settings", "")
	assert.EqualValues(t, 0.05, body["trade_amount"])
	assert.EqualValues(t, 3, body["target_multiplier"])
}

func TestSettingsRejectsWholeWrite(t *testing.T) {
	f := newFixture(t)
	cases := []string{
		`{"trade_amount": 0.05, "target_multiplier": 1}`,
		`{"trade_amount": -1}`,
		`{"trade_amount": 0}`,
		`{"target_multiplier": 0.5}`,
		`not json`,
	}
	for _, body := range cases {
		code, resp := f.do(t, http.MethodPost, "/api/settings", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.NotEmpty(t, resp["error"], body)
	}

	cur := f.svc.Settings()
	assert.True(t, cur.TradeAmount.Equal(d("0.0215")))
	assert.True(t, cur.TargetMultiplier.Equal(d("2")))
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 60; i++ {
		price := d("0.1")
		tr := f.ledger.RecordTrade(mint, d("1"), &price)
		f.ledger.SettleTrade(tr.ID, d("2"))
	}
	f.ledger.RecordTrade("open", d("1"), nil)

	_, body := f.do(t, http.MethodGet, "/api/history", "")
	trades := body["trades"].([]any)
	require.Len(t, trades, 50)

	last := trades[49].(map[string]any)
	assert.Equal(t, "open", last["token"])
	assert.NotContains(t, last, "price")
	assert.NotContains(t, last, "return")

	first := trades[0].(map[string]any)
	assert.EqualValues(t, 0.1, first["price"])
	assert.EqualValues(t, 2, first["return"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, first["date"])

	assert.Empty(t, body["transactions"])

	_, body = f.do(t, http.MethodGet, "/api/history?limit=5", "")
	assert.Len(t, body["trades"].([]any), 5)
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/send", `{"receiver": "`+mint+`", "amount": 0.1}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "5txSig", body["tx_hash"])

	_, hist := f.do(t, http.MethodGet, "/api/history", "")
	txs := hist["transactions"].([]any)
	require.Len(t, txs, 1)
	tx := txs[0].(map[string]any)
	assert.Equal(t, "send", tx["type"])
	assert.Equal(t, "SOL", tx["asset"])
	assert.Equal(t, mint, tx["receiver"])
	assert.Equal(t, "5txSig", tx["tx_hash"])
}

func TestSend_Rejects(t *testing.T) {
	f := newFixture(t)
	cases := []string{
		`{"receiver": "short", "amount": 0.1}`,
		`{"receiver": "` + mint + `", "amount": 0}`,
		`{"receiver": "` + mint + `"}`,
		`{}`,
	}
	for _, body := range cases {
		code, resp := f.do(t, http.MethodPost, "/api/send", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "Invalid receiver or amount", resp["error"], body)
	}
	assert.Empty(t, f.ledger.RecentTransactions(0))
}

func TestSend_TransferFailed(t *testing.T) {
	f := newFixture(t)
	f.account.err = errors.New("blockhash not found")

	code, body := f.do(t, http.MethodPost, "/api/send", `{"receiver": "`+mint+`", "amount": 0.1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.HasPrefix(body["error"].(string), "Failed to send: "))
	assert.Contains(t, body["error"], "blockhash not found")
}

func TestBalance(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/balance", "")
	require.Equal(t, http.StatusOK, code)

	sol := body["sol"].(map[string]any)
	assert.EqualValues(t, 2, sol["balance"])
	assert.EqualValues(t, 100, sol["price"])
	assert.EqualValues(t, 200, sol["value"])
	assert.EqualValues(t, 200, body["total_value"])
	assert.Equal(t, walletAddr, body["wallet"])
	assert.Equal(t, []any{}, body["tokens"])

	f = newFixture(t, withoutWallet())
	code, body = f.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Wallet not initialized", body["error"])
}

func TestTokenPrice(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/token/"+mint+"/price", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, mint, body["address"])
	assert.EqualValues(t, 0.5, body["price"])
	assert.EqualValues(t, 1, body["target"])

	code, _ = f.do(t, http.MethodGet, "/api/token/abc/price", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTokenPrice_Unavailable(t *testing.T) {
	f := newFixture(t, withQuoter(fixedQuoter{err: errors.New("no route")}))
	code, body := f.do(t, http.MethodGet, "/api/token/"+mint+"/price", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "price")
	assert.Nil(t, body["price"])
	assert.Nil(t, body["target"])
}

func TestSimulate(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/simulate", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "unknown", body["token"])
	assert.EqualValues(t, 0.0215, body["amount"])
	assert.EqualValues(t, 0.043, body["return"])
	assert.EqualValues(t, 0.0215, body["pnl"])

	_, body = f.do(t, http.MethodPost, "/api/simulate", `{"token": "BONK", "amount": 1}`)
	assert.Equal(t, "BONK", body["token"])
	assert.EqualValues(t, 1, body["amount"])

	trades := f.ledger.RecentTrades(0)
	require.Len(t, trades, 2)
	assert.Nil(t, trades[0].EntryPrice, "simulated trades carry no entry price")
	assert.True(t, trades[0].Settled())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", "")

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "signalforge_http_requests_total")
}
