package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/httputil"
)

const (
	DefaultJupiterQuoteURL = "https://quote-api.jup.ag/v6/quote"

	// WrappedSOLMint is the quote side of every price lookup.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"

	defaultSlippageBps = 50
	lamportsExp        = 9
)

var ErrNoRoute = errors.New("no route")

// JupiterClient prices a token in SOL using the Jupiter swap quote API.
type JupiterClient struct {
	quoteURL    string
	slippageBps int
	httpClient  *http.Client
	retry       httputil.RetryConfig
}

func NewJupiterClient(quoteURL string) *JupiterClient {
	if quoteURL == "" {
		quoteURL = DefaultJupiterQuoteURL
	}
	return &JupiterClient{
		quoteURL:    quoteURL,
		slippageBps: defaultSlippageBps,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
	}
}

// Quote asks for a mint→WSOL route sized at amount (in SOL units, sent as
// base units) and returns the routed out amount in SOL.
func (j *JupiterClient) Quote(ctx context.Context, mint string, amount decimal.Decimal) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("inputMint", mint)
	q.Set("outputMint", WrappedSOLMint)
	q.Set("amount", amount.Shift(lamportsExp).Truncate(0).String())
	q.Set("slippageBps", fmt.Sprint(j.slippageBps))
	target := j.quoteURL + "?" + q.Encode()

	resp, err := httputil.Do(ctx, j.httpClient, j.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return decimal.Zero, fmt.Errorf("jupiter quote for %s: HTTP %d: %s: %w", mint, resp.StatusCode, body, ErrNoRoute)
	}

	var data struct {
		OutAmount string `json:"outAmount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return decimal.Zero, fmt.Errorf("decode: %w", err)
	}
	if data.OutAmount == "" {
		return decimal.Zero, fmt.Errorf("jupiter quote for %s: empty outAmount: %w", mint, ErrNoRoute)
	}

	out, err := decimal.NewFromString(data.OutAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse outAmount %q: %w", data.OutAmount, err)
	}
	return out.Shift(-lamportsExp), nil
}
