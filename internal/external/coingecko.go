package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/httputil"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient looks up the SOL/USD spot price and caches it.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig

	mu        sync.Mutex
	cached    decimal.Decimal
	fetchedAt time.Time
	cacheTTL  time.Duration
}

func NewCoinGeckoClient(baseURL string, cacheTTL time.Duration) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   cacheTTL,
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// SOLPrice returns the cached price while it is fresh. When a refresh
// fails, a previously fetched price is served instead of an error.
func (c *CoinGeckoClient) SOLPrice(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.cacheTTL {
		return c.cached, nil
	}

	price, err := c.fetchSOLPrice(ctx)
	if err != nil {
		if !c.fetchedAt.IsZero() {
			fmt.Printf("[PRICE] CoinGecko refresh failed, serving price from %s ago: %v\n",
				time.Since(c.fetchedAt).Round(time.Second), err)
			return c.cached, nil
		}
		return decimal.Zero, err
	}

	c.cached = price
	c.fetchedAt = time.Now()
	return price, nil
}

func (c *CoinGeckoClient) fetchSOLPrice(ctx context.Context) (decimal.Decimal, error) {
	url := c.baseURL + "/simple/price?ids=solana&vs_currencies=usd"
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data struct {
		Solana struct {
			USD decimal.Decimal `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return decimal.Zero, fmt.Errorf("decode: %w", err)
	}

	if !data.Solana.USD.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid price: %s", data.Solana.USD)
	}
	return data.Solana.USD, nil
}
