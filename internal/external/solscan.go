package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/httputil"
	"github.com/kjannette/signalforge-backend/internal/models"
)

const DefaultSolscanURL = "https://public-api.solscan.io"

// SolscanClient lists the SPL token balances held by a wallet.
type SolscanClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewSolscanClient(baseURL, apiToken string) *SolscanClient {
	if baseURL == "" {
		baseURL = DefaultSolscanURL
	}
	return &SolscanClient{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   1 * time.Second,
			MaxDelay:    3 * time.Second,
		},
	}
}

type solscanToken struct {
	TokenAddress string              `json:"tokenAddress"`
	TokenSymbol  string              `json:"tokenSymbol"`
	TokenName    string              `json:"tokenName"`
	TokenPrice   decimal.NullDecimal `json:"tokenPrice"`
	TokenAmount  struct {
		UIAmount decimal.NullDecimal `json:"uiAmount"`
		Decimals *int                `json:"decimals"`
	} `json:"tokenAmount"`
}

// Tokens returns holdings with a positive balance.
func (s *SolscanClient) Tokens(ctx context.Context, owner string) ([]models.TokenHolding, error) {
	target := s.baseURL + "/account/tokens?account=" + url.QueryEscape(owner)
	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if s.apiToken != "" {
			req.Header.Set("token", s.apiToken)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("solscan tokens: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solscan returned status %d", resp.StatusCode)
	}

	var raw []solscanToken
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make([]models.TokenHolding, 0, len(raw))
	for _, t := range raw {
		bal := t.TokenAmount.UIAmount.Decimal
		if !t.TokenAmount.UIAmount.Valid || !bal.IsPositive() {
			continue
		}
		h := models.TokenHolding{
			Address:  t.TokenAddress,
			Symbol:   orUnknown(t.TokenSymbol),
			Name:     orUnknown(t.TokenName),
			Balance:  bal,
			Decimals: 9,
		}
		if t.TokenAmount.Decimals != nil {
			h.Decimals = *t.TokenAmount.Decimals
		}
		if t.TokenPrice.Valid {
			h.PriceUSD = t.TokenPrice.Decimal
			h.ValueUSD = bal.Mul(t.TokenPrice.Decimal)
		}
		out = append(out, h)
	}
	return out, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
