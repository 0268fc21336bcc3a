package solana

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/mr-tron/base58"
)

const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

// Client is a thin JSON-RPC client for the handful of Solana methods the
// wallet needs.
type Client struct {
	rpc        *rpc.Client
	commitment string
}

func Dial(ctx context.Context, url string) (*Client, error) {
	if url == "" {
		url = DefaultRPCURL
	}
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial solana rpc: %w", err)
	}
	return &Client{rpc: c, commitment: "confirmed"}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) config() map[string]any {
	return map[string]any{"commitment": c.commitment}
}

// GetBalance returns the account balance in lamports.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var res struct {
		Value uint64 `json:"value"`
	}
	if err := c.rpc.CallContext(ctx, &res, "getBalance", address, c.config()); err != nil {
		return 0, fmt.Errorf("getBalance: %w", err)
	}
	return res.Value, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) ([32]byte, error) {
	var res struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	var hash [32]byte
	if err := c.rpc.CallContext(ctx, &res, "getLatestBlockhash", c.config()); err != nil {
		return hash, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	raw, err := base58.Decode(res.Value.Blockhash)
	if err != nil || len(raw) != 32 {
		return hash, fmt.Errorf("getLatestBlockhash: bad blockhash %q", res.Value.Blockhash)
	}
	copy(hash[:], raw)
	return hash, nil
}

// SendTransaction submits a base64 encoded signed transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, encoded string) (string, error) {
	var sig string
	opts := map[string]any{
		"encoding":            "base64",
		"preflightCommitment": c.commitment,
	}
	if err := c.rpc.CallContext(ctx, &sig, "sendTransaction", encoded, opts); err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}
	return sig, nil
}
