package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

const lamportsPerSOL = 9

// Wallet signs and submits transfers from a single keypair.
type Wallet struct {
	client *Client
	key    *Keypair
}

func NewWallet(client *Client, key *Keypair) *Wallet {
	return &Wallet{client: client, key: key}
}

func (w *Wallet) Address() string {
	return w.key.Address()
}

// Balance returns the wallet's SOL balance.
func (w *Wallet) Balance(ctx context.Context) (decimal.Decimal, error) {
	lamports, err := w.client.GetBalance(ctx, w.Address())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromUint64(lamports).Shift(-lamportsPerSOL), nil
}

// Transfer sends amount SOL to the base58 address and returns the
// transaction signature.
func (w *Wallet) Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	lamports := amount.Shift(lamportsPerSOL).Truncate(0)
	if !lamports.IsPositive() {
		return "", errors.New("amount is below one lamport")
	}

	dest, err := DecodePublicKey(to)
	if err != nil {
		return "", err
	}
	if !IsOnCurve(dest) {
		fmt.Printf("[SOLANA] Receiver %s is off-curve (program derived address)\n", to)
	}

	blockhash, err := w.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	tx, err := BuildTransfer(w.key, dest, uint64(lamports.IntPart()), blockhash)
	if err != nil {
		return "", err
	}

	sig, err := w.client.SendTransaction(ctx, base64.StdEncoding.EncodeToString(tx))
	if err != nil {
		return "", err
	}
	if sig == "" {
		// the transaction id is its first signature
		sig = base58.Encode(tx[1:65])
	}
	fmt.Printf("[SOLANA] Sent %s SOL to %s (%s)\n", amount.String(), to, sig)
	return sig, nil
}
