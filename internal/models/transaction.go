package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionSend    TransactionKind = "send"
	TransactionReceive TransactionKind = "receive"
)

// TransactionRecord is an explicit wallet transfer. Immutable once recorded.
type TransactionRecord struct {
	ID           uuid.UUID       `json:"id"`
	CreatedAt    time.Time       `json:"createdAt"`
	Kind         TransactionKind `json:"kind"`
	Asset        string          `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty string          `json:"counterparty,omitempty"`
	ExternalRef  string          `json:"externalRef,omitempty"`
}

// TokenHolding is one SPL token balance reported for the wallet.
type TokenHolding struct {
	Address  string          `json:"address"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
	Decimals int             `json:"decimals"`
	PriceUSD decimal.Decimal `json:"price"`
	ValueUSD decimal.Decimal `json:"value"`
}
