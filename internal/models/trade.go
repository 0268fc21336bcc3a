package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeRecord is a simulated trade opened by the signal pipeline.
// ReturnedAmount is nil until the trade is settled and is set exactly once.
type TradeRecord struct {
	ID             uuid.UUID        `json:"id"`
	CreatedAt      time.Time        `json:"createdAt"`
	Token          string           `json:"token"`
	InvestedAmount decimal.Decimal  `json:"investedAmount"`
	EntryPrice     *decimal.Decimal `json:"entryPrice,omitempty"`
	ReturnedAmount *decimal.Decimal `json:"returnedAmount,omitempty"`
}

func (t TradeRecord) Settled() bool {
	return t.ReturnedAmount != nil
}

// Profit is returned minus invested; zero for open trades.
func (t TradeRecord) Profit() decimal.Decimal {
	if t.ReturnedAmount == nil {
		return decimal.Zero
	}
	return t.ReturnedAmount.Sub(t.InvestedAmount)
}

// PnL is the aggregate over all retained trade records.
type PnL struct {
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Invested   decimal.Decimal `json:"invested"`
	Returned   decimal.Decimal `json:"returned"`
}
