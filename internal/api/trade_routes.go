package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/models"
)

const dateLayout = "2006-01-02 15:04:05"

type tradeJSON struct {
	ID     string           `json:"id"`
	Date   string           `json:"date"`
	T      int64            `json:"t"`
	Token  string           `json:"token"`
	Amount decimal.Decimal  `json:"amount"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Return *decimal.Decimal `json:"return,omitempty"`
}

type transactionJSON struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	T        int64           `json:"t"`
	Type     string          `json:"type"`
	Asset    string          `json:"asset"`
	Amount   decimal.Decimal `json:"amount"`
	Receiver string          `json:"receiver,omitempty"`
	TxHash   string          `json:"tx_hash,omitempty"`
}

func toTradeJSON(t models.TradeRecord) tradeJSON {
	return tradeJSON{
		ID:     t.ID.String(),
		Date:   t.CreatedAt.UTC().Format(dateLayout),
		T:      t.CreatedAt.UnixMilli(),
		Token:  t.Token,
		Amount: t.InvestedAmount,
		Price:  t.EntryPrice,
		Return: t.ReturnedAmount,
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, historyLimit)

	trades := s.deps.Ledger.RecentTrades(limit)
	txs := s.deps.Ledger.RecentTransactions(limit)

	outTrades := make([]tradeJSON, len(trades))
	for i, t := range trades {
		outTrades[i] = toTradeJSON(t)
	}

	outTxs := make([]transactionJSON, len(txs))
	for i, tx := range txs {
		outTxs[i] = transactionJSON{
			ID:       tx.ID.String(),
			Date:     tx.CreatedAt.UTC().Format(dateLayout),
			T:        tx.CreatedAt.UnixMilli(),
			Type:     string(tx.Kind),
			Asset:    tx.Asset,
			Amount:   tx.Amount,
			Receiver: tx.Counterparty,
			TxHash:   tx.ExternalRef,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades":       outTrades,
		"transactions": outTxs,
	})
}

type simulateRequest struct {
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	res := s.deps.Processor.Simulate(r.Context(), req.Token, req.Amount)
	if res.Trade == nil || res.Outcome == nil {
		writeError(w, http.StatusInternalServerError, "simulation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": res.Outcome.Success,
		"token":   res.Trade.Token,
		"amount":  res.Trade.InvestedAmount,
		"return":  res.Outcome.Returned,
		"pnl":     res.Outcome.Returned.Sub(res.Trade.InvestedAmount),
	})
}
