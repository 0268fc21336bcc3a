package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/wallet"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Wallet.Configured() {
		writeError(w, http.StatusBadRequest, "Wallet not initialized")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Wallet.Balance(r.Context()))
}

type sendRequest struct {
	Receiver string          `json:"receiver"`
	Amount   decimal.Decimal `json:"amount"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.deps.Wallet.Send(r.Context(), req.Receiver, req.Amount)
	switch {
	case errors.Is(err, wallet.ErrWalletNotConfigured):
		writeError(w, http.StatusBadRequest, "Wallet not initialized")
		return
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidReceiver):
		writeError(w, http.StatusBadRequest, "Invalid receiver or amount")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to send: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("✅ Sent %s SOL successfully", tx.Amount),
		"tx_hash": tx.ExternalRef,
	})
}
