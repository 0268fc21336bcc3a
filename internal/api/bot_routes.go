package api

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/bot"
	"github.com/kjannette/signalforge-backend/internal/status"
)

type statusResponse struct {
	status.Snapshot
	WalletInitialized bool            `json:"wallet_initialized"`
	WalletAddress     *string         `json:"wallet_address"`
	SOLBalance        decimal.Decimal `json:"sol_balance"`
	Settings          settingsJSON    `json:"settings"`
}

type settingsJSON struct {
	TradeAmount      decimal.Decimal `json:"trade_amount"`
	TargetMultiplier decimal.Decimal `json:"target_multiplier"`
	Channel          string          `json:"channel"`
}

func (s *Server) settingsView() settingsJSON {
	cur := s.deps.Bot.Settings()
	channel := s.deps.Channel
	if channel == "" {
		channel = "Not configured"
	}
	return settingsJSON{
		TradeAmount:      cur.TradeAmount,
		TargetMultiplier: cur.TargetMultiplier,
		Channel:          channel,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := statusResponse{
		Snapshot: s.deps.Reporter.Snapshot(ctx),
		Settings: s.settingsView(),
	}
	if s.deps.Wallet.Configured() {
		addr := s.deps.Wallet.Address()
		resp.WalletInitialized = true
		resp.WalletAddress = &addr
		resp.SOLBalance = s.deps.Wallet.SOLBalance(ctx)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": s.deps.Bot.Start()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": s.deps.Bot.Stop()})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settingsView())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch bot.SettingsPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.deps.Bot.UpdateSettings(patch); err != nil {
		if errors.Is(err, bot.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Settings updated successfully",
		"settings": s.settingsView(),
	})
}
