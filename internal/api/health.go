package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Bot    string `json:"bot"`
	Wallet string `json:"wallet"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	walletStatus := "not_configured"
	if s.deps.Wallet != nil && s.deps.Wallet.Configured() {
		walletStatus = "initialized"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services: healthServices{
			Bot:    string(s.deps.Bot.Status()),
			Wallet: walletStatus,
		},
	})
}
