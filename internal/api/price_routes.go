package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kjannette/signalforge-backend/internal/tokenaddr"
)

type tokenPriceJSON struct {
	Address string           `json:"address"`
	Price   *decimal.Decimal `json:"price"`
	Target  *decimal.Decimal `json:"target"`
}

// handleTokenPrice quotes address at the configured trade size. When no
// route is available price and target are null.
func (s *Server) handleTokenPrice(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !tokenaddr.ValidLength(address) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	settings := s.deps.Bot.Settings()
	out := tokenPriceJSON{Address: address}

	price, err := s.deps.Quoter.Quote(r.Context(), address, settings.TradeAmount)
	if err != nil || !price.IsPositive() {
		fmt.Printf("[API] Price unavailable for %s: %v\n", address, err)
		writeJSON(w, http.StatusOK, out)
		return
	}

	target := settings.Target(price)
	out.Price = &price
	out.Target = &target
	writeJSON(w, http.StatusOK, out)
}
