package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kjannette/signalforge-backend/internal/bot"
	"github.com/kjannette/signalforge-backend/internal/ledger"
	"github.com/kjannette/signalforge-backend/internal/metrics"
	"github.com/kjannette/signalforge-backend/internal/status"
	"github.com/kjannette/signalforge-backend/internal/wallet"
	"github.com/kjannette/signalforge-backend/internal/wshub"
)

const (
	maxQueryLimit = 1000
	historyLimit  = 50
	maxBodyBytes  = 1 << 16
)

// Deps are the components the dashboard API reads and drives.
type Deps struct {
	Bot       *bot.Service
	Processor *bot.Processor
	Ledger    *ledger.Ledger
	Reporter  *status.Reporter
	Wallet    *wallet.Service
	Quoter    bot.Quoter
	Hub       *wshub.Hub
	Channel   string
}

type Server struct {
	deps       Deps
	httpServer *http.Server
	apiKey     string
}

func NewServer(deps Deps, port int, apiKey, corsOrigin string) *Server {
	s := &Server{deps: deps, apiKey: apiKey}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(func(next http.Handler) http.Handler { return corsMiddleware(next, corsOrigin) })
	r.Use(s.authMiddleware)

	// Health check and metrics (no auth required)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if deps.Hub != nil {
			r.Get("/ws", deps.Hub.HandleWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			// Bot control
			r.Get("/status", s.handleStatus)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Get("/settings", s.handleGetSettings)
			r.Post("/settings", s.handleUpdateSettings)

			// Ledger
			r.Get("/history", s.handleHistory)
			r.Post("/simulate", s.handleSimulate)

			// Wallet and prices
			r.Get("/balance", s.handleBalance)
			r.Post("/send", s.handleSend)
			r.Get("/token/{address}/price", s.handleTokenPrice)
		})
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.deps.Hub != nil {
		fmt.Printf("[API] WebSocket: ws://localhost%s/api/ws\n", s.httpServer.Addr)
	}
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		// browsers cannot set headers on a WebSocket handshake
		if auth == "" && r.URL.Path == "/api/ws" {
			if t := r.URL.Query().Get("token"); t != "" {
				auth = "Bearer " + t
			}
		}
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// decodeBody reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
