// Package api provides the HTTP server for the ajofi daemon.
// It exposes every protocol operation (staking, vouching, purse lifecycle)
// plus health and Prometheus metrics endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jerrynoah96/ajofi/internal/app/credits"
	"github.com/jerrynoah96/ajofi/internal/app/purse"
	"github.com/jerrynoah96/ajofi/internal/app/tokens"
	"github.com/jerrynoah96/ajofi/internal/app/validator"
	"github.com/jerrynoah96/ajofi/internal/infra/sqlite"
)

// Server is the ajofi HTTP API server.
type Server struct {
	system     *credits.System
	registry   *tokens.Registry
	bank       *tokens.Bank
	validators *validator.Factory
	purses     *purse.Factory
	db         *sqlite.DB // nil when running without persistence

	metricsEnabled bool
}

// NewServer creates a new API server over the protocol services.
func NewServer(system *credits.System, registry *tokens.Registry, bank *tokens.Bank, validators *validator.Factory, purses *purse.Factory, db *sqlite.DB) *Server {
	return &Server{
		system:     system,
		registry:   registry,
		bank:       bank,
		validators: validators,
		purses:     purses,
		db:         db,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", s.handleListTokens)
			r.Post("/whitelist", s.handleSetWhitelist)
			r.Post("/mint", s.handleMint)
			r.Get("/{token}/balance/{account}", s.handleTokenBalance)
		})

		r.Route("/credits", func(r chi.Router) {
			r.Post("/stake", s.handleStake)
			r.Post("/unstake", s.handleUnstake)
			r.Post("/assign", s.handleAssignCredits)
			r.Post("/reduce", s.handleReduceCredits)
			r.Get("/{user}/balance", s.handleCreditBalance)
			r.Get("/{user}/ledger", s.handleLedger)
		})

		r.Route("/validators", func(r chi.Router) {
			r.Get("/", s.handleListValidators)
			r.Post("/", s.handleCreateValidator)
			r.Post("/config", s.handleUpdateValidatorConfig)
			r.Get("/{id}", s.handleGetValidator)
			r.Post("/{id}/vouch", s.handleVouch)
			r.Post("/{id}/invalidate", s.handleInvalidate)
			r.Post("/{id}/stake", s.handleAddStake)
			r.Post("/{id}/withdraw", s.handleWithdrawStake)
			r.Get("/{id}/defaults", s.handleDefaultHistory)
			r.Get("/{id}/reputation", s.handleReputation)
		})

		r.Route("/purses", func(r chi.Router) {
			r.Get("/", s.handleListPurses)
			r.Post("/", s.handleCreatePurse)
			r.Get("/{id}", s.handleGetPurse)
			r.Post("/{id}/join", s.handleJoin)
			r.Post("/{id}/contribute", s.handleContribute)
			r.Post("/{id}/resolve", s.handleResolve)
			r.Post("/{id}/terminate", s.handleTerminate)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}
