// Package api assembles the HTTP surface over the balance engine.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/handlers"
	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/engine"
)

// Options carries everything the router needs beyond the engine itself.
type Options struct {
	Rates        currency.Rates
	BaseCurrency string
	UserID       string
}

// NewRouter builds the chi router with all endpoints and middleware wired.
func NewRouter(e *engine.Engine, opts Options, log zerolog.Logger) http.Handler {
	transactions := handlers.NewTransactionsHandler(e, opts.Rates, opts.BaseCurrency, opts.UserID, log)
	balance := handlers.NewBalanceHandler(e, opts.UserID, log)
	expecting := handlers.NewExpectingHandler(e, opts.Rates, opts.BaseCurrency, opts.UserID, log)
	session := handlers.NewSessionHandler(e, opts.Rates, opts.UserID, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactions.List)
			r.Post("/", transactions.Create)
			r.Delete("/{id}", transactions.Delete)
		})

		r.Get("/balance", balance.Get)

		r.Route("/expecting", func(r chi.Router) {
			r.Get("/", expecting.List)
			r.Post("/", expecting.Create)
			r.Delete("/{id}", expecting.Delete)
		})

		r.Post("/session/run", session.Run)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return r
}
