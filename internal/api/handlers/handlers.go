package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/engine"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	engine *engine.Engine
	rates  currency.Rates
	base   string
	userID string
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(e *engine.Engine, rates currency.Rates, base, userID string, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{engine: e, rates: rates, base: base, userID: userID, log: log}
}

type createTransactionRequest struct {
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Currency    string  `json:"currency"`
	// Force saves even when an identical transaction already exists.
	Force bool `json:"force"`
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := civil.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
		return
	}

	tr, err := engine.BuildTransaction(engine.Draft{
		Amount:       req.Amount,
		Type:         budget.Type(req.Type),
		Category:     budget.Category(req.Category),
		Description:  req.Description,
		Date:         date,
		CurrencyCode: req.Currency,
	}, h.rates, h.base)
	if err != nil {
		// Everything BuildTransaction rejects is bad input.
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !req.Force && h.engine.IsDuplicate(tr.Signature) {
		middleware.WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"duplicate": true,
			"signature": tr.Signature,
		})
		return
	}

	if err := h.engine.SaveTransaction(r.Context(), h.userID, tr); err != nil {
		h.log.Error().Err(err).Msg("Failed to save transaction")
		writeEngineError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tr)
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	transactions := h.engine.State().Transactions.List()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	if err := h.engine.DeleteTransaction(r.Context(), h.userID, id); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		writeEngineError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// BalanceHandler handles balance endpoints.
type BalanceHandler struct {
	engine *engine.Engine
	userID string
	log    zerolog.Logger
}

// NewBalanceHandler creates a new balance handler.
func NewBalanceHandler(e *engine.Engine, userID string, log zerolog.Logger) *BalanceHandler {
	return &BalanceHandler{engine: e, userID: userID, log: log}
}

// Get handles GET /api/balance
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.FetchBalance(r.Context(), h.userID); err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch balance")
		writeEngineError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"current_balance": h.engine.State().Balance.Current(),
		"balance_ledger":  h.engine.State().Balance.Ledger(),
	})
}

// ExpectingHandler handles recurring-definition endpoints.
type ExpectingHandler struct {
	engine *engine.Engine
	rates  currency.Rates
	base   string
	userID string
	log    zerolog.Logger
}

// NewExpectingHandler creates a new recurring-definitions handler.
func NewExpectingHandler(e *engine.Engine, rates currency.Rates, base, userID string, log zerolog.Logger) *ExpectingHandler {
	return &ExpectingHandler{engine: e, rates: rates, base: base, userID: userID, log: log}
}

type createExpectingRequest struct {
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	PayDay      int     `json:"pay_day"`
	StartDate   string  `json:"start_date"`
	Currency    string  `json:"currency"`
}

// Create handles POST /api/expecting
func (h *ExpectingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExpectingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !budget.ValidPayDay(req.PayDay) {
		middleware.WriteError(w, http.StatusBadRequest, "Pay day must be between 1 and 28")
		return
	}
	if req.Amount < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Amount must not be negative")
		return
	}

	start, err := civil.ParseDate(req.StartDate)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Start date must be YYYY-MM-DD")
		return
	}

	cur, ok := currency.Lookup(req.Currency)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown currency")
		return
	}

	typ := budget.Type(req.Type)
	if !typ.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Type must be income or expense")
		return
	}

	rate := h.rates[req.Currency]
	if req.Currency == h.base || rate == 0 {
		rate = 1
	}

	def := &budget.ExpectingTransaction{
		OrigAmount:   req.Amount,
		BaseAmount:   req.Amount / rate,
		Currency:     cur,
		Type:         typ,
		PayDay:       req.PayDay,
		StartDate:    start,
		Category:     budget.Category(req.Category),
		Description:  req.Description,
		ExchangeRate: rate,
	}

	if err := h.engine.SaveExpecting(r.Context(), h.userID, def); err != nil {
		h.log.Error().Err(err).Msg("Failed to save recurring definition")
		writeEngineError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, def)
}

// List handles GET /api/expecting
func (h *ExpectingHandler) List(w http.ResponseWriter, r *http.Request) {
	definitions := h.engine.State().Expecting.List()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expecting": definitions,
		"count":     len(definitions),
	})
}

// Delete handles DELETE /api/expecting/{id}
func (h *ExpectingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Definition ID is required")
		return
	}

	if err := h.engine.DeleteExpecting(r.Context(), h.userID, id); err != nil {
		h.log.Error().Err(err).Str("definition_id", id).Msg("Failed to delete recurring definition")
		writeEngineError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// SessionHandler handles session endpoints.
type SessionHandler struct {
	engine *engine.Engine
	rates  currency.Rates
	userID string
	log    zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(e *engine.Engine, rates currency.Rates, userID string, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{engine: e, rates: rates, userID: userID, log: log}
}

// Run handles POST /api/session/run
func (h *SessionHandler) Run(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RunSession(r.Context(), h.userID, h.rates); err != nil {
		h.log.Error().Err(err).Msg("Session run failed")
		writeEngineError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"current_balance": h.engine.State().Balance.Current(),
		"transactions":    len(h.engine.State().Transactions.List()),
		"future":          len(h.engine.State().Future.List()),
		"expecting":       len(h.engine.State().Expecting.List()),
	})
}

// writeEngineError maps engine errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, currency.ErrUnknownCurrency):
		middleware.WriteError(w, http.StatusBadRequest, "Unknown currency")
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrUserNotInitialized):
		middleware.WriteError(w, http.StatusConflict, "User balance not initialized")
	case errors.Is(err, store.ErrPreconditionFailed):
		middleware.WriteError(w, http.StatusPreconditionFailed, "Balance document is malformed")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
