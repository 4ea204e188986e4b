// Package engine implements the balance reconciliation engine: atomic
// create/delete of transactions with consistent balance and ledger updates,
// materialization of recurring definitions, and reconciliation of due
// future transactions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/state"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Engine drives all balance-mutating operations for one session. Every
// mutation runs as one atomic store unit; the local mirrors in st are
// updated only after the unit commits.
type Engine struct {
	store store.Store
	state *state.State
	log   zerolog.Logger

	// now is injectable so tests can pin "today".
	now func() civil.Date

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates an engine over the given store and session mirrors.
func New(st store.Store, mirrors *state.State, log zerolog.Logger) *Engine {
	return &Engine{
		store:     st,
		state:     mirrors,
		log:       log,
		now:       func() civil.Date { return civil.DateOf(time.Now()) },
		userLocks: make(map[string]*sync.Mutex),
	}
}

// State exposes the session mirrors the engine maintains.
func (e *Engine) State() *state.State { return e.state }

// userLock returns the per-user mutex serializing the recurring processor
// and the future reconciler.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userID] = l
	}
	return l
}

// Draft is a user-entered transaction before it is realized.
type Draft struct {
	Amount       float64
	Type         budget.Type
	Category     budget.Category
	Description  string
	Date         civil.Date
	CurrencyCode string
}

// BuildTransaction realizes a draft: resolves the currency, derives the base
// amount from the rates snapshot and computes the signature. Amounts carry
// no sign; the type does.
func BuildTransaction(d Draft, rates currency.Rates, baseCode string) (*budget.Transaction, error) {
	if d.Amount < 0 {
		return nil, fmt.Errorf("amount must not be negative, got %v", d.Amount)
	}
	if !d.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", d.Type)
	}
	cur, ok := currency.Lookup(d.CurrencyCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", currency.ErrUnknownCurrency, d.CurrencyCode)
	}

	rate := 1.0
	baseAmount := d.Amount
	if d.CurrencyCode != baseCode {
		rate = rates[d.CurrencyCode]
		converted, err := currency.ToBase(d.Amount, d.CurrencyCode, rate)
		if err != nil {
			return nil, err
		}
		baseAmount = converted
	}

	return &budget.Transaction{
		ID:           uuid.New().String(),
		Signature:    budget.Signature(d.Amount, d.Type, d.Category, d.Description, d.Date.String(), d.CurrencyCode),
		OrigAmount:   d.Amount,
		BaseAmount:   baseAmount,
		Currency:     cur,
		Type:         d.Type,
		Date:         d.Date,
		Category:     d.Category,
		Description:  d.Description,
		ExchangeRate: rate,
	}, nil
}

// QueueUnlogged parks a transaction entered before the balance document
// exists. It stays in memory with no balance effect until the session flush
// replays it through the regular save path.
func (e *Engine) QueueUnlogged(tr *budget.Transaction) {
	e.state.Unlogged.Add(tr)
}

// IsDuplicate reports whether a signature matches a loaded transaction.
// Collisions are surfaced as a confirmation prompt, not a rejection.
func (e *Engine) IsDuplicate(signature string) bool {
	return e.state.Transactions.IsDuplicate(signature)
}

// SaveTransaction persists a transaction and applies its balance effect in
// one atomic unit. Transactions dated strictly after today are written to
// the future collection as well and leave the balance untouched until
// reconciled. The user balance document must exist; otherwise the whole
// operation fails with ErrUserNotInitialized and nothing is written.
func (e *Engine) SaveTransaction(ctx context.Context, userID string, tr *budget.Transaction) error {
	today := e.now()
	isFuture := tr.Date.After(today)
	tr.Completed = !isFuture
	sign := tr.Type.Sign()

	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		user, err := tx.User()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrUserNotInitialized
			}
			return err
		}

		if !user.Initialized() {
			return store.ErrUserNotInitialized
		}

		if err := tx.PutTransaction(tr); err != nil {
			return err
		}

		if isFuture {
			return tx.PutFutureTransaction(tr)
		}

		return tx.ApplyBalance(sign*tr.BaseAmount, map[string]float64{
			tr.Currency.Code: sign * tr.OrigAmount,
		})
	})
	if err != nil {
		e.log.Error().Err(err).Str("transaction_id", tr.ID).Str("user_id", userID).Msg("Saving transaction failed")
		return fmt.Errorf("saving transaction %s: %w", tr.ID, err)
	}

	// Mirrors are touched only after the commit.
	e.state.Transactions.Append(tr)
	if isFuture {
		e.state.Future.Add(tr)
	} else {
		e.state.Balance.Update(sign * tr.BaseAmount)
		e.state.Balance.UpdateLedger(tr.Currency.Code, sign*tr.OrigAmount)
	}

	e.log.Debug().
		Str("transaction_id", tr.ID).
		Bool("future", isFuture).
		Msg("Transaction saved")
	return nil
}

// DeleteTransaction removes a transaction and reverses its balance effect in
// one atomic unit. A transaction that never completed (still future) has its
// future twin deleted instead, and the balance stays untouched since its
// effect was never applied.
func (e *Engine) DeleteTransaction(ctx context.Context, userID, id string) error {
	var deleted *budget.Transaction

	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		deleted = nil

		tr, err := tx.Transaction(id)
		if err != nil {
			return err
		}
		user, err := tx.User()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrUserNotInitialized
			}
			return err
		}
		if !user.Initialized() {
			return store.ErrPreconditionFailed
		}

		if err := tx.DeleteTransaction(id); err != nil {
			return err
		}
		deleted = tr

		if !tr.Completed {
			return tx.DeleteFutureTransaction(id)
		}

		sign := tr.Type.Sign()
		return tx.ApplyBalance(-sign*tr.BaseAmount, map[string]float64{
			tr.Currency.Code: -sign * tr.OrigAmount,
		})
	})
	if err != nil {
		e.log.Error().Err(err).Str("transaction_id", id).Str("user_id", userID).Msg("Deleting transaction failed")
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}

	e.state.Transactions.Remove(id)
	if !deleted.Completed {
		e.state.Future.Remove(id)
		return nil
	}
	sign := deleted.Type.Sign()
	e.state.Balance.Update(-sign * deleted.BaseAmount)
	e.state.Balance.UpdateLedger(deleted.Currency.Code, -sign*deleted.OrigAmount)
	return nil
}

// FetchBalance loads the user balance document into the mirror, creating it
// as {0, {}} when absent. Guarded by the mirror's fetched flag: repeat calls
// in one session are no-ops.
func (e *Engine) FetchBalance(ctx context.Context, userID string) error {
	if e.state.Balance.Fetched() {
		return nil
	}

	var current float64
	var ledger map[string]float64

	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		current, ledger = 0, nil

		user, err := tx.User()
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if user.Initialized() {
			current = *user.CurrentBalance
			ledger = user.BalanceLedger
			return nil
		}

		zero := 0.0
		return tx.PutUser(&store.UserDoc{CurrentBalance: &zero, BalanceLedger: map[string]float64{}})
	})
	if err != nil {
		return fmt.Errorf("fetching balance for %s: %w", userID, err)
	}

	e.state.Balance.Set(current, ledger)
	e.state.Balance.MarkFetched()
	return nil
}

// SaveExpecting persists a recurring definition. The pay day must be
// serviceable in every month.
func (e *Engine) SaveExpecting(ctx context.Context, userID string, def *budget.ExpectingTransaction) error {
	if !budget.ValidPayDay(def.PayDay) {
		return fmt.Errorf("pay day %d out of range 1..%d", def.PayDay, budget.MaxPayDay)
	}
	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	if def.Signature == "" {
		def.Signature = budget.ExpectingSignature(def)
	}

	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		return tx.PutExpecting(def)
	})
	if err != nil {
		return fmt.Errorf("saving recurring definition %s: %w", def.ID, err)
	}
	e.state.Expecting.Add(def)
	return nil
}

// DeleteExpecting removes a recurring definition. Already-materialized
// transactions stay.
func (e *Engine) DeleteExpecting(ctx context.Context, userID, id string) error {
	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		if _, err := tx.Expecting(id); err != nil {
			return err
		}
		return tx.DeleteExpecting(id)
	})
	if err != nil {
		return fmt.Errorf("deleting recurring definition %s: %w", id, err)
	}
	e.state.Expecting.Remove(id)
	return nil
}
