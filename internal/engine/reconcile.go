package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-tracker/internal/store"
)

// ReconcileFuture converts every due future transaction into a completed
// one, inside a single atomic unit spanning all of them. Each record is
// re-read inside the unit so a twin already consumed by a concurrent
// session is skipped instead of applied twice. The summed balance and
// ledger deltas land in one write regardless of how many transactions were
// due, bounding contention on the balance document.
func (e *Engine) ReconcileFuture(ctx context.Context, userID string) error {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	today := e.now()

	var (
		totalBase float64
		ledger    map[string]float64
		doneIDs   []string
	)

	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		// Reset accumulators: the unit may be retried by the store.
		totalBase = 0
		ledger = make(map[string]float64)
		doneIDs = nil

		if _, err := tx.User(); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}

		futures, err := tx.FutureTransactions()
		if err != nil {
			return err
		}

		for _, listed := range futures {
			fresh, err := tx.FutureTransaction(listed.ID)
			if errors.Is(err, store.ErrNotFound) {
				continue // consumed by another session
			}
			if err != nil {
				return err
			}
			if fresh.Date.After(today) {
				continue // still future
			}

			main, err := tx.Transaction(fresh.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if main != nil {
				main.Completed = true
				if err := tx.PutTransaction(main); err != nil {
					return err
				}
			}
			if err := tx.DeleteFutureTransaction(fresh.ID); err != nil {
				return err
			}

			sign := fresh.Type.Sign()
			totalBase += sign * fresh.BaseAmount
			ledger[fresh.Currency.Code] += sign * fresh.OrigAmount
			doneIDs = append(doneIDs, fresh.ID)
		}

		if len(doneIDs) == 0 {
			return nil
		}
		return tx.ApplyBalance(totalBase, ledger)
	})
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("Reconciling future transactions failed")
		return fmt.Errorf("reconciling future transactions: %w", err)
	}

	if len(doneIDs) == 0 {
		return nil
	}

	// Summed deltas hit the mirrors once; each reconciled id leaves the
	// future list and flips to completed in the visible list.
	e.state.Balance.Update(totalBase)
	for code, delta := range ledger {
		e.state.Balance.UpdateLedger(code, delta)
	}
	for _, id := range doneIDs {
		e.state.Future.Remove(id)
		e.state.Transactions.MarkCompleted(id)
	}

	e.log.Info().
		Int("count", len(doneIDs)).
		Float64("balance_delta", totalBase).
		Msg("Future transactions reconciled")
	return nil
}
