package engine

import (
	"context"
	"fmt"

	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// RunSession executes the session-start sequence: fetch-or-init the balance,
// reconcile due future transactions, load all lists into the mirrors, then
// process recurring definitions. The context is checked between steps;
// cancellation stops further local state application but atomic units
// already in flight run to completion.
func (e *Engine) RunSession(ctx context.Context, userID string, rates currency.Rates) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"fetch balance", func() error { return e.FetchBalance(ctx, userID) }},
		{"flush unlogged", func() error { return e.FlushUnlogged(ctx, userID) }},
		{"reconcile future", func() error { return e.ReconcileFuture(ctx, userID) }},
		{"load documents", func() error { return e.loadDocuments(ctx, userID) }},
		{"process recurring", func() error { return e.ProcessExpecting(ctx, userID, rates) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.run(); err != nil {
			return fmt.Errorf("session %s: %w", step.name, err)
		}
	}
	return nil
}

// loadDocuments fills the transaction, future and recurring mirrors from
// the store.
func (e *Engine) loadDocuments(ctx context.Context, userID string) error {
	return e.store.View(ctx, userID, func(tx store.Tx) error {
		trs, err := tx.Transactions()
		if err != nil {
			return err
		}
		futures, err := tx.FutureTransactions()
		if err != nil {
			return err
		}
		defs, err := tx.Expectings()
		if err != nil {
			return err
		}

		e.state.Transactions.Set(trs)
		e.state.Future.Set(futures)
		e.state.Expecting.Set(defs)
		return nil
	})
}

// FlushUnlogged replays transactions queued before the balance document
// existed through the regular save path. Entries that fail to save stay
// queued for the next session.
func (e *Engine) FlushUnlogged(ctx context.Context, userID string) error {
	var firstErr error
	for _, tr := range e.state.Unlogged.List() {
		if err := e.SaveTransaction(ctx, userID, tr); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.state.Unlogged.Remove(tr.ID)
	}
	return firstErr
}
