package engine

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// ProcessExpecting materializes missing months for every loaded recurring
// definition, then the current month when its pay day has passed. Runs are
// serialized per user; a month is marked processed inside an atomic unit
// that re-checks membership, so a second run materializes nothing.
func (e *Engine) ProcessExpecting(ctx context.Context, userID string, rates currency.Rates) error {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	today := e.now()
	currentKey := budget.MonthKey(today)

	for _, def := range e.state.Expecting.List() {
		processed := def.Processed()

		// Backfill: every month from the start month through last month
		// gets one transaction dated on the pay day. Those dates are past
		// by construction, so the save path never treats them as future.
		for _, month := range budget.MissingMonths(def.StartDate, today, processed) {
			date, err := budget.MonthDay(month, def.PayDay)
			if err != nil {
				return err
			}
			if err := e.materialize(ctx, userID, def, date, month, rates); err != nil {
				return err
			}
		}

		// The current month uses today's date rather than the pay day:
		// when processing happens after the pay day, dating the entry on
		// the pay day would fabricate a date the money did not move on,
		// and dating it ahead would make it future within its own month.
		if today.Day >= def.PayDay && !processed[currentKey] {
			if err := e.materialize(ctx, userID, def, today, currentKey, rates); err != nil {
				return err
			}
		}
	}
	return nil
}

// materialize creates one realized transaction from a recurring definition
// and marks its month processed. The month mark runs in its own atomic unit
// and re-checks membership, so a concurrent session that won the race is
// detected rather than doubled.
func (e *Engine) materialize(ctx context.Context, userID string, def *budget.ExpectingTransaction, date civil.Date, month string, rates currency.Rates) error {
	// Prefer the live rate at materialization time; without one, fall back
	// to the base amount captured when the definition was created.
	rate := rates[def.Currency.Code]
	baseAmount := def.BaseAmount
	if rate != 0 {
		baseAmount = def.OrigAmount / rate
	} else {
		rate = 1
	}

	tr := &budget.Transaction{
		ID:           uuid.New().String(),
		Signature:    budget.Signature(def.OrigAmount, def.Type, def.Category, def.Description, date.String(), def.Currency.Code),
		OrigAmount:   def.OrigAmount,
		BaseAmount:   baseAmount,
		Currency:     def.Currency,
		Type:         def.Type,
		Date:         date,
		Category:     def.Category,
		Description:  def.Description,
		ExchangeRate: rate,
	}

	if err := e.SaveTransaction(ctx, userID, tr); err != nil {
		return fmt.Errorf("materializing %s for %s: %w", def.ID, month, err)
	}

	added := false
	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		var err error
		added, err = tx.AppendProcessedMonth(def.ID, month)
		return err
	})
	if err != nil {
		return fmt.Errorf("marking %s processed for %s: %w", month, def.ID, err)
	}
	if !added {
		e.log.Warn().
			Str("definition_id", def.ID).
			Str("month", month).
			Msg("Month was already marked processed by a concurrent session")
	}

	e.state.Expecting.AppendProcessedMonth(def.ID, month)
	e.log.Info().
		Str("definition_id", def.ID).
		Str("month", month).
		Str("date", date.String()).
		Msg("Recurring transaction materialized")
	return nil
}
