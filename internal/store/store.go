// Package store defines the persistence contract of the balance engine: a
// document store offering atomic read-then-write units per user. All reads
// inside a unit happen before all writes, and a unit either commits whole or
// leaves nothing behind. Engine logic passed into Update must stay free of
// side effects outside the callback so that store-level retries are safe.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/budget-tracker/internal/budget"
)

var (
	// ErrNotFound is returned when a referenced document is missing.
	ErrNotFound = errors.New("not found")

	// ErrUserNotInitialized is returned when the user balance document is
	// absent. Mutating operations require fetch-or-init to have run first.
	ErrUserNotInitialized = errors.New("user balance not initialized")

	// ErrPreconditionFailed is returned when the balance document exists
	// but its balance field is malformed.
	ErrPreconditionFailed = errors.New("balance precondition failed")
)

// UserDoc is the per-user balance document, the single contended resource of
// the engine. CurrentBalance is nil until fetch-or-init has written it; an
// explicit zero is a valid, initialized balance.
type UserDoc struct {
	CurrentBalance *float64           `json:"current_balance,omitempty"`
	BalanceLedger  map[string]float64 `json:"balance_ledger,omitempty"`
}

// Initialized reports whether the balance field carries a number.
func (u *UserDoc) Initialized() bool {
	return u != nil && u.CurrentBalance != nil
}

// Tx is the view of one user's documents inside an atomic unit.
type Tx interface {
	// User returns the balance document, ErrNotFound when absent.
	User() (*UserDoc, error)
	// PutUser writes the balance document.
	PutUser(*UserDoc) error
	// ApplyBalance increments the balance and the per-currency ledger in
	// one write. Ledger keys are created on first write. Returns
	// ErrUserNotInitialized when the balance field is not set.
	ApplyBalance(baseDelta float64, ledgerDeltas map[string]float64) error

	Transaction(id string) (*budget.Transaction, error)
	Transactions() ([]*budget.Transaction, error)
	PutTransaction(*budget.Transaction) error
	DeleteTransaction(id string) error

	FutureTransaction(id string) (*budget.Transaction, error)
	FutureTransactions() ([]*budget.Transaction, error)
	PutFutureTransaction(*budget.Transaction) error
	DeleteFutureTransaction(id string) error

	Expecting(id string) (*budget.ExpectingTransaction, error)
	Expectings() ([]*budget.ExpectingTransaction, error)
	PutExpecting(*budget.ExpectingTransaction) error
	DeleteExpecting(id string) error
	// AppendProcessedMonth adds a month key to a definition's processed
	// set. It reports false when the key was already present, which lets
	// the recurring processor detect a concurrent materialization inside
	// the atomic unit.
	AppendProcessedMonth(id, month string) (bool, error)
}

// Store scopes atomic units to a single user, serializing conflicting
// concurrent mutations of that user's balance document.
type Store interface {
	// Update runs fn inside an atomic read-then-write unit. Any error
	// aborts the whole unit with no partial writes.
	Update(ctx context.Context, userID string, fn func(Tx) error) error
	// View runs fn with read-only access to the user's documents.
	View(ctx context.Context, userID string, fn func(Tx) error) error
	Close() error
}
