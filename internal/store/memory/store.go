// Package memory is an in-memory implementation of the engine's store
// contract. It stages every atomic unit against a copy of the user's state
// and commits the copy only when the unit callback succeeds, so a failed
// unit leaves nothing behind. Data is lost on restart - tests and demo runs
// only; durable setups use the bolt store.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/store"
)

var errReadOnly = errors.New("write inside read-only view")

// Store is safe for concurrent use. One mutex serializes all units, which
// matches the single-contended-resource model of the engine.
type Store struct {
	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	user         *store.UserDoc
	transactions map[string]*budget.Transaction
	future       map[string]*budget.Transaction
	expecting    map[string]*budget.ExpectingTransaction
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{users: make(map[string]*userState)}
}

// Update implements store.Store. fn runs against a staged copy; the copy
// replaces the live state only on success.
func (s *Store) Update(ctx context.Context, userID string, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := cloneState(s.users[userID])
	if err := fn(&memTx{state: staged}); err != nil {
		return err
	}
	s.users[userID] = staged
	return nil
}

// View implements store.Store. Writes inside a view fail.
func (s *Store) View(ctx context.Context, userID string, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&memTx{state: cloneState(s.users[userID]), readOnly: true})
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

func cloneState(st *userState) *userState {
	out := &userState{
		transactions: make(map[string]*budget.Transaction),
		future:       make(map[string]*budget.Transaction),
		expecting:    make(map[string]*budget.ExpectingTransaction),
	}
	if st == nil {
		return out
	}
	if st.user != nil {
		out.user = cloneUser(st.user)
	}
	for id, tr := range st.transactions {
		out.transactions[id] = cloneTransaction(tr)
	}
	for id, tr := range st.future {
		out.future[id] = cloneTransaction(tr)
	}
	for id, e := range st.expecting {
		out.expecting[id] = cloneExpecting(e)
	}
	return out
}

func cloneUser(u *store.UserDoc) *store.UserDoc {
	out := &store.UserDoc{}
	if u.CurrentBalance != nil {
		bal := *u.CurrentBalance
		out.CurrentBalance = &bal
	}
	if u.BalanceLedger != nil {
		out.BalanceLedger = make(map[string]float64, len(u.BalanceLedger))
		for code, v := range u.BalanceLedger {
			out.BalanceLedger[code] = v
		}
	}
	return out
}

func cloneTransaction(tr *budget.Transaction) *budget.Transaction {
	cp := *tr
	return &cp
}

func cloneExpecting(e *budget.ExpectingTransaction) *budget.ExpectingTransaction {
	cp := *e
	cp.ProcessedMonths = append([]string(nil), e.ProcessedMonths...)
	return &cp
}

// memTx operates on a staged copy, so its writes are invisible until the
// unit commits.
type memTx struct {
	state    *userState
	readOnly bool
}

func (t *memTx) User() (*store.UserDoc, error) {
	if t.state.user == nil {
		return nil, store.ErrNotFound
	}
	return cloneUser(t.state.user), nil
}

func (t *memTx) PutUser(u *store.UserDoc) error {
	if t.readOnly {
		return errReadOnly
	}
	t.state.user = cloneUser(u)
	return nil
}

func (t *memTx) ApplyBalance(baseDelta float64, ledgerDeltas map[string]float64) error {
	if t.readOnly {
		return errReadOnly
	}
	if !t.state.user.Initialized() {
		return store.ErrUserNotInitialized
	}
	*t.state.user.CurrentBalance += baseDelta
	if t.state.user.BalanceLedger == nil {
		t.state.user.BalanceLedger = make(map[string]float64)
	}
	for code, delta := range ledgerDeltas {
		t.state.user.BalanceLedger[code] += delta
	}
	return nil
}

func (t *memTx) Transaction(id string) (*budget.Transaction, error) {
	tr, ok := t.state.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tr), nil
}

func (t *memTx) Transactions() ([]*budget.Transaction, error) {
	out := make([]*budget.Transaction, 0, len(t.state.transactions))
	for _, tr := range t.state.transactions {
		out = append(out, cloneTransaction(tr))
	}
	return out, nil
}

func (t *memTx) PutTransaction(tr *budget.Transaction) error {
	if t.readOnly {
		return errReadOnly
	}
	t.state.transactions[tr.ID] = cloneTransaction(tr)
	return nil
}

func (t *memTx) DeleteTransaction(id string) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.state.transactions, id)
	return nil
}

func (t *memTx) FutureTransaction(id string) (*budget.Transaction, error) {
	tr, ok := t.state.future[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tr), nil
}

func (t *memTx) FutureTransactions() ([]*budget.Transaction, error) {
	out := make([]*budget.Transaction, 0, len(t.state.future))
	for _, tr := range t.state.future {
		out = append(out, cloneTransaction(tr))
	}
	return out, nil
}

func (t *memTx) PutFutureTransaction(tr *budget.Transaction) error {
	if t.readOnly {
		return errReadOnly
	}
	t.state.future[tr.ID] = cloneTransaction(tr)
	return nil
}

func (t *memTx) DeleteFutureTransaction(id string) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.state.future, id)
	return nil
}

func (t *memTx) Expecting(id string) (*budget.ExpectingTransaction, error) {
	e, ok := t.state.expecting[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneExpecting(e), nil
}

func (t *memTx) Expectings() ([]*budget.ExpectingTransaction, error) {
	out := make([]*budget.ExpectingTransaction, 0, len(t.state.expecting))
	for _, e := range t.state.expecting {
		out = append(out, cloneExpecting(e))
	}
	return out, nil
}

func (t *memTx) PutExpecting(e *budget.ExpectingTransaction) error {
	if t.readOnly {
		return errReadOnly
	}
	t.state.expecting[e.ID] = cloneExpecting(e)
	return nil
}

func (t *memTx) DeleteExpecting(id string) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.state.expecting, id)
	return nil
}

func (t *memTx) AppendProcessedMonth(id, month string) (bool, error) {
	if t.readOnly {
		return false, errReadOnly
	}
	e, ok := t.state.expecting[id]
	if !ok {
		return false, store.ErrNotFound
	}
	for _, m := range e.ProcessedMonths {
		if m == month {
			return false, nil
		}
	}
	e.ProcessedMonths = append(e.ProcessedMonths, month)
	return true, nil
}
