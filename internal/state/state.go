// Package state holds the in-memory mirrors of remote results that the UI
// reads for immediate feedback. The engine is the only mutator and applies
// mirror updates strictly after the corresponding store unit commits, so the
// mirrors never run ahead of a failed write.
package state

import (
	"sync"

	"github.com/dvloznov/budget-tracker/internal/budget"
)

// Balance mirrors the user balance document: the aggregate balance in base
// currency plus the per-currency ledger. The fetched flag guards the
// fetch-or-init sequence against re-initializing a balance that another
// session is mid-update on.
type Balance struct {
	mu      sync.Mutex
	current float64
	ledger  map[string]float64
	fetched bool
}

// NewBalance creates an empty balance mirror.
func NewBalance() *Balance {
	return &Balance{ledger: make(map[string]float64)}
}

// Current returns the mirrored aggregate balance.
func (b *Balance) Current() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Ledger returns a copy of the per-currency ledger.
func (b *Balance) Ledger() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(b.ledger))
	for code, v := range b.ledger {
		out[code] = v
	}
	return out
}

// Set replaces the mirrored balance and ledger, typically from a fetch.
func (b *Balance) Set(current float64, ledger map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = current
	b.ledger = make(map[string]float64, len(ledger))
	for code, v := range ledger {
		b.ledger[code] = v
	}
}

// Update adds a delta to the aggregate balance. There is no floor: balances
// go negative.
func (b *Balance) Update(delta float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current += delta
}

// UpdateLedger adds a delta to one currency's running total, creating the
// entry on first write.
func (b *Balance) UpdateLedger(code string, delta float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledger[code] += delta
}

// Fetched reports whether fetch-or-init already ran this session.
func (b *Balance) Fetched() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetched
}

// MarkFetched records that fetch-or-init ran; repeat fetches become no-ops.
func (b *Balance) MarkFetched() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetched = true
}

// Clear resets the mirror at logout.
func (b *Balance) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = 0
	b.ledger = make(map[string]float64)
	b.fetched = false
}

// Transactions mirrors the visible transaction list and indexes signatures
// for duplicate detection.
type Transactions struct {
	mu   sync.Mutex
	list []*budget.Transaction
	sigs map[string]int
}

// NewTransactions creates an empty transaction mirror.
func NewTransactions() *Transactions {
	return &Transactions{sigs: make(map[string]int)}
}

// Set replaces the list, typically from a fetch.
func (t *Transactions) Set(list []*budget.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append([]*budget.Transaction(nil), list...)
	t.sigs = make(map[string]int, len(list))
	for _, tr := range list {
		t.sigs[tr.Signature]++
	}
}

// Append adds one transaction to the visible list.
func (t *Transactions) Append(tr *budget.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, tr)
	t.sigs[tr.Signature]++
}

// Remove drops a transaction by id.
func (t *Transactions) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.list[:0]
	for _, tr := range t.list {
		if tr.ID == id {
			if n := t.sigs[tr.Signature]; n <= 1 {
				delete(t.sigs, tr.Signature)
			} else {
				t.sigs[tr.Signature] = n - 1
			}
			continue
		}
		kept = append(kept, tr)
	}
	t.list = kept
}

// MarkCompleted flips the completed flag on a mirrored transaction.
func (t *Transactions) MarkCompleted(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.list {
		if tr.ID == id {
			tr.Completed = true
			return
		}
	}
}

// List returns a copy of the visible list.
func (t *Transactions) List() []*budget.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*budget.Transaction(nil), t.list...)
}

// IsDuplicate reports whether a draft signature matches any loaded
// transaction. The caller decides what to do with a collision.
func (t *Transactions) IsDuplicate(signature string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sigs[signature] > 0
}

// Clear resets the mirror at logout.
func (t *Transactions) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = nil
	t.sigs = make(map[string]int)
}

// Future mirrors the future-transaction list.
type Future struct {
	mu   sync.Mutex
	list []*budget.Transaction
}

// NewFuture creates an empty future mirror.
func NewFuture() *Future { return &Future{} }

// Set replaces the list.
func (f *Future) Set(list []*budget.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = append([]*budget.Transaction(nil), list...)
}

// Add appends one future transaction.
func (f *Future) Add(tr *budget.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = append(f.list, tr)
}

// Remove drops a future transaction by id.
func (f *Future) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.list[:0]
	for _, tr := range f.list {
		if tr.ID != id {
			kept = append(kept, tr)
		}
	}
	f.list = kept
}

// List returns a copy of the list.
func (f *Future) List() []*budget.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*budget.Transaction(nil), f.list...)
}

// Clear resets the mirror at logout.
func (f *Future) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = nil
}

// Unlogged holds transactions captured before the balance document existed.
// They carry no balance effect until the session flush replays them through
// the regular save path.
type Unlogged struct {
	mu   sync.Mutex
	list []*budget.Transaction
}

// NewUnlogged creates an empty unlogged queue.
func NewUnlogged() *Unlogged { return &Unlogged{} }

// Add queues one transaction for the next flush.
func (u *Unlogged) Add(tr *budget.Transaction) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.list = append(u.list, tr)
}

// Remove drops a queued transaction by id, typically after it saved.
func (u *Unlogged) Remove(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	kept := u.list[:0]
	for _, tr := range u.list {
		if tr.ID != id {
			kept = append(kept, tr)
		}
	}
	u.list = kept
}

// List returns a copy of the queue.
func (u *Unlogged) List() []*budget.Transaction {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*budget.Transaction(nil), u.list...)
}

// Clear resets the queue at logout.
func (u *Unlogged) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.list = nil
}

// Expecting mirrors the recurring definitions.
type Expecting struct {
	mu   sync.Mutex
	list []*budget.ExpectingTransaction
}

// NewExpecting creates an empty recurring mirror.
func NewExpecting() *Expecting { return &Expecting{} }

// Set replaces the list.
func (e *Expecting) Set(list []*budget.ExpectingTransaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append([]*budget.ExpectingTransaction(nil), list...)
}

// Add appends one definition.
func (e *Expecting) Add(def *budget.ExpectingTransaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, def)
}

// Remove drops a definition by id.
func (e *Expecting) Remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.list[:0]
	for _, def := range e.list {
		if def.ID != id {
			kept = append(kept, def)
		}
	}
	e.list = kept
}

// List returns a copy of the definitions.
func (e *Expecting) List() []*budget.ExpectingTransaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*budget.ExpectingTransaction(nil), e.list...)
}

// AppendProcessedMonth records a processed month on the mirrored definition.
func (e *Expecting) AppendProcessedMonth(id, month string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, def := range e.list {
		if def.ID != id {
			continue
		}
		for _, m := range def.ProcessedMonths {
			if m == month {
				return
			}
		}
		def.ProcessedMonths = append(def.ProcessedMonths, month)
		return
	}
}

// Clear resets the mirror at logout.
func (e *Expecting) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = nil
}

// State bundles all mirrors for one session.
type State struct {
	Balance      *Balance
	Transactions *Transactions
	Future       *Future
	Expecting    *Expecting
	Unlogged     *Unlogged
}

// New creates a fresh session state.
func New() *State {
	return &State{
		Balance:      NewBalance(),
		Transactions: NewTransactions(),
		Future:       NewFuture(),
		Expecting:    NewExpecting(),
		Unlogged:     NewUnlogged(),
	}
}

// Reset tears down all mirrors at logout.
func (s *State) Reset() {
	s.Balance.Clear()
	s.Transactions.Clear()
	s.Future.Clear()
	s.Expecting.Clear()
	s.Unlogged.Clear()
}
