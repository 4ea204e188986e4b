// Package bolt persists the engine's documents in a bbolt database. Each
// store.Update call maps onto a single bbolt read-write transaction, which
// gives the engine its atomic read-then-write unit: bbolt serializes
// writers, and any error aborts the whole transaction with no partial
// writes.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/store"
)

// Bucket layout: users/<id> holds the balance document under docKey plus
// three nested buckets of JSON documents keyed by transaction id.
const (
	bucketUsers        = "users"
	bucketTransactions = "transactions"
	bucketFuture       = "future_transactions"
	bucketExpecting    = "expecting_transactions"
	docKey             = "doc"
)

// Store implements store.Store on top of a bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database file.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketUsers))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, userID string, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bbolt.Tx) error {
		users := btx.Bucket([]byte(bucketUsers))
		user, err := users.CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return fmt.Errorf("user bucket %q: %w", userID, err)
		}
		for _, name := range []string{bucketTransactions, bucketFuture, bucketExpecting} {
			if _, err := user.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("bucket %q: %w", name, err)
			}
		}
		return fn(&boltTx{user: user})
	})
}

// View implements store.Store.
func (s *Store) View(ctx context.Context, userID string, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(btx *bbolt.Tx) error {
		users := btx.Bucket([]byte(bucketUsers))
		return fn(&boltTx{user: users.Bucket([]byte(userID))})
	})
}

// boltTx adapts a per-user bbolt bucket to store.Tx. A nil user bucket
// (read-only view of an unknown user) behaves as empty.
type boltTx struct {
	user *bbolt.Bucket
}

func (t *boltTx) sub(name string) *bbolt.Bucket {
	if t.user == nil {
		return nil
	}
	return t.user.Bucket([]byte(name))
}

func (t *boltTx) User() (*store.UserDoc, error) {
	if t.user == nil {
		return nil, store.ErrNotFound
	}
	raw := t.user.Get([]byte(docKey))
	if raw == nil {
		return nil, store.ErrNotFound
	}
	var doc store.UserDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode user doc: %w", err)
	}
	return &doc, nil
}

func (t *boltTx) PutUser(doc *store.UserDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode user doc: %w", err)
	}
	return t.user.Put([]byte(docKey), raw)
}

func (t *boltTx) ApplyBalance(baseDelta float64, ledgerDeltas map[string]float64) error {
	doc, err := t.User()
	if err != nil {
		if err == store.ErrNotFound {
			return store.ErrUserNotInitialized
		}
		return err
	}
	if !doc.Initialized() {
		return store.ErrUserNotInitialized
	}
	*doc.CurrentBalance += baseDelta
	if doc.BalanceLedger == nil {
		doc.BalanceLedger = make(map[string]float64)
	}
	for code, delta := range ledgerDeltas {
		doc.BalanceLedger[code] += delta
	}
	return t.PutUser(doc)
}

func getDoc[T any](b *bbolt.Bucket, id string) (*T, error) {
	if b == nil {
		return nil, store.ErrNotFound
	}
	raw := b.Get([]byte(id))
	if raw == nil {
		return nil, store.ErrNotFound
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document %q: %w", id, err)
	}
	return &out, nil
}

func putDoc[T any](b *bbolt.Bucket, id string, doc *T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", id, err)
	}
	return b.Put([]byte(id), raw)
}

func listDocs[T any](b *bbolt.Bucket) ([]*T, error) {
	if b == nil {
		return nil, nil
	}
	var out []*T
	err := b.ForEach(func(_, raw []byte) error {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		out = append(out, &doc)
		return nil
	})
	return out, err
}

func (t *boltTx) Transaction(id string) (*budget.Transaction, error) {
	return getDoc[budget.Transaction](t.sub(bucketTransactions), id)
}

func (t *boltTx) Transactions() ([]*budget.Transaction, error) {
	return listDocs[budget.Transaction](t.sub(bucketTransactions))
}

func (t *boltTx) PutTransaction(tr *budget.Transaction) error {
	return putDoc(t.sub(bucketTransactions), tr.ID, tr)
}

func (t *boltTx) DeleteTransaction(id string) error {
	return t.sub(bucketTransactions).Delete([]byte(id))
}

func (t *boltTx) FutureTransaction(id string) (*budget.Transaction, error) {
	return getDoc[budget.Transaction](t.sub(bucketFuture), id)
}

func (t *boltTx) FutureTransactions() ([]*budget.Transaction, error) {
	return listDocs[budget.Transaction](t.sub(bucketFuture))
}

func (t *boltTx) PutFutureTransaction(tr *budget.Transaction) error {
	return putDoc(t.sub(bucketFuture), tr.ID, tr)
}

func (t *boltTx) DeleteFutureTransaction(id string) error {
	return t.sub(bucketFuture).Delete([]byte(id))
}

func (t *boltTx) Expecting(id string) (*budget.ExpectingTransaction, error) {
	return getDoc[budget.ExpectingTransaction](t.sub(bucketExpecting), id)
}

func (t *boltTx) Expectings() ([]*budget.ExpectingTransaction, error) {
	return listDocs[budget.ExpectingTransaction](t.sub(bucketExpecting))
}

func (t *boltTx) PutExpecting(e *budget.ExpectingTransaction) error {
	return putDoc(t.sub(bucketExpecting), e.ID, e)
}

func (t *boltTx) DeleteExpecting(id string) error {
	return t.sub(bucketExpecting).Delete([]byte(id))
}

func (t *boltTx) AppendProcessedMonth(id, month string) (bool, error) {
	b := t.sub(bucketExpecting)
	e, err := getDoc[budget.ExpectingTransaction](b, id)
	if err != nil {
		return false, err
	}
	for _, m := range e.ProcessedMonths {
		if m == month {
			return false, nil
		}
	}
	e.ProcessedMonths = append(e.ProcessedMonths, month)
	return true, putDoc(b, id, e)
}
