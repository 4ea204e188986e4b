// Package backup snapshots a user's documents to Google Cloud Storage as a
// single JSON object, and restores from one.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/budget-tracker/internal/budget"
	storepkg "github.com/dvloznov/budget-tracker/internal/store"
)

// Snapshot is the JSON shape of one user's data at a point in time.
type Snapshot struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	CurrentBalance *float64           `json:"current_balance"`
	BalanceLedger  map[string]float64 `json:"balance_ledger"`

	Transactions []*budget.Transaction          `json:"transactions"`
	Future       []*budget.Transaction          `json:"future_transactions"`
	Expecting    []*budget.ExpectingTransaction `json:"expecting_transactions"`
}

// Take reads every document of one user into a snapshot.
func Take(ctx context.Context, st storepkg.Store, userID string) (*Snapshot, error) {
	snap := &Snapshot{UserID: userID, CreatedAt: time.Now().UTC()}

	err := st.View(ctx, userID, func(tx storepkg.Tx) error {
		user, err := tx.User()
		if err != nil && !errors.Is(err, storepkg.ErrNotFound) {
			return err
		}
		if user != nil {
			snap.CurrentBalance = user.CurrentBalance
			snap.BalanceLedger = user.BalanceLedger
		}

		if snap.Transactions, err = tx.Transactions(); err != nil {
			return err
		}
		if snap.Future, err = tx.FutureTransactions(); err != nil {
			return err
		}
		snap.Expecting, err = tx.Expectings()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("taking snapshot for %s: %w", userID, err)
	}
	return snap, nil
}

// Restore writes a snapshot's documents back into the store in one atomic
// unit, overwriting whatever is there.
func Restore(ctx context.Context, st storepkg.Store, snap *Snapshot) error {
	err := st.Update(ctx, snap.UserID, func(tx storepkg.Tx) error {
		if err := tx.PutUser(&storepkg.UserDoc{
			CurrentBalance: snap.CurrentBalance,
			BalanceLedger:  snap.BalanceLedger,
		}); err != nil {
			return err
		}
		for _, tr := range snap.Transactions {
			if err := tx.PutTransaction(tr); err != nil {
				return err
			}
		}
		for _, tr := range snap.Future {
			if err := tx.PutFutureTransaction(tr); err != nil {
				return err
			}
		}
		for _, def := range snap.Expecting {
			if err := tx.PutExpecting(def); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restoring snapshot for %s: %w", snap.UserID, err)
	}
	return nil
}

// ObjectName produces the canonical object name for a snapshot.
func ObjectName(prefix, userID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", prefix, userID, at.UTC().Format("20060102-150405"))
}

// Upload marshals a snapshot and writes it to a GCS bucket. It assumes
// Application Default Credentials are configured.
func Upload(ctx context.Context, bucketName, objectName string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write GCS object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}
	return nil
}

// Download fetches a snapshot object from a GCS bucket.
func Download(ctx context.Context, bucketName, objectName string) (*Snapshot, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
