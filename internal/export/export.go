// Package export maps completed transactions to BigQuery rows and pushes
// them to the warehouse for analysis.
package export

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-tracker/internal/budget"
)

// TransactionRow represents a transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"`
	UserID        string `bigquery:"user_id"`

	TransactionDate civil.Date `bigquery:"transaction_date"`

	// SignedAmount is the base-currency amount with the income/expense
	// sign applied, so SUM(signed_amount) reproduces the balance.
	SignedAmount float64 `bigquery:"signed_amount"`
	OrigAmount   float64 `bigquery:"orig_amount"`
	Currency     string  `bigquery:"currency"`
	ExchangeRate float64 `bigquery:"exchange_rate"`

	Type        string `bigquery:"type"`
	Category    string `bigquery:"category"`
	Description string `bigquery:"description"`
	Signature   string `bigquery:"signature"`
}

// Row maps a completed transaction to its warehouse shape.
func Row(userID string, tr *budget.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tr.ID,
		UserID:          userID,
		TransactionDate: tr.Date,
		SignedAmount:    tr.Type.Sign() * tr.BaseAmount,
		OrigAmount:      tr.OrigAmount,
		Currency:        tr.Currency.Code,
		ExchangeRate:    tr.ExchangeRate,
		Type:            string(tr.Type),
		Category:        string(tr.Category),
		Description:     tr.Description,
		Signature:       tr.Signature,
	}
}

// Exporter writes transaction rows to a BigQuery table.
type Exporter struct {
	client    *bigquery.Client
	projectID string
	dataset   string
	table     string
}

// NewExporter creates an exporter bound to one table.
func NewExporter(ctx context.Context, projectID, dataset, table string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	return &Exporter{client: client, projectID: projectID, dataset: dataset, table: table}, nil
}

// Close releases the underlying client.
func (e *Exporter) Close() error {
	return e.client.Close()
}

// InsertTransactions inserts a batch of rows. Only completed transactions
// belong in the warehouse; future-dated ones have not affected the balance
// yet and are filtered out here rather than left to every caller.
func (e *Exporter) InsertTransactions(ctx context.Context, userID string, transactions []*budget.Transaction) (int, error) {
	var rows []*TransactionRow
	for _, tr := range transactions {
		if !tr.Completed {
			continue
		}
		rows = append(rows, Row(userID, tr))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	table := e.client.DatasetInProject(e.projectID, e.dataset).Table(e.table)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return len(rows), nil
}

// QueryByDateRange returns rows for one user within the inclusive date range.
func (e *Exporter) QueryByDateRange(ctx context.Context, userID string, start, end civil.Date) ([]*TransactionRow, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			transaction_date,
			signed_amount,
			orig_amount,
			currency,
			exchange_rate,
			type,
			category,
			description,
			signature
		FROM `+"`%s.%s.%s`"+`
		WHERE user_id = @user_id
		  AND transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date
	`, e.projectID, e.dataset, e.table))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryByDateRange: reading query: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryByDateRange: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
