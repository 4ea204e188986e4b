package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100
)

// Result summarizes one sync run.
type Result struct {
	Created int
	Skipped int
	Deleted int
}

// SyncTransactions pushes transactions into a Notion database. Pages are
// keyed by the "Transaction ID" title property: transactions already present
// are skipped, pages whose transaction no longer exists are archived. With
// dryRun set it only reports what it would do.
func SyncTransactions(ctx context.Context, svc PageService, notionDBID string, transactions []*budget.Transaction, dryRun bool) (*Result, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Int("transaction_count", len(transactions)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	validIDs := make(map[string]bool)
	for _, tr := range transactions {
		validIDs[tr.ID] = true
	}

	notionPages, err := queryAllNotionPages(ctx, svc, notionDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	existingIDs := make(map[string]bool)
	for _, page := range notionPages {
		if id := extractTransactionID(page); id != "" {
			existingIDs[id] = true
		}
	}

	res := &Result{}

	// Archive pages whose transaction was deleted locally.
	for _, page := range notionPages {
		id := extractTransactionID(page)
		if id != "" && validIDs[id] {
			continue
		}
		if dryRun {
			log.Info().
				Str("transaction_id", id).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			res.Deleted++
			continue
		}
		if err := svc.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", id).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		res.Deleted++
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		for _, tr := range transactions[i:end] {
			if existingIDs[tr.ID] {
				res.Skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("transaction_id", tr.ID).
					Msg("[DRY RUN] Would create Notion page")
				res.Created++
				continue
			}

			props := TransactionToNotionProperties(tr)
			if _, err := svc.CreatePage(ctx, notionDBID, props); err != nil {
				return res, fmt.Errorf("failed to create page for %s: %w", tr.ID, err)
			}
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("deleted", res.Deleted).
		Msg("Transaction sync to Notion finished")

	return res, nil
}

// queryAllNotionPages pages through the whole database.
func queryAllNotionPages(ctx context.Context, svc PageService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractTransactionID extracts the transaction ID from a Notion page's
// title property. Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties["Transaction ID"]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}
