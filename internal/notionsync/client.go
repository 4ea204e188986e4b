package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// PageService is the slice of the Notion API the sync needs. The concrete
// client below satisfies it; tests substitute a mock.
type PageService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePage(ctx context.Context, pageID string) error
}

// Client talks to the Notion API for the transaction sync.
type Client struct {
	api *notionapi.Client
}

// NewClient creates a sync client with the given integration token.
func NewClient(token string) *Client {
	return &Client{api: notionapi.NewClient(notionapi.Token(token))}
}

// CreatePage adds a transaction page to the budget database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transaction page in database %s: %w", databaseID, err)
	}
	return page, nil
}

// QueryDatabase fetches one page of transaction pages from the budget
// database.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), filter)
	if err != nil {
		return nil, fmt.Errorf("querying transaction pages in database %s: %w", databaseID, err)
	}
	return resp, nil
}

// DeletePage archives a transaction page whose transaction no longer exists
// locally.
func (c *Client) DeletePage(ctx context.Context, pageID string) error {
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived: true,
	}); err != nil {
		return fmt.Errorf("archiving stale transaction page %s: %w", pageID, err)
	}
	return nil
}
