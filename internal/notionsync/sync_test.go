package notionsync

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
)

// mockNotion records calls and serves canned pages across paginated queries.
type mockNotion struct {
	pages    []notionapi.Page
	pageSize int

	created  []notionapi.Properties
	archived []string
	queries  int
}

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.created = append(m.created, properties)
	return &notionapi.Page{ID: notionapi.ObjectID("new-page")}, nil
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	m.queries++

	start := 0
	if filter.StartCursor != "" {
		for i, p := range m.pages {
			if string(p.ID) == string(filter.StartCursor) {
				start = i
				break
			}
		}
	}

	size := m.pageSize
	if size == 0 {
		size = len(m.pages)
	}
	end := start + size
	if end > len(m.pages) {
		end = len(m.pages)
	}

	resp := &notionapi.DatabaseQueryResponse{Results: m.pages[start:end]}
	if end < len(m.pages) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(m.pages[end].ID)
	}
	return resp, nil
}

func (m *mockNotion) DeletePage(ctx context.Context, pageID string) error {
	m.archived = append(m.archived, pageID)
	return nil
}

func pageWithID(pageID, transactionID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			"Transaction ID": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: transactionID}},
			},
		},
	}
}

func sampleTransaction(id string) *budget.Transaction {
	eur, _ := currency.Lookup("EUR")
	return &budget.Transaction{
		ID:         id,
		OrigAmount: 25,
		BaseAmount: 25,
		Currency:   eur,
		Type:       budget.Expense,
		Date:       civil.Date{Year: 2024, Month: 3, Day: 10},
		Category:   budget.CategoryFood,
		Completed:  true,
	}
}

func TestSyncCreatesMissingAndSkipsExisting(t *testing.T) {
	mock := &mockNotion{pages: []notionapi.Page{pageWithID("p1", "t1")}}

	res, err := SyncTransactions(context.Background(), mock, "db", []*budget.Transaction{
		sampleTransaction("t1"),
		sampleTransaction("t2"),
	}, false)
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if res.Created != 1 || res.Skipped != 1 || res.Deleted != 0 {
		t.Errorf("result = %+v, want 1 created, 1 skipped", res)
	}
	if len(mock.created) != 1 {
		t.Fatalf("created pages = %d, want 1", len(mock.created))
	}

	title, ok := mock.created[0]["Transaction ID"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "t2" {
		t.Errorf("created page properties = %v", mock.created[0])
	}
}

func TestSyncArchivesStalePages(t *testing.T) {
	mock := &mockNotion{pages: []notionapi.Page{
		pageWithID("p1", "t1"),
		pageWithID("p2", "gone"),
	}}

	res, err := SyncTransactions(context.Background(), mock, "db", []*budget.Transaction{
		sampleTransaction("t1"),
	}, false)
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if res.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", res.Deleted)
	}
	if len(mock.archived) != 1 || mock.archived[0] != "p2" {
		t.Errorf("archived = %v, want [p2]", mock.archived)
	}
}

func TestSyncDryRunTouchesNothing(t *testing.T) {
	mock := &mockNotion{pages: []notionapi.Page{pageWithID("p1", "stale")}}

	res, err := SyncTransactions(context.Background(), mock, "db", []*budget.Transaction{
		sampleTransaction("t1"),
	}, true)
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if res.Created != 1 || res.Deleted != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(mock.created) != 0 || len(mock.archived) != 0 {
		t.Errorf("dry run performed writes: created=%d archived=%d", len(mock.created), len(mock.archived))
	}
}

func TestSyncPaginatesNotionQuery(t *testing.T) {
	var pages []notionapi.Page
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		pages = append(pages, pageWithID("p-"+id, "t-"+id))
	}
	mock := &mockNotion{pages: pages, pageSize: 2}

	var transactions []*budget.Transaction
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		transactions = append(transactions, sampleTransaction("t-"+id))
	}

	res, err := SyncTransactions(context.Background(), mock, "db", transactions, false)
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}

	if res.Skipped != 5 || res.Created != 0 {
		t.Errorf("result = %+v, want all skipped", res)
	}
	if mock.queries < 3 {
		t.Errorf("queries = %d, want at least 3 pages", mock.queries)
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	tr := sampleTransaction("t1")
	tr.Description = "coffee"

	props := TransactionToNotionProperties(tr)

	amount, ok := props["Amount"].(notionapi.NumberProperty)
	if !ok || amount.Number != 25 {
		t.Errorf("Amount = %v", props["Amount"])
	}
	base, ok := props["Base Amount"].(notionapi.NumberProperty)
	if !ok || base.Number != -25 {
		t.Errorf("Base Amount = %v, want signed -25", props["Base Amount"])
	}
	sel, ok := props["Category"].(notionapi.SelectProperty)
	if !ok || sel.Select.Name != "Food" {
		t.Errorf("Category = %v", props["Category"])
	}
	if _, ok := props["Description"]; !ok {
		t.Error("Description property missing")
	}

	// Empty descriptions do not produce an empty rich text block.
	bare := sampleTransaction("t2")
	if _, ok := TransactionToNotionProperties(bare)["Description"]; ok {
		t.Error("empty description produced a property")
	}
}
