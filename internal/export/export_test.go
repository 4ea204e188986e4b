package export

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/budget-tracker/internal/budget"
	"github.com/dvloznov/budget-tracker/internal/currency"
)

func TestRowMapping(t *testing.T) {
	usd, _ := currency.Lookup("USD")

	tests := []struct {
		name       string
		tr         *budget.Transaction
		wantSigned float64
	}{
		{
			name: "expense carries negative signed amount",
			tr: &budget.Transaction{
				ID:           "t1",
				Signature:    "sig",
				OrigAmount:   11,
				BaseAmount:   10,
				Currency:     usd,
				Type:         budget.Expense,
				Date:         civil.Date{Year: 2024, Month: 1, Day: 15},
				Category:     budget.CategoryGroceries,
				ExchangeRate: 1.1,
				Completed:    true,
			},
			wantSigned: -10,
		},
		{
			name: "income carries positive signed amount",
			tr: &budget.Transaction{
				ID:         "t2",
				OrigAmount: 100,
				BaseAmount: 100,
				Currency:   usd,
				Type:       budget.Income,
				Date:       civil.Date{Year: 2024, Month: 2, Day: 1},
				Category:   budget.CategorySalary,
				Completed:  true,
			},
			wantSigned: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := Row("user-1", tt.tr)
			if row.SignedAmount != tt.wantSigned {
				t.Errorf("SignedAmount = %v, want %v", row.SignedAmount, tt.wantSigned)
			}
			if row.TransactionID != tt.tr.ID {
				t.Errorf("TransactionID = %q, want %q", row.TransactionID, tt.tr.ID)
			}
			if row.UserID != "user-1" {
				t.Errorf("UserID = %q", row.UserID)
			}
			if row.TransactionDate != tt.tr.Date {
				t.Errorf("TransactionDate = %v, want %v", row.TransactionDate, tt.tr.Date)
			}
			if row.Currency != tt.tr.Currency.Code {
				t.Errorf("Currency = %q", row.Currency)
			}
		})
	}
}
