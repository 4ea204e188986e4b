package budget

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/budget-tracker/internal/currency"
)

func TestSignature(t *testing.T) {
	base := Signature(11, Expense, CategoryGroceries, "weekly shop", "2024-03-05", "USD")

	if want := "11|expense|Groceries|weekly shop|2024-03-05|USD"; base != want {
		t.Errorf("Signature = %q, want %q", base, want)
	}

	// Identical content collides.
	if again := Signature(11, Expense, CategoryGroceries, "weekly shop", "2024-03-05", "USD"); again != base {
		t.Errorf("identical drafts must share a signature: %q vs %q", again, base)
	}

	// Any changed field produces a different signature.
	variants := []string{
		Signature(11.5, Expense, CategoryGroceries, "weekly shop", "2024-03-05", "USD"),
		Signature(11, Income, CategoryGroceries, "weekly shop", "2024-03-05", "USD"),
		Signature(11, Expense, CategoryFood, "weekly shop", "2024-03-05", "USD"),
		Signature(11, Expense, CategoryGroceries, "", "2024-03-05", "USD"),
		Signature(11, Expense, CategoryGroceries, "weekly shop", "2024-03-06", "USD"),
		Signature(11, Expense, CategoryGroceries, "weekly shop", "2024-03-05", "EUR"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d should not collide with base signature", i)
		}
	}
}

func TestSignatureAmountFormatting(t *testing.T) {
	// Whole amounts must not grow decimal tails; the signature has to be
	// stable across save/load cycles.
	got := Signature(10, Income, CategorySalary, "", "2024-01-05", "EUR")
	want := "10|income|Salary||2024-01-05|EUR"
	if got != want {
		t.Errorf("Signature = %q, want %q", got, want)
	}
}

func TestTransactionSignature(t *testing.T) {
	eur, _ := currency.Lookup("EUR")
	tr := &Transaction{
		OrigAmount:  25.5,
		Currency:    eur,
		Type:        Expense,
		Date:        civil.Date{Year: 2024, Month: 4, Day: 10},
		Category:    CategoryFood,
		Description: "lunch",
	}
	want := "25.5|expense|Food|lunch|2024-04-10|EUR"
	if got := TransactionSignature(tr); got != want {
		t.Errorf("TransactionSignature = %q, want %q", got, want)
	}
}

func TestValidPayDay(t *testing.T) {
	for _, day := range []int{1, 15, 28} {
		if !ValidPayDay(day) {
			t.Errorf("ValidPayDay(%d) = false", day)
		}
	}
	for _, day := range []int{0, -1, 29, 31} {
		if ValidPayDay(day) {
			t.Errorf("ValidPayDay(%d) = true", day)
		}
	}
}
