package budget

import (
	"strconv"
	"strings"
)

// Signature derives the content fingerprint used for duplicate detection.
// The ID is deliberately excluded: two drafts with identical semantic content
// collide regardless of when they were entered. Collisions are reported to
// the user as a confirmation prompt, never rejected outright; that policy
// lives in the caller.
func Signature(amount float64, typ Type, category Category, description, dateOrPayDay, currencyCode string) string {
	parts := []string{
		strconv.FormatFloat(amount, 'f', -1, 64),
		string(typ),
		string(category),
		description,
		dateOrPayDay,
		currencyCode,
	}
	return strings.Join(parts, "|")
}

// TransactionSignature computes the signature for a realized transaction.
func TransactionSignature(tr *Transaction) string {
	return Signature(tr.OrigAmount, tr.Type, tr.Category, tr.Description, tr.Date.String(), tr.Currency.Code)
}

// ExpectingSignature computes the signature for a recurring definition,
// keyed on the pay day rather than a concrete date.
func ExpectingSignature(e *ExpectingTransaction) string {
	return Signature(e.OrigAmount, e.Type, e.Category, e.Description, strconv.Itoa(e.PayDay), e.Currency.Code)
}
