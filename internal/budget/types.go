// Package budget defines the domain model of the tracker: transactions,
// recurring definitions, transaction signatures and calendar-month math.
package budget

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/budget-tracker/internal/currency"
)

// Type says which way a transaction moves the balance.
type Type string

const (
	Income  Type = "income"
	Expense Type = "expense"
)

// Sign returns +1 for income and -1 for expense. Amounts are never negative;
// the sign is carried by the type.
func (t Type) Sign() float64 {
	if t == Income {
		return 1
	}
	return -1
}

// Valid reports whether the type is one of the two known values.
func (t Type) Valid() bool {
	return t == Income || t == Expense
}

// Category is the spending/income category of a transaction.
type Category string

const (
	CategorySalary            Category = "Salary"
	CategoryRent              Category = "Rent"
	CategoryGroceries         Category = "Groceries"
	CategoryFood              Category = "Food"
	CategoryInternetPhone     Category = "Internet & Phone"
	CategoryHealthInsurance   Category = "Health Insurance"
	CategorySavings           Category = "Savings"
	CategoryFixedExpenses     Category = "Fixed Expenses"
	CategoryShopping          Category = "Shopping"
	CategoryEntertainment     Category = "Entertainment"
	CategoryCarMaintenance    Category = "Car Maintenance"
	CategoryKidsSchool        Category = "Kids & School"
	CategoryPets              Category = "Pets"
	CategoryGymFitness        Category = "Gym & Fitness"
	CategoryStreamingServices Category = "Streaming Services"
	CategoryHome              Category = "Home"
	CategoryInvestment        Category = "Investment"
	CategoryVacation          Category = "Vacation"
	CategoryBirthdays         Category = "Birthdays"
	CategoryChristmas         Category = "Christmas"
	CategoryParty             Category = "Party"
	CategoryDate              Category = "Date"
	CategoryGarden            Category = "Garden"
	CategoryOther             Category = "Other"
)

// Categories returns every known category, UI order.
func Categories() []Category {
	return []Category{
		CategorySalary, CategoryRent, CategoryGroceries, CategoryFood,
		CategoryInternetPhone, CategoryHealthInsurance, CategorySavings,
		CategoryFixedExpenses, CategoryShopping, CategoryEntertainment,
		CategoryCarMaintenance, CategoryKidsSchool, CategoryPets,
		CategoryGymFitness, CategoryStreamingServices, CategoryHome,
		CategoryInvestment, CategoryVacation, CategoryBirthdays,
		CategoryChristmas, CategoryParty, CategoryDate, CategoryGarden,
		CategoryOther,
	}
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Transaction is one realized income or expense entry.
//
// BaseAmount is always denominated in the base currency:
// BaseAmount = OrigAmount / ExchangeRate for non-base currencies, and equals
// OrigAmount otherwise. Completed is false only for transactions dated
// strictly after "today" at save time; those are excluded from the balance
// until reconciled.
type Transaction struct {
	ID           string            `json:"id"`
	Signature    string            `json:"signature"`
	OrigAmount   float64           `json:"orig_amount"`
	BaseAmount   float64           `json:"base_amount"`
	Currency     currency.Currency `json:"currency"`
	Type         Type              `json:"type"`
	Date         civil.Date        `json:"date"`
	Category     Category          `json:"category"`
	Description  string            `json:"description,omitempty"`
	ExchangeRate float64           `json:"exchange_rate"`
	Completed    bool              `json:"completed"`
}

// MaxPayDay is the highest serviceable pay day; months with fewer days could
// never materialize a higher one.
const MaxPayDay = 28

// ValidPayDay reports whether a recurring pay day can be serviced every
// month.
func ValidPayDay(day int) bool {
	return day >= 1 && day <= MaxPayDay
}

// ExpectingTransaction is a recurring definition that materializes one
// realized transaction per calendar month on PayDay. ProcessedMonths is an
// append-only set of "YYYY-MM" keys, written exclusively by the recurring
// processor.
type ExpectingTransaction struct {
	ID              string            `json:"id"`
	Signature       string            `json:"signature"`
	OrigAmount      float64           `json:"orig_amount"`
	BaseAmount      float64           `json:"base_amount"`
	Currency        currency.Currency `json:"currency"`
	Type            Type              `json:"type"`
	PayDay          int               `json:"pay_day"`
	StartDate       civil.Date        `json:"start_date"`
	Category        Category          `json:"category"`
	Description     string            `json:"description,omitempty"`
	ExchangeRate    float64           `json:"exchange_rate"`
	ProcessedMonths []string          `json:"processed_months"`
}

// Processed returns the processed months as a set.
func (e *ExpectingTransaction) Processed() map[string]bool {
	set := make(map[string]bool, len(e.ProcessedMonths))
	for _, m := range e.ProcessedMonths {
		set[m] = true
	}
	return set
}
