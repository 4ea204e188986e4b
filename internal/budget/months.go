package budget

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// MonthKey formats a date's calendar month as "YYYY-MM".
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// StartOfMonth returns the first day of the date's month.
func StartOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths moves a start-of-month date by n calendar months.
func AddMonths(d civil.Date, n int) civil.Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return civil.DateOf(t)
}

// MissingMonths lists every calendar month from the start date's month
// through the month before now, inclusive, whose key is absent from
// processed. The result is empty when the start month is the current month
// or later.
func MissingMonths(start, now civil.Date, processed map[string]bool) []string {
	cur := StartOfMonth(start)
	end := StartOfMonth(AddMonths(StartOfMonth(now), -1))

	var missing []string
	for !cur.After(end) {
		if key := MonthKey(cur); !processed[key] {
			missing = append(missing, key)
		}
		cur = AddMonths(cur, 1)
	}
	return missing
}

// MonthDay builds the concrete date for a "YYYY-MM" key and a day of month.
func MonthDay(monthKey string, day int) (civil.Date, error) {
	d, err := civil.ParseDate(fmt.Sprintf("%s-%02d", monthKey, day))
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid month key %q: %w", monthKey, err)
	}
	return d, nil
}
