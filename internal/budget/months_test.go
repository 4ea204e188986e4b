package budget

import (
	"reflect"
	"testing"

	"cloud.google.com/go/civil"
)

func TestMonthKey(t *testing.T) {
	d := civil.Date{Year: 2024, Month: 3, Day: 17}
	if got := MonthKey(d); got != "2024-03" {
		t.Errorf("MonthKey = %q, want 2024-03", got)
	}
}

func TestMissingMonths(t *testing.T) {
	now := civil.Date{Year: 2024, Month: 4, Day: 10}

	tests := []struct {
		name      string
		start     civil.Date
		processed map[string]bool
		want      []string
	}{
		{
			name:  "nothing processed",
			start: civil.Date{Year: 2024, Month: 1, Day: 5},
			want:  []string{"2024-01", "2024-02", "2024-03"},
		},
		{
			name:      "some processed",
			start:     civil.Date{Year: 2024, Month: 1, Day: 5},
			processed: map[string]bool{"2024-02": true},
			want:      []string{"2024-01", "2024-03"},
		},
		{
			name:  "start in current month",
			start: civil.Date{Year: 2024, Month: 4, Day: 1},
			want:  nil,
		},
		{
			name:  "start in the future",
			start: civil.Date{Year: 2024, Month: 7, Day: 1},
			want:  nil,
		},
		{
			name:  "year boundary",
			start: civil.Date{Year: 2023, Month: 11, Day: 20},
			want:  []string{"2023-11", "2023-12", "2024-01", "2024-02", "2024-03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingMonths(tt.start, now, tt.processed)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingMonths = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthDay(t *testing.T) {
	d, err := MonthDay("2024-02", 5)
	if err != nil {
		t.Fatalf("MonthDay returned error: %v", err)
	}
	if d.String() != "2024-02-05" {
		t.Errorf("MonthDay = %s, want 2024-02-05", d)
	}

	if _, err := MonthDay("garbage", 5); err == nil {
		t.Error("expected error for malformed month key")
	}
}

func TestAddMonths(t *testing.T) {
	jan := civil.Date{Year: 2024, Month: 1, Day: 1}
	if got := AddMonths(jan, -1); got.Year != 2023 || got.Month != 12 {
		t.Errorf("AddMonths(jan, -1) = %v", got)
	}
	if got := AddMonths(jan, 13); got.Year != 2025 || got.Month != 2 {
		t.Errorf("AddMonths(jan, 13) = %v", got)
	}
}
