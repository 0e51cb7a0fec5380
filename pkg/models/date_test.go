package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := map[string]Date{
		"2024-12-15":                NewDate(2024, time.December, 15),
		" 2024-01-02 ":              NewDate(2024, time.January, 2),
		"2024-03-10T23:30:00+05:30": NewDate(2024, time.March, 10),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q) failed: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseDate("15/12/2024"); err == nil {
		t.Error("Expected error for non-ISO date")
	}
}

func TestDateDaysUntil(t *testing.T) {
	start := NewDate(2024, time.February, 27)
	end := NewDate(2024, time.March, 2) // leap year

	if got := start.DaysUntil(end); got != 4 {
		t.Errorf("Expected 4 days, got %d", got)
	}
	if got := end.DaysUntil(start); got != -4 {
		t.Errorf("Expected -4 days, got %d", got)
	}
	if !start.AddDays(4).Equal(end) {
		t.Errorf("Expected AddDays(4) to reach %s", end)
	}

	// Longer than time.Duration can represent.
	old := NewDate(1700, time.January, 1)
	recent := NewDate(2026, time.January, 1)
	if got := old.DaysUntil(recent); got != 119069 {
		t.Errorf("Expected 119069 days, got %d", got)
	}
	if got := recent.AddDays(-200000).DaysUntil(recent); got != 200000 {
		t.Errorf("Expected 200000 days, got %d", got)
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		Pawn     Date  `json:"pawnDate"`
		Redeemed *Date `json:"redeemedDate,omitempty"`
	}

	in := wrapper{Pawn: NewDate(2024, time.October, 1)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(b) != `{"pawnDate":"2024-10-01"}` {
		t.Errorf("Unexpected JSON: %s", b)
	}

	var out wrapper
	if err := json.Unmarshal([]byte(`{"pawnDate":"2024-10-01","redeemedDate":"2024-12-20"}`), &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Redeemed == nil || !out.Redeemed.Equal(NewDate(2024, time.December, 20)) {
		t.Errorf("Expected redeemed date 2024-12-20, got %v", out.Redeemed)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-05-06"); err != nil {
		t.Fatalf("Scan string failed: %v", err)
	}
	if d.String() != "2024-05-06" {
		t.Errorf("Expected 2024-05-06, got %s", d)
	}
	if err := d.Scan(time.Date(2024, 5, 7, 18, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time failed: %v", err)
	}
	if d.String() != "2024-05-07" {
		t.Errorf("Expected 2024-05-07, got %s", d)
	}
	if err := d.Scan(42); err == nil {
		t.Error("Expected error scanning int")
	}
}

func TestPawnRecordMatches(t *testing.T) {
	r := &PawnRecord{SerialNumber: "AK2501042", CustomerName: "Priya Devi", PhoneNumber: "9876543211"}

	for _, q := range []string{"", "ak25", "PRIYA", "devi", "43211"} {
		if !r.Matches(q) {
			t.Errorf("Expected %q to match", q)
		}
	}
	if r.Matches("suresh") {
		t.Error("Expected no match for suresh")
	}
}
