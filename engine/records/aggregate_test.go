package records

import (
	"math"
	"testing"
	"time"
)

func TestComponentFrequency(t *testing.T) {
	complaints := []Complaint{
		{Components: "ENGINE"},
		{Components: "SERVICE BRAKES, ENGINE"},
		{Components: "SERVICE BRAKES|FUEL SYSTEM"},
	}

	got := ComponentFrequency(complaints)
	if len(got) != 3 {
		t.Fatalf("expected 3 components, got %d: %v", len(got), got)
	}

	counts := map[string]int{}
	var total float64
	for _, c := range got {
		counts[c.Component] = c.Count
		total += c.Share
	}
	if counts["ENGINE"] != 2 || counts["SERVICE BRAKES"] != 2 || counts["FUEL SYSTEM"] != 1 {
		t.Fatalf("counts wrong: %v", counts)
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("shares should sum to 1, got %f", total)
	}

	// Ties keep first-seen order: ENGINE appeared before SERVICE BRAKES.
	if got[0].Component != "ENGINE" || got[1].Component != "SERVICE BRAKES" {
		t.Fatalf("tie order wrong: %v", got)
	}
	if got[2].Component != "FUEL SYSTEM" {
		t.Fatalf("lowest count should sort last: %v", got)
	}
}

func TestComponentFrequencyEmpty(t *testing.T) {
	got := ComponentFrequency(nil)
	if got == nil || len(got) != 0 {
		t.Fatal("expected empty, non-nil table")
	}
}

func TestSeveritySummary(t *testing.T) {
	complaints := []Complaint{
		{Crash: true, Injuries: 2},
		{Fire: true, Deaths: 1},
		{Crash: true, Fire: true, Injuries: 1},
		{},
	}
	got := SeveritySummary(complaints)
	want := Severity{Crash: 2, Fire: 2, Injuries: 3, Deaths: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if zero := SeveritySummary(nil); zero != (Severity{}) {
		t.Fatalf("empty input should be all zero: %+v", zero)
	}
}

func TestMonthlySeries(t *testing.T) {
	d := func(y int, m time.Month, day int) *time.Time {
		t := time.Date(y, m, day, 10, 30, 0, 0, time.UTC)
		return &t
	}
	complaints := []Complaint{
		{DateFiled: d(2021, time.March, 5)},
		{DateFiled: d(2021, time.March, 28)},
		{DateFiled: d(2021, time.January, 15)},
		{DateFiled: nil},
	}

	got := MonthlySeries(complaints, FiledDate)
	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got))
	}
	if got[0].Month.Month() != time.January || got[0].Count != 1 {
		t.Fatalf("first month wrong: %+v", got[0])
	}
	if got[1].Month.Month() != time.March || got[1].Count != 2 {
		t.Fatalf("second month wrong: %+v", got[1])
	}
	if got[0].Month.Day() != 1 || got[0].Month.Hour() != 0 {
		t.Fatalf("months should truncate to the first: %v", got[0].Month)
	}
}

func TestMonthlySeriesSelectors(t *testing.T) {
	inc := time.Date(2020, time.May, 2, 0, 0, 0, 0, time.UTC)
	filed := time.Date(2020, time.June, 9, 0, 0, 0, 0, time.UTC)
	c := Complaint{DateIncident: &inc, DateFiled: &filed}

	if got := IncidentDate(c); got == nil || got.Month() != time.May {
		t.Fatalf("IncidentDate = %v", got)
	}
	if got := FiledDate(c); got == nil || got.Month() != time.June {
		t.Fatalf("FiledDate = %v", got)
	}
}

func TestMonthlySeriesEmpty(t *testing.T) {
	got := MonthlySeries(nil, FiledDate)
	if got == nil || len(got) != 0 {
		t.Fatal("expected empty, non-nil series")
	}
}
