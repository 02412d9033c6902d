package records

import (
	"sort"
	"time"
)

// ComponentCount is one row of the component frequency table.
type ComponentCount struct {
	Component string  `json:"component"`
	Count     int     `json:"count"`
	Share     float64 `json:"share"`
}

// ComponentFrequency counts component mentions across all complaints.
// Rows are sorted by descending count; ties keep first-seen order. Share is
// each component's fraction of total mentions.
func ComponentFrequency(complaints []Complaint) []ComponentCount {
	counts := make(map[string]int)
	var order []string
	for _, c := range complaints {
		for _, comp := range SplitComponents(c.Components) {
			if _, seen := counts[comp]; !seen {
				order = append(order, comp)
			}
			counts[comp]++
		}
	}
	if len(order) == 0 {
		return []ComponentCount{}
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	// Stable sort preserves discovery order among equal counts.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	out := make([]ComponentCount, len(order))
	for i, comp := range order {
		out[i] = ComponentCount{
			Component: comp,
			Count:     counts[comp],
			Share:     float64(counts[comp]) / float64(total),
		}
	}
	return out
}

// Severity sums the crash/fire flags and injury/death counts over a
// complaint set.
type Severity struct {
	Crash    int `json:"crash"`
	Fire     int `json:"fire"`
	Injuries int `json:"injuries"`
	Deaths   int `json:"deaths"`
}

// SeveritySummary computes severity totals; all zero on empty input.
func SeveritySummary(complaints []Complaint) Severity {
	var s Severity
	for _, c := range complaints {
		if c.Crash {
			s.Crash++
		}
		if c.Fire {
			s.Fire++
		}
		s.Injuries += c.Injuries
		s.Deaths += c.Deaths
	}
	return s
}

// MonthCount is one month's record count.
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// MonthlySeries groups the dates selected by dateOf into calendar months and
// counts per month, sorted chronologically. Records whose selector returns
// nil are skipped; empty input yields an empty series.
func MonthlySeries(complaints []Complaint, dateOf func(Complaint) *time.Time) []MonthCount {
	counts := make(map[time.Time]int)
	for _, c := range complaints {
		d := dateOf(c)
		if d == nil {
			continue
		}
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		counts[month]++
	}
	if len(counts) == 0 {
		return []MonthCount{}
	}
	out := make([]MonthCount, 0, len(counts))
	for month, n := range counts {
		out = append(out, MonthCount{Month: month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// FiledDate selects the complaint-filed date (the default series column).
func FiledDate(c Complaint) *time.Time { return c.DateFiled }

// IncidentDate selects the incident date.
func IncidentDate(c Complaint) *time.Time { return c.DateIncident }
