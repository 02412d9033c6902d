// Package records turns raw upstream JSON objects into typed recall and
// complaint records, and computes the aggregate views over them. Everything
// here is a pure transform: no I/O, no network.
package records

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Recall is one regulatory recall row. Upstream field presence varies by
// endpoint, so the full raw object rides along untouched.
type Recall struct {
	CampaignNumber     string         `json:"campaignNumber"`
	Manufacturer       string         `json:"manufacturer"`
	Component          string         `json:"component"`
	Summary            string         `json:"summary"`
	Consequence        string         `json:"consequence"`
	Remedy             string         `json:"remedy"`
	ReportReceivedDate string         `json:"reportReceivedDate"`
	PotentialUnits     int            `json:"potentialUnitsAffected"`
	Raw                map[string]any `json:"-"`
}

// Complaint is one consumer complaint row from the bulk endpoint, plus the
// optional detail enrichment merged in later.
type Complaint struct {
	ODINumber    int64      `json:"odiNumber"`
	Manufacturer string     `json:"manufacturer"`
	Crash        bool       `json:"crash"`
	Fire         bool       `json:"fire"`
	Injuries     int        `json:"numberOfInjuries"`
	Deaths       int        `json:"numberOfDeaths"`
	DateIncident *time.Time `json:"dateOfIncident,omitempty"`
	DateFiled    *time.Time `json:"dateComplaintFiled,omitempty"`
	VIN          string     `json:"vin,omitempty"`
	Components   string     `json:"components"`
	Summary      string     `json:"summary"`
	ProductYear  string     `json:"productYear,omitempty"`
	ProductMake  string     `json:"productMake,omitempty"`
	ProductModel string     `json:"productModel,omitempty"`

	// Enrichment is populated by the detail fetch; nil until then. Keeping
	// it as a sub-struct preserves both the bulk values and the detail
	// re-assertions without overwriting either.
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// ComponentDetail is one structured component object from the detail payload.
type ComponentDetail struct {
	Name string `json:"name"`
}

// Enrichment is the flat record a safety-issue detail fetch produces,
// keyed by ODI number.
type Enrichment struct {
	ODINumber        int64             `json:"odiNumber"`
	Description      string            `json:"description,omitempty"`
	ConsumerLocation string            `json:"consumerLocation,omitempty"`
	State            string            `json:"stateAbbreviation,omitempty"`
	DateIncident     *time.Time        `json:"dateOfIncident,omitempty"`
	DateFiled        *time.Time        `json:"dateFiled,omitempty"`
	Crash            bool              `json:"crash"`
	Fire             bool              `json:"fire"`
	Injuries         int               `json:"numberOfInjuries"`
	Deaths           int               `json:"numberOfDeaths"`
	Components       []ComponentDetail `json:"components,omitempty"`
	ComponentNames   []string          `json:"componentNames,omitempty"`
	ProductYear      string            `json:"productYear,omitempty"`
	ProductMake      string            `json:"productMake,omitempty"`
	ProductModel     string            `json:"productModel,omitempty"`
	Manufacturer     string            `json:"manufacturer,omitempty"`
}

// RecallsFromRaw converts bulk recall rows. Missing fields are tolerated;
// empty input yields an empty, non-nil slice.
func RecallsFromRaw(rows []map[string]any) []Recall {
	out := make([]Recall, 0, len(rows))
	for _, row := range rows {
		out = append(out, Recall{
			CampaignNumber:     str(row, "NHTSACampaignNumber"),
			Manufacturer:       str(row, "Manufacturer"),
			Component:          str(row, "Component"),
			Summary:            str(row, "Summary"),
			Consequence:        str(row, "Consequence"),
			Remedy:             str(row, "Remedy"),
			ReportReceivedDate: str(row, "ReportReceivedDate"),
			PotentialUnits:     integer(row["PotentialNumberofUnitsAffected"]),
			Raw:                row,
		})
	}
	return out
}

// ComplaintsFromRaw converts bulk complaint rows: vehicle product metadata
// promoted from the nested products list, crash/fire coerced to bool,
// counts to int, and MM/DD/YYYY dates parsed (unparseable to nil).
func ComplaintsFromRaw(rows []map[string]any) []Complaint {
	out := make([]Complaint, 0, len(rows))
	for _, row := range rows {
		c := Complaint{
			ODINumber:    int64(integer(row["odiNumber"])),
			Manufacturer: str(row, "manufacturer"),
			Crash:        boolean(row["crash"]),
			Fire:         boolean(row["fire"]),
			Injuries:     integer(row["numberOfInjuries"]),
			Deaths:       integer(row["numberOfDeaths"]),
			DateIncident: parseUSDate(str(row, "dateOfIncident")),
			DateFiled:    parseUSDate(str(row, "dateComplaintFiled")),
			VIN:          str(row, "vin"),
			Components:   str(row, "components"),
			Summary:      str(row, "summary"),
		}
		if year, mk, model, _, ok := productVehicle(row["products"]); ok {
			c.ProductYear, c.ProductMake, c.ProductModel = year, mk, model
		}
		out = append(out, c)
	}
	return out
}

// EnrichmentFromSafetyIssue flattens a safety-issue detail payload that has
// already been decoded into a generic map. It descends
// results[0].complaints[0]; an empty list at either level yields nil, which
// the orchestrator counts as a failed enrichment.
func EnrichmentFromSafetyIssue(payload map[string]any) *Enrichment {
	results, _ := payload["results"].([]any)
	if len(results) == 0 {
		return nil
	}
	first, _ := results[0].(map[string]any)
	complaints, _ := first["complaints"].([]any)
	if len(complaints) == 0 {
		return nil
	}
	row, _ := complaints[0].(map[string]any)
	if row == nil {
		return nil
	}

	e := &Enrichment{
		Description:      str(row, "description"),
		ConsumerLocation: str(row, "consumerLocation"),
		State:            ExtractStateAbbr(str(row, "consumerLocation")),
		DateIncident:     parseISODate(str(row, "dateOfIncident")),
		DateFiled:        parseISODate(str(row, "dateFiled")),
		Crash:            boolean(row["crash"]),
		Fire:             boolean(row["fire"]),
		Injuries:         integer(row["numberOfInjuries"]),
		Deaths:           integer(row["numberOfDeaths"]),
	}

	// The detail payload is inconsistent about which field carries the id.
	for _, key := range []string{"nhtsaIdNumber", "odiId", "ODINumber"} {
		if n := integer(row[key]); n != 0 {
			e.ODINumber = int64(n)
			break
		}
	}

	if comps, ok := row["components"].([]any); ok {
		for _, ci := range comps {
			cm, ok := ci.(map[string]any)
			if !ok {
				continue
			}
			name := str(cm, "name")
			e.Components = append(e.Components, ComponentDetail{Name: name})
			e.ComponentNames = append(e.ComponentNames, strings.ToUpper(name))
		}
	}

	if year, mk, model, manufacturer, ok := productVehicle(row["associatedProducts"]); ok {
		e.ProductYear, e.ProductMake, e.ProductModel = year, mk, model
		e.Manufacturer = manufacturer
	}
	return e
}

// productVehicle picks the entry whose type marks it as the vehicle, or the
// first entry, from a nested products list.
func productVehicle(v any) (year, mk, model, manufacturer string, ok bool) {
	list, _ := v.([]any)
	if len(list) == 0 {
		return "", "", "", "", false
	}
	chosen, _ := list[0].(map[string]any)
	for _, pi := range list {
		p, isMap := pi.(map[string]any)
		if isMap && strings.EqualFold(str(p, "type"), "vehicle") {
			chosen = p
			break
		}
	}
	if chosen == nil {
		return "", "", "", "", false
	}
	return str(chosen, "productYear"), str(chosen, "productMake"),
		str(chosen, "productModel"), str(chosen, "manufacturer"), true
}

var stateRe = regexp.MustCompile(`,\s*([A-Z]{2})\s*$`)

// ExtractStateAbbr pulls a trailing two-letter state code from a consumer
// location like "LAS VEGAS, NV". Unparseable input or the literal "Unknown"
// yields "".
func ExtractStateAbbr(location string) string {
	s := strings.TrimSpace(location)
	if s == "" || strings.EqualFold(s, "unknown") {
		return ""
	}
	m := stateRe.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return ""
	}
	return m[1]
}

var componentSplitRe = regexp.MustCompile(`[,|/]+`)

// SplitComponents splits a delimited components string like
// "SERVICE BRAKES, AIR|ENGINE" into trimmed, uppercased parts.
func SplitComponents(components string) []string {
	if components == "" {
		return nil
	}
	var out []string
	for _, part := range componentSplitRe.Split(components, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, strings.ToUpper(part))
	}
	return out
}

func str(row map[string]any, key string) string {
	switch t := row[key].(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true") || t == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}

func integer(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// parseUSDate parses MM/DD/YYYY-style dates; nil on failure.
func parseUSDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"01/02/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseISODate parses ISO-8601 dates with or without a time part; nil on
// failure.
func parseISODate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
