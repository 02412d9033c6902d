package analyze

import (
	"github.com/defectscope/defectscope/engine/records"
	"github.com/defectscope/defectscope/engine/textsearch"
)

// SearchHit pairs a matched complaint with its relevance score.
type SearchHit struct {
	Complaint records.Complaint `json:"complaint"`
	Score     float64           `json:"score"`
}

// corpusTexts picks the narrative text per complaint: the enriched detail
// description when present, otherwise the complaint summary.
func corpusTexts(complaints []records.Complaint) []string {
	texts := make([]string, len(complaints))
	for i, c := range complaints {
		if c.Enrichment != nil && c.Enrichment.Description != "" {
			texts[i] = c.Enrichment.Description
		} else {
			texts[i] = c.Summary
		}
	}
	return texts
}

// SearchComplaints ranks complaints against a free-text query. The index is
// built fresh per call; complaint sets are small enough that rebuilding is
// cheaper than keeping indexes coherent with re-fetched data. A blank query
// or empty corpus yields no hits.
func SearchComplaints(complaints []records.Complaint, query string, topK int) []SearchHit {
	if len(complaints) == 0 {
		return nil
	}
	idx := textsearch.Build(corpusTexts(complaints))
	matches := idx.Search(query, topK)
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, SearchHit{Complaint: complaints[m.Position], Score: m.Score})
	}
	return hits
}
