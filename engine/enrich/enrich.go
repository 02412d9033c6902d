// Package enrich fans out per-complaint detail fetches with bounded
// concurrency and merges the results back into the complaint set. A failed
// or empty detail fetch is a per-record failure, counted but never escalated
// to a batch failure.
package enrich

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/defectscope/defectscope/engine/records"
	"github.com/defectscope/defectscope/pkg/fn"
)

// Defaults for the record cap and worker pool size.
const (
	DefaultMaxRecords = 150
	DefaultWorkers    = 6
)

// DetailFetcher is the subset of the registry client the enricher needs.
// Each successful fetch also populates the disk cache through the client.
type DetailFetcher interface {
	SafetyIssueByID(ctx context.Context, id, issueType string) (json.RawMessage, error)
}

// Stats summarizes one enrichment batch. Requested is the number of ids
// selected after dedup and cap, which is exactly the number submitted to
// the pool.
type Stats struct {
	Requested int `json:"requested"`
	Enriched  int `json:"enriched"`
	Failed    int `json:"failed"`
}

// Enricher fetches safety-issue detail for complaints.
type Enricher struct {
	fetcher    DetailFetcher
	maxRecords int
	workers    int
	logger     *slog.Logger
}

// New creates an Enricher. maxRecords or workers <= 0 take the defaults.
func New(fetcher DetailFetcher, maxRecords, workers int, logger *slog.Logger) *Enricher {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{fetcher: fetcher, maxRecords: maxRecords, workers: workers, logger: logger}
}

// Enrich fetches detail for up to maxRecords complaints (in table order;
// rows beyond the cap are simply not enriched) and left-joins the results
// onto the original rows by ODI number. Every original row survives the
// merge and the original row order is preserved regardless of task
// completion order.
func (e *Enricher) Enrich(ctx context.Context, complaints []records.Complaint) ([]records.Complaint, Stats) {
	ids := selectIDs(complaints, e.maxRecords)
	stats := Stats{Requested: len(ids)}
	if len(ids) == 0 {
		return complaints, stats
	}

	results := fn.ParMapResult(ids, e.workers, func(odi int64) fn.Result[*records.Enrichment] {
		payload, err := e.fetcher.SafetyIssueByID(ctx, strconv.FormatInt(odi, 10), "complaints")
		if err != nil {
			return fn.Err[*records.Enrichment](err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return fn.Err[*records.Enrichment](err)
		}
		return fn.Ok(records.EnrichmentFromSafetyIssue(decoded))
	})

	byODI := make(map[int64]*records.Enrichment, len(ids))
	for i, r := range results {
		enr, err := r.Unwrap()
		if err != nil || enr == nil {
			stats.Failed++
			if err != nil {
				e.logger.Debug("enrichment failed", "odiNumber", ids[i], "error", err)
			}
			continue
		}
		if enr.ODINumber == 0 {
			enr.ODINumber = ids[i]
		}
		byODI[ids[i]] = enr
		stats.Enriched++
	}

	merged := make([]records.Complaint, len(complaints))
	copy(merged, complaints)
	for i := range merged {
		if enr, ok := byODI[merged[i].ODINumber]; ok {
			merged[i].Enrichment = enr
		}
	}
	return merged, stats
}

// selectIDs returns the deduplicated ODI numbers in table order, capped.
func selectIDs(complaints []records.Complaint, maxRecords int) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, c := range complaints {
		if c.ODINumber == 0 || seen[c.ODINumber] {
			continue
		}
		seen[c.ODINumber] = true
		ids = append(ids, c.ODINumber)
		if len(ids) == maxRecords {
			break
		}
	}
	return ids
}
