// Package analyze orchestrates a full vehicle defect-history run: VIN
// decode, recall and complaint fetches, fallback model resolution, optional
// per-complaint enrichment, and the aggregate views the presentation layer
// renders. It is the single entry point the UI invokes.
package analyze

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/defectscope/defectscope/engine/domain"
	"github.com/defectscope/defectscope/engine/enrich"
	"github.com/defectscope/defectscope/engine/nhtsa"
	"github.com/defectscope/defectscope/engine/records"
	"github.com/defectscope/defectscope/engine/resolve"
	"github.com/google/uuid"
)

// Registry is the slice of the NHTSA client the analyzer depends on.
type Registry interface {
	DecodeVIN(ctx context.Context, vin string) (*nhtsa.Decoded, error)
	RecallsByVehicle(ctx context.Context, mk, model string, year int) ([]map[string]any, error)
	ComplaintsByVehicle(ctx context.Context, mk, model string, year int) ([]map[string]any, error)
	SafetyIssueByID(ctx context.Context, id, issueType string) (json.RawMessage, error)
	ModelsForMakeYear(ctx context.Context, mk string, year int) []string
	ModelsForMake(ctx context.Context, mk string) []string
}

// Options configures an analysis run.
type Options struct {
	// Enrich controls whether per-complaint detail is fetched.
	Enrich bool
	// MaxEnrich caps how many complaints are enriched (0 = default).
	MaxEnrich int
	// Workers bounds the enrichment fan-out (0 = default).
	Workers int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Enrich:    true,
		MaxEnrich: enrich.DefaultMaxRecords,
		Workers:   enrich.DefaultWorkers,
	}
}

// Outcome classifies what an analysis run produced.
type Outcome string

const (
	// OutcomeFull means both endpoints answered.
	OutcomeFull Outcome = "full"
	// OutcomePartial means one endpoint failed; the other's data is shown.
	OutcomePartial Outcome = "partial"
	// OutcomeNoData means both endpoints answered but neither has records,
	// even after fallback model resolution.
	OutcomeNoData Outcome = "no_data"
)

// Request identifies the vehicle to analyze: either a VIN, or an explicit
// make/model/year.
type Request struct {
	VIN   string `json:"vin,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// Report is the full result of an analysis run. Once returned, the caller
// owns the record slices; the analyzer holds no reference to them.
type Report struct {
	RunID         string                   `json:"runId"`
	Vehicle       domain.Vehicle           `json:"vehicle"`
	ResolvedModel string                   `json:"resolvedModel,omitempty"`
	Recalls       []records.Recall         `json:"recalls"`
	Complaints    []records.Complaint      `json:"complaints"`
	EnrichStats   enrich.Stats             `json:"enrichStats"`
	Components    []records.ComponentCount `json:"componentFrequency"`
	Severity      records.Severity         `json:"severity"`
	FiledByMonth  []records.MonthCount     `json:"filedByMonth"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Outcome       Outcome                  `json:"outcome"`
	Duration      time.Duration            `json:"duration"`
}

// Analyzer runs the analysis pipeline.
type Analyzer struct {
	registry Registry
	resolver *resolve.Resolver
	opts     Options
	logger   *slog.Logger
}

// New creates an Analyzer.
func New(registry Registry, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		registry: registry,
		resolver: resolve.New(registry, logger),
		opts:     opts,
		logger:   logger,
	}
}

// AnalyzeVehicle runs the pipeline for the requested vehicle. It returns an
// error only for invalid input or when both endpoints are down; an empty
// but valid vehicle comes back as a Report with OutcomeNoData.
func (a *Analyzer) AnalyzeVehicle(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}

	vehicle, warnings, err := a.resolveVehicle(ctx, req)
	if err != nil {
		return nil, err
	}
	report.Vehicle = vehicle
	report.Warnings = warnings

	rawRecalls, rawComplaints, outcome, warns, err := a.fetchWithFallback(ctx, vehicle, report)
	if err != nil {
		return nil, err
	}
	report.Outcome = outcome
	report.Warnings = append(report.Warnings, warns...)

	report.Recalls = records.RecallsFromRaw(rawRecalls)
	report.Complaints = records.ComplaintsFromRaw(rawComplaints)

	if a.opts.Enrich && len(report.Complaints) > 0 {
		enricher := enrich.New(a.registry, a.opts.MaxEnrich, a.opts.Workers, a.logger)
		report.Complaints, report.EnrichStats = enricher.Enrich(ctx, report.Complaints)
	}

	report.Components = records.ComponentFrequency(report.Complaints)
	report.Severity = records.SeveritySummary(report.Complaints)
	report.FiledByMonth = records.MonthlySeries(report.Complaints, records.FiledDate)
	report.Duration = time.Since(start)

	a.logger.Info("analysis complete",
		"runId", report.RunID,
		"vehicle", vehicle.String(),
		"outcome", report.Outcome,
		"recalls", len(report.Recalls),
		"complaints", len(report.Complaints),
		"enriched", report.EnrichStats.Enriched,
		"duration", report.Duration,
	)
	return report, nil
}

// resolveVehicle turns the request into a concrete vehicle, decoding the
// VIN when one is supplied.
func (a *Analyzer) resolveVehicle(ctx context.Context, req Request) (domain.Vehicle, []string, error) {
	if req.VIN != "" {
		dec, err := a.registry.DecodeVIN(ctx, req.VIN)
		if err != nil {
			return domain.Vehicle{}, nil, err
		}
		var warnings []string
		if dec.Warning != "" {
			warnings = append(warnings, "VIN decode warning: "+dec.Warning)
		}
		if err := dec.Vehicle.Validate(); err != nil {
			return domain.Vehicle{}, nil, domain.NewRemoteError("",
				"VIN decode did not return a usable make/model/year", 0, err)
		}
		return dec.Vehicle, warnings, nil
	}

	vehicle := domain.Vehicle{Make: req.Make, Model: req.Model, Year: req.Year}
	if err := vehicle.Validate(); err != nil {
		return domain.Vehicle{}, nil, err
	}
	return vehicle, nil, nil
}

// fetchPair fetches recalls and complaints for one model spelling.
func (a *Analyzer) fetchPair(ctx context.Context, v domain.Vehicle, model string) (recalls, complaints []map[string]any, recallsErr, complaintsErr error) {
	recalls, recallsErr = a.registry.RecallsByVehicle(ctx, v.Make, model, v.Year)
	complaints, complaintsErr = a.registry.ComplaintsByVehicle(ctx, v.Make, model, v.Year)
	return recalls, complaints, recallsErr, complaintsErr
}

// fetchWithFallback fetches the requested model first. Only when both
// endpoints succeed with no data does it probe the resolver's alternate
// spellings, strictly sequentially, stopping at the first one that yields
// anything.
func (a *Analyzer) fetchWithFallback(ctx context.Context, v domain.Vehicle, report *Report) ([]map[string]any, []map[string]any, Outcome, []string, error) {
	recalls, complaints, recallsErr, complaintsErr := a.fetchPair(ctx, v, v.Model)

	switch {
	case recallsErr != nil && complaintsErr != nil:
		return nil, nil, "", nil, recallsErr
	case recallsErr != nil:
		return nil, complaints, OutcomePartial,
			[]string{"recall lookup failed; showing complaints only: " + recallsErr.Error()}, nil
	case complaintsErr != nil:
		return recalls, nil, OutcomePartial,
			[]string{"complaint lookup failed; showing recalls only: " + complaintsErr.Error()}, nil
	}

	if len(recalls) > 0 || len(complaints) > 0 {
		return recalls, complaints, OutcomeFull, nil, nil
	}

	for _, candidate := range a.resolver.Candidates(ctx, v.Make, v.Model, v.Year) {
		candRecalls, candComplaints, rErr, cErr := a.fetchPair(ctx, v, candidate)
		if rErr != nil || cErr != nil {
			a.logger.Debug("candidate fetch failed", "model", candidate, "recallsErr", rErr, "complaintsErr", cErr)
			continue
		}
		if len(candRecalls) > 0 || len(candComplaints) > 0 {
			report.ResolvedModel = candidate
			warn := "no data under model " + v.Model + "; showing data for " + candidate
			return candRecalls, candComplaints, OutcomeFull, []string{warn}, nil
		}
	}

	// The no-data message names the originally requested model.
	return nil, nil, OutcomeNoData,
		[]string{"no recalls or complaints recorded for " + v.String()}, nil
}
