// Package resolve generates fallback vehicle-model candidates for when an
// exact make/model/year lookup yields no data. Trim-level names ("535i")
// often need resolving to their model-family name ("5 Series") before the
// registry returns anything.
package resolve

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// MaxCandidates caps the returned candidate list.
const MaxCandidates = 6

// Scoring weights. Exact normalized match must dominate everything else;
// the digit heuristics only separate plausible family names from noise.
const (
	scoreExact        = 100
	scoreContainment  = 40
	scoreFirstWord    = 20
	scoreSeriesWord   = 15
	scoreLeadingDigit = 15
	scoreDigitRun     = 10
)

// ModelLister is the subset of the registry client the resolver needs.
type ModelLister interface {
	ModelsForMakeYear(ctx context.Context, mk string, year int) []string
	ModelsForMake(ctx context.Context, mk string) []string
}

// Resolver gathers candidate pools and ranks them. It never errors: an
// empty candidate list is a valid outcome.
type Resolver struct {
	lister ModelLister
	logger *slog.Logger
}

// New creates a Resolver.
func New(lister ModelLister, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lister: lister, logger: logger}
}

// Candidates returns alternate model names for the requested model, best
// first. The pool is the union of the year-scoped and all-years model lists
// for the make, both best-effort.
func (r *Resolver) Candidates(ctx context.Context, mk, model string, year int) []string {
	pool := r.lister.ModelsForMakeYear(ctx, mk, year)
	pool = append(pool, r.lister.ModelsForMake(ctx, mk)...)
	ranked := Rank(model, pool)
	r.logger.Debug("model candidates", "make", mk, "model", model, "count", len(ranked))
	return ranked
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

func normalize(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

var digitRunRe = regexp.MustCompile(`\d+`)

// score rates candidate as a stand-in for the requested model name.
func score(requested, candidate string) int {
	reqNorm, candNorm := normalize(requested), normalize(candidate)
	if reqNorm == "" || candNorm == "" {
		return 0
	}
	if reqNorm == candNorm {
		return scoreExact
	}

	s := 0
	if strings.Contains(candNorm, reqNorm) || strings.Contains(reqNorm, candNorm) {
		s += scoreContainment
	}

	reqFields, candFields := strings.Fields(strings.ToLower(requested)), strings.Fields(strings.ToLower(candidate))
	if len(reqFields) > 0 && len(candFields) > 0 && reqFields[0] == candFields[0] {
		s += scoreFirstWord
	}

	// Trim names like "535i" carry digits; family names like "5 Series"
	// share the leading digit and usually the word "series".
	if run := digitRunRe.FindString(reqNorm); run != "" {
		candLower := strings.ToLower(candidate)
		if strings.Contains(candLower, "series") {
			s += scoreSeriesWord
		}
		if strings.HasPrefix(candNorm, run[:1]) {
			s += scoreLeadingDigit
		}
		if strings.Contains(candNorm, run) {
			s += scoreDigitRun
		}
	}
	return s
}

// Rank scores every pool entry against the requested model and returns the
// positively-scored ones: descending score, ties alphabetical,
// case-insensitively deduplicated, capped at MaxCandidates. The requested
// model itself is excluded.
func Rank(requested string, pool []string) []string {
	reqNorm := normalize(requested)

	type scored struct {
		name  string
		score int
	}
	var ranked []scored
	seen := make(map[string]bool)
	for _, cand := range pool {
		cand = strings.TrimSpace(cand)
		key := strings.ToLower(cand)
		if cand == "" || seen[key] {
			continue
		}
		seen[key] = true
		if normalize(cand) == reqNorm {
			continue
		}
		if s := score(requested, cand); s > 0 {
			ranked = append(ranked, scored{name: cand, score: s})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	if len(ranked) > MaxCandidates {
		ranked = ranked[:MaxCandidates]
	}
	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.name
	}
	return out
}
