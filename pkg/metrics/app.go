package metrics

// App bundles the service-level metrics the API server records. The NHTSA
// client registers its own counters against the same Registry, so a single
// Render covers both.
type App struct {
	Registry *Registry

	AnalysisRuns     *Counter
	AnalysisErrors   *Counter
	SearchQueries    *Counter
	CacheClears      *Counter
	AnalysisDuration *Histogram
}

// NewApp creates the service metric set on reg.
func NewApp(reg *Registry) *App {
	return &App{
		Registry:         reg,
		AnalysisRuns:     reg.Counter("analysis_runs_total", "Completed vehicle analysis runs"),
		AnalysisErrors:   reg.Counter("analysis_errors_total", "Vehicle analysis runs that returned an error"),
		SearchQueries:    reg.Counter("search_queries_total", "Complaint text-search queries served"),
		CacheClears:      reg.Counter("cache_clears_total", "Cache clear operations"),
		AnalysisDuration: reg.Histogram("analysis_duration_seconds", "Wall time per analysis run", nil),
	}
}
