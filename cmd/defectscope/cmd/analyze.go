package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/defectscope/defectscope/engine/analyze"
	"github.com/spf13/cobra"
)

var (
	analyzeVIN      string
	analyzeMake     string
	analyzeModel    string
	analyzeYear     int
	analyzeNoDetail bool
	analyzeFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full analysis for a vehicle",
	Long: `Fetch recalls and complaints for a vehicle and summarize them.

Examples:
  # By make/model/year
  defectscope analyze --make BMW --model "3 Series" --year 2018

  # By VIN
  defectscope analyze --vin 1HGBH41JXMN109186

  # Skip per-complaint detail enrichment
  defectscope analyze --make HONDA --model CIVIC --year 2020 --no-detail

  # JSON output for scripting
  defectscope analyze --make FORD --model F-150 --year 2019 --format json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeVIN, "vin", "", "17-character VIN")
	analyzeCmd.Flags().StringVar(&analyzeMake, "make", "", "Vehicle make")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Vehicle model")
	analyzeCmd.Flags().IntVar(&analyzeYear, "year", 0, "Model year")
	analyzeCmd.Flags().BoolVar(&analyzeNoDetail, "no-detail", false, "Skip per-complaint detail enrichment")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "Output format: text or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer, _, _, err := newAnalyzer(!analyzeNoDetail)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	report, err := analyzer.AnalyzeVehicle(ctx, analyze.Request{
		VIN:   analyzeVIN,
		Make:  analyzeMake,
		Model: analyzeModel,
		Year:  analyzeYear,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeFormat == "json" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printReport(report)
	return nil
}

func printReport(report *analyze.Report) {
	fmt.Printf("Vehicle:  %s\n", report.Vehicle.String())
	if report.ResolvedModel != "" {
		fmt.Printf("Resolved: %s\n", report.ResolvedModel)
	}
	fmt.Printf("Outcome:  %s\n", report.Outcome)
	for _, w := range report.Warnings {
		fmt.Printf("Note:     %s\n", w)
	}
	fmt.Println()

	fmt.Printf("Recalls: %d\n", len(report.Recalls))
	for i, rec := range report.Recalls {
		fmt.Printf("  %d. [%s] %s: %s\n", i+1, rec.CampaignNumber, rec.Component, truncate(rec.Summary, 120))
	}
	fmt.Println()

	fmt.Printf("Complaints: %d (detail fetched for %d of %d requested)\n",
		len(report.Complaints), report.EnrichStats.Enriched, report.EnrichStats.Requested)
	fmt.Printf("Severity: crashes=%d fires=%d injuries=%d deaths=%d\n",
		report.Severity.Crash, report.Severity.Fire, report.Severity.Injuries, report.Severity.Deaths)
	fmt.Println()

	if len(report.Components) > 0 {
		fmt.Println("Top components:")
		top := report.Components
		if len(top) > 10 {
			top = top[:10]
		}
		for _, c := range top {
			fmt.Printf("  %-30s %4d  (%.1f%%)\n", c.Component, c.Count, c.Share*100)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
