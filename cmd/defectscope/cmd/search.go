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
	searchVIN    string
	searchMake   string
	searchModel  string
	searchYear   int
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search complaint narratives for a vehicle",
	Long: `Fetch complaints for a vehicle and rank them against a free-text query.

Examples:
  # Basic search
  defectscope search "brake failure" --make HONDA --model CIVIC --year 2020

  # Limit results
  defectscope search "engine stall" --vin 1HGBH41JXMN109186 --limit 5

  # JSON output for scripting
  defectscope search "airbag" --make TOYOTA --model CAMRY --year 2019 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchVIN, "vin", "", "17-character VIN")
	searchCmd.Flags().StringVar(&searchMake, "make", "", "Vehicle make")
	searchCmd.Flags().StringVar(&searchModel, "model", "", "Vehicle model")
	searchCmd.Flags().IntVar(&searchYear, "year", 0, "Model year")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]

	analyzer, _, _, err := newAnalyzer(true)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	report, err := analyzer.AnalyzeVehicle(ctx, analyze.Request{
		VIN:   searchVIN,
		Make:  searchMake,
		Model: searchModel,
		Year:  searchYear,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	hits := analyze.SearchComplaints(report.Complaints, query, searchLimit)
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results for %s:\n\n", len(hits), report.Vehicle.String())
	for i, hit := range hits {
		c := hit.Complaint
		fmt.Printf("--- Result %d (score %.3f) ---\n", i+1, hit.Score)
		fmt.Printf("ODI:        %d\n", c.ODINumber)
		fmt.Printf("Components: %s\n", c.Components)
		text := c.Summary
		if c.Enrichment != nil && c.Enrichment.Description != "" {
			text = c.Enrichment.Description
		}
		fmt.Printf("Narrative:\n%s\n\n", truncate(text, 500))
	}
	return nil
}
