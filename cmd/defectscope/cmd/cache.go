package cmd

import (
	"fmt"

	"github.com/defectscope/defectscope/engine/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the on-disk response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached NHTSA responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		removed := store.Clear()
		fmt.Printf("Removed %d cached responses from %s\n", removed, store.Dir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
