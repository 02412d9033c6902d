package main

import (
	"os"

	"github.com/defectscope/defectscope/cmd/defectscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
