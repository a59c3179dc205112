package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/knowledge-engine/recommender/cmd/recommend/commands"
)

// Version information (set by the release build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// CATALOG_PATH and friends may come from .env
	_ = godotenv.Load()

	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
