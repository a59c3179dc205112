package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/recommender/internal/catalog"
	"github.com/knowledge-engine/recommender/internal/config"
	"github.com/knowledge-engine/recommender/internal/engine"
)

var (
	catalogLocation string
	outputFormat    string
	minTokenLength  int
	verbose         bool
)

// NewRootCmd creates the recommend command tree
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Content-based product recommendations from a CSV catalog",
		Long: `recommend ranks catalog products by how similar their attributes are.

Each product is described by its Category, Color, Size and Material. Products
are compared by the cosine similarity of their token counts.

Examples:
  recommend similar "Classic Shirt" --k 5
  recommend query "Women's Clothing" Red Silk --limit 3
  recommend export --out ./exports
  recommend vocab --format json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "text" && outputFormat != "json" {
				return fmt.Errorf("--format must be text or json, got %q", outputFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&catalogLocation, "catalog", "c", cfg.Catalog.CatalogLocation(), "Catalog CSV path or http(s) URL")
	cmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.PersistentFlags().IntVar(&minTokenLength, "min-token-length", cfg.Ranking.MinTokenLength, "Shortest token kept by the vectorizer")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log catalog loading")

	cmd.AddCommand(NewSimilarCmd())
	cmd.AddCommand(NewQueryCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewVocabCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadSnapshot reads the catalog named by --catalog and builds a ranking snapshot
func loadSnapshot(cmd *cobra.Command) (*engine.Snapshot, error) {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	entry := logger.WithField("component", "cli")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src := catalog.NewSource(catalogLocation, catalog.HTTPSourceOptions{
		Timeout:    cfg.Catalog.FetchTimeout,
		UserAgent:  cfg.Catalog.UserAgent,
		MaxRetries: cfg.Catalog.FetchRetries,
		Backoff:    cfg.Catalog.FetchBackoff,
	}, entry)

	items, err := catalog.LoadSource(ctx, src)
	if err != nil {
		return nil, err
	}

	snap, err := engine.BuildSnapshot(ctx, items, engine.SnapshotOptions{
		MinTokenLength: minTokenLength,
		Workers:        cfg.Ranking.Workers,
		Source:         src.String(),
	})
	if err != nil {
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"items":      snap.Len(),
		"vocabulary": snap.Vocabulary.Len(),
		"duration":   snap.BuildDuration,
	}).Debug("Catalog loaded")

	return snap, nil
}
