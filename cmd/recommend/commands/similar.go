package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var similarK int

// NewSimilarCmd creates the similar command
func NewSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <product name>",
		Short: "List the products most similar to a catalog product",
		Long: `List the k products whose attributes are closest to the named product.

The product itself is never part of its own list. When several rows share a
name, the first one in the catalog is used.

Examples:
  recommend similar "Classic Shirt"
  recommend similar "Classic Shirt" --k 3 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runSimilar,
	}

	cmd.Flags().IntVar(&similarK, "k", 10, "Number of products to return")

	return cmd
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if similarK <= 0 {
		return fmt.Errorf("k must be positive, got %d", similarK)
	}

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	recs, err := snap.SimilarTo(args[0], similarK)
	if err != nil {
		return err
	}

	return printRecommendations(cmd.OutOrStdout(), recs)
}
