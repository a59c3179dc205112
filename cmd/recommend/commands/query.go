package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryLimit int

// NewQueryCmd creates the query command
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <attribute>...",
		Short: "Rank the catalog against a list of attributes",
		Long: `Rank every catalog product against the given attribute values.

Attributes are joined with spaces and tokenized the same way as catalog rows.
Words that never appear in the catalog are ignored.

Examples:
  recommend query "Women's Clothing" Red S Silk
  recommend query Cotton Blue --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuery,
	}

	cmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "Maximum number of products (0 = whole catalog)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryLimit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", queryLimit)
	}

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	recs := snap.SimilarToAttributes(args)
	if queryLimit > 0 && len(recs) > queryLimit {
		recs = recs[:queryLimit]
	}

	return printRecommendations(cmd.OutOrStdout(), recs)
}
