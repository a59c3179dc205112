package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVocabCmd creates the vocab command
func NewVocabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab",
		Short: "Print the vocabulary fitted on the catalog",
		Long: `Print every token of the fitted vocabulary in column order.

Examples:
  recommend vocab
  recommend vocab --min-token-length 1 --format json`,
		Args: cobra.NoArgs,
		RunE: runVocab,
	}
}

func runVocab(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	terms := snap.Vocabulary.Terms()
	if outputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), terms)
	}

	for i, term := range terms {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, term)
	}
	return nil
}
