package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/recommender/internal/storage"
)

var (
	exportDir string
	exportK   int
)

// exportSummary is what export reports once all sets are written
type exportSummary struct {
	SnapshotID string   `json:"snapshot_id"`
	Directory  string   `json:"directory"`
	Exported   int      `json:"exported"`
	Skipped    []string `json:"skipped_duplicates,omitempty"`
}

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Precompute recommendations for every product",
		Long: `Write the top k similar products of every catalog product to a directory,
one JSON file per product name.

Rows whose name repeats an earlier row are skipped, since lookups by name
always resolve to the first row.

Examples:
  recommend export --out ./exports
  recommend export --out ./exports --k 20`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportDir, "out", "o", "./exports", "Directory for the exported JSON files")
	cmd.Flags().IntVar(&exportK, "k", 10, "Recommendations per product")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportK <= 0 {
		return fmt.Errorf("k must be positive, got %d", exportK)
	}

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}

	store, err := storage.NewFileStorage(exportDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	summary := exportSummary{SnapshotID: snap.ID, Directory: exportDir}
	generated := time.Now().UTC()

	for _, item := range snap.Items {
		if item.ProductName == "" {
			continue
		}
		if first, _ := snap.Names.Lookup(item.ProductName); first != item.RowIndex {
			summary.Skipped = append(summary.Skipped, item.ProductName)
			continue
		}

		recs, err := snap.SimilarToRow(item.RowIndex, exportK)
		if err != nil {
			return err
		}

		set := &storage.RecommendationSet{
			Product:     item.ProductName,
			RowIndex:    item.RowIndex,
			GeneratedAt: generated,
			SnapshotID:  snap.ID,
			Items:       make([]storage.Entry, len(recs)),
		}
		for i, rec := range recs {
			set.Items[i] = storage.Entry{
				RowIndex:    rec.Item.RowIndex,
				ProductName: rec.Item.ProductName,
				Score:       rec.Score,
			}
		}

		if err := store.Save(set); err != nil {
			return fmt.Errorf("saving %q: %w", item.ProductName, err)
		}
		summary.Exported++
	}

	if outputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), summary)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d products to %s\n", summary.Exported, exportDir)
	if len(summary.Skipped) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d duplicate names\n", len(summary.Skipped))
	}
	return nil
}
