package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"github.com/knowledge-engine/recommender/internal/engine"
)

// recommendationRow is the JSON shape of one ranked product
type recommendationRow struct {
	Rank        int     `json:"rank"`
	RowIndex    int     `json:"row_index"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Color       string  `json:"color"`
	Size        string  `json:"size"`
	Material    string  `json:"material"`
	Score       float64 `json:"score"`
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}

func printRecommendations(w io.Writer, recs []engine.Recommendation) error {
	rows := make([]recommendationRow, len(recs))
	for i, rec := range recs {
		rows[i] = recommendationRow{
			Rank:        i + 1,
			RowIndex:    rec.Item.RowIndex,
			ProductName: rec.Item.ProductName,
			Category:    rec.Item.Category,
			Color:       rec.Item.Color,
			Size:        rec.Item.Size,
			Material:    rec.Item.Material,
			Score:       rec.Score,
		}
	}

	if outputFormat == "json" {
		return printJSON(w, rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No recommendations")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RANK\tROW\tPRODUCT\tCATEGORY\tCOLOR\tSIZE\tMATERIAL\tSCORE\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%.4f\n",
			r.Rank, r.RowIndex, r.ProductName, r.Category, r.Color, r.Size, r.Material, r.Score)
	}
	return tw.Flush()
}
