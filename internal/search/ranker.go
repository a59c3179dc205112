package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrItemNotFound is returned when a row (or the name resolving to it) is not in the catalog
var ErrItemNotFound = errors.New("item not found")

// RankRow orders row positions by descending score, ties by ascending position.
// exclude drops one position from the result; pass -1 to keep all.
func RankRow(scores []float64, exclude int) []int {
	ranked := make([]int, 0, len(scores))
	for i := range scores {
		if i != exclude {
			ranked = append(ranked, i)
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		sa, sb := scores[ranked[a]], scores[ranked[b]]
		if sa != sb {
			return sa > sb
		}
		return ranked[a] < ranked[b]
	})
	return ranked
}

// RankByItem returns the k rows most similar to row, never including row itself.
// Other rows tying with it at 1.0 are kept. k <= 0 disables truncation.
func RankByItem(row int, m *SimilarityMatrix, k int) ([]int, error) {
	if row < 0 || row >= m.Len() {
		return nil, fmt.Errorf("row %d: %w", row, ErrItemNotFound)
	}

	ranked := RankRow(m.Row(row), row)
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// RankByQuery ranks the whole catalog against an attribute list joined with
// single spaces. The query is synthetic, so nothing is excluded or truncated.
func RankByQuery(attributes []string, cv *CountVectorizer, vocab *Vocabulary, vectors []FeatureVector) []int {
	ranked, _ := ScoreQuery(attributes, cv, vocab, vectors)
	return ranked
}

// ScoreQuery is RankByQuery that also returns the score of every row
func ScoreQuery(attributes []string, cv *CountVectorizer, vocab *Vocabulary, vectors []FeatureVector) ([]int, []float64) {
	query := cv.Transform(strings.Join(attributes, " "), vocab)
	scores := SimilarityRow(query, vectors)
	return RankRow(scores, -1), scores
}
