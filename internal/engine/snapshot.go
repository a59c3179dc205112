package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/knowledge-engine/recommender/internal/catalog"
	"github.com/knowledge-engine/recommender/internal/search"
)

// ItemNotFoundError is returned when a product name is not in the name index
type ItemNotFoundError struct {
	Name string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.Name)
}

func (e *ItemNotFoundError) Unwrap() error {
	return search.ErrItemNotFound
}

// Recommendation is a ranked catalog item with its cosine score
type Recommendation struct {
	Item  catalog.Item `json:"item"`
	Score float64      `json:"score"`
}

// SnapshotOptions tune how a snapshot is built
type SnapshotOptions struct {
	MinTokenLength int
	Workers        int
	Source         string
}

// Snapshot is everything ranking needs, built once and never mutated.
// A catalog change produces a new Snapshot.
type Snapshot struct {
	ID            string
	Source        string
	BuiltAt       time.Time
	BuildDuration time.Duration

	Items      []catalog.Item
	Names      *catalog.NameIndex
	Vectorizer *search.CountVectorizer
	Vocabulary *search.Vocabulary
	Vectors    []search.FeatureVector
	Matrix     *search.SimilarityMatrix
}

// BuildSnapshot fits the vocabulary over the feature texts and precomputes the matrix
func BuildSnapshot(ctx context.Context, items []catalog.Item, opts SnapshotOptions) (*Snapshot, error) {
	started := time.Now()

	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = search.DefaultMinTokenLength
	}

	corpus := make([]string, len(items))
	for i, item := range items {
		corpus[i] = item.FeatureText
	}

	cv := search.NewCountVectorizer(opts.MinTokenLength)
	vocab, err := cv.Fit(corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to fit vocabulary: %w", err)
	}

	vectors := cv.TransformAll(corpus, vocab)

	matrix, err := search.NewSimilarityMatrix(ctx, vectors, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity matrix: %w", err)
	}

	return &Snapshot{
		ID:            uuid.NewString(),
		Source:        opts.Source,
		BuiltAt:       time.Now(),
		BuildDuration: time.Since(started),
		Items:         items,
		Names:         catalog.NewNameIndex(items),
		Vectorizer:    cv,
		Vocabulary:    vocab,
		Vectors:       vectors,
		Matrix:        matrix,
	}, nil
}

// Len is the catalog size
func (s *Snapshot) Len() int {
	return len(s.Items)
}

// Item returns the item at row
func (s *Snapshot) Item(row int) (catalog.Item, error) {
	if row < 0 || row >= len(s.Items) {
		return catalog.Item{}, fmt.Errorf("row %d: %w", row, search.ErrItemNotFound)
	}
	return s.Items[row], nil
}

// SimilarTo ranks the k items closest to the first item named name
func (s *Snapshot) SimilarTo(name string, k int) ([]Recommendation, error) {
	row, ok := s.Names.Lookup(name)
	if !ok {
		return nil, &ItemNotFoundError{Name: name}
	}
	return s.SimilarToRow(row, k)
}

// SimilarToRow ranks the k items closest to row, row itself excluded
func (s *Snapshot) SimilarToRow(row, k int) ([]Recommendation, error) {
	ranked, err := search.RankByItem(row, s.Matrix, k)
	if err != nil {
		return nil, err
	}
	return s.resolve(ranked, s.Matrix.Row(row)), nil
}

// SimilarToAttributes ranks the full catalog against an ad-hoc attribute list
func (s *Snapshot) SimilarToAttributes(attributes []string) []Recommendation {
	ranked, scores := search.ScoreQuery(attributes, s.Vectorizer, s.Vocabulary, s.Vectors)
	return s.resolve(ranked, scores)
}

func (s *Snapshot) resolve(ranked []int, scores []float64) []Recommendation {
	out := make([]Recommendation, len(ranked))
	for i, row := range ranked {
		out[i] = Recommendation{Item: s.Items[row], Score: scores[row]}
	}
	return out
}
