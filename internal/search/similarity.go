package search

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CosineSimilarity computes dot(a,b) / (|a|*|b|) with a merge-join over the
// sorted entries. Either vector having zero norm yields 0.
func CosineSimilarity(a, b FeatureVector) float64 {
	return cosine(dot(a, b), a.SquaredNorm(), b.SquaredNorm())
}

// cosine keeps the arithmetic symmetric in its norm arguments so that
// cosine(d, x, y) == cosine(d, y, x) bit for bit.
func cosine(product, sqNormA, sqNormB int) float64 {
	if sqNormA == 0 || sqNormB == 0 || product == 0 {
		return 0
	}
	return float64(product) / math.Sqrt(float64(sqNormA)*float64(sqNormB))
}

// SimilarityMatrix is a dense, symmetric N×N table of cosine scores. Read-only.
type SimilarityMatrix struct {
	n     int
	cells []float64
}

// NewSimilarityMatrix scores every pair of vectors. The upper triangle is
// computed across workers (0 means GOMAXPROCS) and mirrored.
func NewSimilarityMatrix(ctx context.Context, vectors []FeatureVector, workers int) (*SimilarityMatrix, error) {
	n := len(vectors)
	m := &SimilarityMatrix{
		n:     n,
		cells: make([]float64, n*n),
	}
	if n == 0 {
		return m, nil
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	norms := make([]int, n)
	for i, v := range vectors {
		norms[i] = v.SquaredNorm()
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		// Interleaved rows balance the shrinking triangle across workers.
		start := w
		g.Go(func() error {
			for i := start; i < n; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				m.fillRow(i, vectors, norms)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// fillRow writes (i, j) and (j, i) for every j >= i. Those cells belong to row i only.
func (m *SimilarityMatrix) fillRow(i int, vectors []FeatureVector, norms []int) {
	if norms[i] > 0 {
		m.cells[i*m.n+i] = 1.0
	}
	for j := i + 1; j < m.n; j++ {
		score := cosine(dot(vectors[i], vectors[j]), norms[i], norms[j])
		m.cells[i*m.n+j] = score
		m.cells[j*m.n+i] = score
	}
}

func dot(a, b FeatureVector) int {
	var sum int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Column == b[j].Column:
			sum += a[i].Count * b[j].Count
			i++
			j++
		case a[i].Column < b[j].Column:
			i++
		default:
			j++
		}
	}
	return sum
}

// Len is the catalog size N
func (m *SimilarityMatrix) Len() int {
	return m.n
}

// At returns the score between rows i and j
func (m *SimilarityMatrix) At(i, j int) float64 {
	return m.cells[i*m.n+j]
}

// Row returns the scores of row i against every row. The slice aliases the
// matrix and must not be modified.
func (m *SimilarityMatrix) Row(i int) []float64 {
	return m.cells[i*m.n : (i+1)*m.n : (i+1)*m.n]
}

// SimilarityRow scores an ad-hoc query against every catalog vector
func SimilarityRow(query FeatureVector, vectors []FeatureVector) []float64 {
	scores := make([]float64, len(vectors))
	qNorm := query.SquaredNorm()
	if qNorm == 0 {
		return scores
	}
	for i, v := range vectors {
		scores[i] = cosine(dot(query, v), qNorm, v.SquaredNorm())
	}
	return scores
}
