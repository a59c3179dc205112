package search

import (
	"errors"
	"math"
	"sort"
)

// ErrEmptyCorpus is returned by Fit when no token can be derived from the corpus
var ErrEmptyCorpus = errors.New("empty corpus: no tokens to build a vocabulary from")

// Vocabulary maps tokens to matrix columns. It is frozen once Fit returns it.
type Vocabulary struct {
	index map[string]int
	terms []string
}

// Len is the vocabulary size V
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Index returns the column assigned to token
func (v *Vocabulary) Index(token string) (int, bool) {
	col, ok := v.index[token]
	return col, ok
}

// Terms returns the tokens ordered by column
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// Entry is one non-zero cell of a FeatureVector
type Entry struct {
	Column int `json:"column"`
	Count  int `json:"count"`
}

// FeatureVector is a sparse count vector, sorted by Column, holding only positive counts
type FeatureVector []Entry

// SquaredNorm is the integer sum of squared counts
func (fv FeatureVector) SquaredNorm() int {
	var sum int
	for _, e := range fv {
		sum += e.Count * e.Count
	}
	return sum
}

// Norm is the Euclidean length
func (fv FeatureVector) Norm() float64 {
	return math.Sqrt(float64(fv.SquaredNorm()))
}

// CountVectorizer learns a vocabulary once and encodes text as token counts
type CountVectorizer struct {
	MinTokenLength int
}

// NewCountVectorizer drops tokens shorter than minTokenLength runes (at least 1)
func NewCountVectorizer(minTokenLength int) *CountVectorizer {
	if minTokenLength < 1 {
		minTokenLength = 1
	}
	return &CountVectorizer{MinTokenLength: minTokenLength}
}

// Fit assigns every distinct corpus token a column in ascending token order
func (cv *CountVectorizer) Fit(corpus []string) (*Vocabulary, error) {
	seen := make(map[string]struct{})
	for _, doc := range corpus {
		for _, token := range Tokenize(doc, cv.MinTokenLength) {
			seen[token] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil, ErrEmptyCorpus
	}

	terms := make([]string, 0, len(seen))
	for token := range seen {
		terms = append(terms, token)
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	for col, token := range terms {
		index[token] = col
	}

	return &Vocabulary{index: index, terms: terms}, nil
}

// Transform counts the known tokens of text. Tokens outside vocab are ignored.
func (cv *CountVectorizer) Transform(text string, vocab *Vocabulary) FeatureVector {
	counts := make(map[int]int)
	for _, token := range Tokenize(text, cv.MinTokenLength) {
		if col, ok := vocab.Index(token); ok {
			counts[col]++
		}
	}

	if len(counts) == 0 {
		return nil
	}

	vec := make(FeatureVector, 0, len(counts))
	for col, count := range counts {
		vec = append(vec, Entry{Column: col, Count: count})
	}
	sort.Slice(vec, func(i, j int) bool {
		return vec[i].Column < vec[j].Column
	})
	return vec
}

// TransformAll encodes each document of corpus
func (cv *CountVectorizer) TransformAll(corpus []string, vocab *Vocabulary) []FeatureVector {
	vectors := make([]FeatureVector, len(corpus))
	for i, doc := range corpus {
		vectors[i] = cv.Transform(doc, vocab)
	}
	return vectors
}
