// Package index provides an exact (flat) inner-product index over
// L2-normalised vectors. Scores are cosine similarities.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"ragindex/internal/domain"
)

// State is the lifecycle state of a Flat index.
type State int

const (
	Empty State = iota
	Built
)

func (s State) String() string {
	if s == Built {
		return "built"
	}
	return "empty"
}

// Hit is one search result: the ordinal of the matched vector in insertion
// order and its inner product with the query.
type Hit struct {
	Ordinal int
	Score   float64
}

// Flat is an exhaustive nearest-neighbour index. A built Flat is never
// mutated, so concurrent Search calls are safe; Build and Restore replace
// the contents wholesale and must not run concurrently with Search.
type Flat struct {
	dimension int
	vectors   [][]float32
}

func NewFlat() *Flat { return &Flat{} }

// State reports whether the index holds vectors.
func (f *Flat) State() State {
	if len(f.vectors) == 0 {
		return Empty
	}
	return Built
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Dimension returns the shared vector dimension, or 0 when empty.
func (f *Flat) Dimension() int { return f.dimension }

// Build copies and normalises vectors and replaces the index contents.
// On error the previous contents are kept.
func (f *Flat) Build(vectors [][]float32) error {
	if len(vectors) == 0 {
		return domain.ErrEmptyCorpus
	}
	dim, err := checkDimensions(vectors)
	if err != nil {
		return err
	}
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		c := make([]float32, len(v))
		copy(c, v)
		Normalize(c)
		normalized[i] = c
	}
	f.dimension = dim
	f.vectors = normalized
	return nil
}

// Restore replaces the contents with vectors that are already normalised,
// such as vectors read back from a store. The slices are retained as is so
// that scores match the index that was saved bit for bit.
func (f *Flat) Restore(vectors [][]float32) error {
	if len(vectors) == 0 {
		return domain.ErrEmptyCorpus
	}
	dim, err := checkDimensions(vectors)
	if err != nil {
		return err
	}
	f.dimension = dim
	f.vectors = vectors
	return nil
}

// Vectors returns the stored normalised vectors. Callers must not modify them.
func (f *Flat) Vectors() [][]float32 { return f.vectors }

// Search returns up to k hits ranked by descending score. Ties keep
// insertion order. An empty index yields no hits.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if f.State() == Empty || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dimension)
	}
	q := make([]float32, len(query))
	copy(q, query)
	Normalize(q)

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Ordinal: i, Score: dot(v, q)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Normalize scales v to unit L2 length in place. Zero vectors are left as is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

func checkDimensions(vectors [][]float32) (int, error) {
	dim := len(vectors[0])
	if dim == 0 {
		return 0, errors.New("vector dimension must be positive")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return dim, nil
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
