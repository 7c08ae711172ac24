// ABOUTME: Immutable flat vector index with cosine similarity search
// ABOUTME: Built once from chunks, combined with Merge, never mutated in place
package storage

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/harper/finassist/internal/models"
)

var (
	// ErrEmptyCorpus is returned when building an index from zero chunks
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrDimensionMismatch is returned when vectors of different sizes meet
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrDuplicateChunk is returned when two chunks share an ID
	ErrDuplicateChunk = errors.New("duplicate chunk id")
)

// Index is an ordered table of chunks with precomputed vector norms.
// Safe for concurrent readers; it is never modified after Build or Merge.
type Index struct {
	dim    int
	chunks []models.Chunk
	norms  []float64
	ids    map[string]struct{}
}

// Build creates a fresh index from the chunks in order
func Build(chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	dim := len(chunks[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("chunk %s: %w", chunks[0].ID, ErrDimensionMismatch)
	}

	idx := &Index{
		dim:    dim,
		chunks: make([]models.Chunk, 0, len(chunks)),
		norms:  make([]float64, 0, len(chunks)),
		ids:    make(map[string]struct{}, len(chunks)),
	}
	for _, c := range chunks {
		if err := idx.append(c); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Merge returns a new index holding base's chunks followed by addition's.
// Neither input is modified. A nil side yields the other.
func Merge(base, addition *Index) (*Index, error) {
	if base.Len() == 0 {
		return addition, nil
	}
	if addition.Len() == 0 {
		return base, nil
	}
	if base.dim != addition.dim {
		return nil, fmt.Errorf("merge %d into %d: %w", addition.dim, base.dim, ErrDimensionMismatch)
	}

	total := len(base.chunks) + len(addition.chunks)
	merged := &Index{
		dim:    base.dim,
		chunks: make([]models.Chunk, 0, total),
		norms:  make([]float64, 0, total),
		ids:    make(map[string]struct{}, total),
	}
	merged.chunks = append(merged.chunks, base.chunks...)
	merged.norms = append(merged.norms, base.norms...)
	for id := range base.ids {
		merged.ids[id] = struct{}{}
	}
	for i, c := range addition.chunks {
		if _, dup := merged.ids[c.ID]; dup {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, ErrDuplicateChunk)
		}
		merged.ids[c.ID] = struct{}{}
		merged.chunks = append(merged.chunks, c)
		merged.norms = append(merged.norms, addition.norms[i])
	}
	return merged, nil
}

func (idx *Index) append(c models.Chunk) error {
	if err := c.ValidateDimension(idx.dim); err != nil {
		return fmt.Errorf("%v: %w", err, ErrDimensionMismatch)
	}
	if _, dup := idx.ids[c.ID]; dup {
		return fmt.Errorf("chunk %s: %w", c.ID, ErrDuplicateChunk)
	}
	idx.ids[c.ID] = struct{}{}
	idx.chunks = append(idx.chunks, c)
	idx.norms = append(idx.norms, norm(c.Vector))
	return nil
}

// Len returns the number of chunks; zero for a nil index
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.chunks)
}

// Dimension returns the vector size shared by every chunk
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// Chunks returns a copy of the chunks in insertion order
func (idx *Index) Chunks() []models.Chunk {
	if idx == nil {
		return nil
	}
	out := make([]models.Chunk, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// Query returns up to k chunks closest to vector, best first.
// Equal scores keep insertion order. An empty index yields no hits and no error.
func (idx *Index) Query(vector []float64, k int) ([]models.ScoredChunk, error) {
	if idx.Len() == 0 || k <= 0 {
		return []models.ScoredChunk{}, nil
	}
	if len(vector) != idx.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d: %w", len(vector), idx.dim, ErrDimensionMismatch)
	}

	qnorm := norm(vector)
	results := make([]models.ScoredChunk, len(idx.chunks))
	for i, c := range idx.chunks {
		results[i] = models.ScoredChunk{
			Chunk: c,
			Score: cosine(vector, c.Vector, qnorm, idx.norms[i]),
		}
	}

	// Sort by similarity score (descending)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosine(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0.0
	}

	var dotProduct float64
	for i := range a {
		dotProduct += a[i] * b[i]
	}
	return dotProduct / (normA * normB)
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
