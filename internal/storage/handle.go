// ABOUTME: Handle is the single swappable reference to the live retrieval index
// ABOUTME: Readers load atomically; writers publish fully built indexes under a mutex
package storage

import (
	"sync"
	"sync/atomic"

	"github.com/harper/finassist/internal/models"
)

// Handle owns the current index. A nil index is the disabled state.
type Handle struct {
	current atomic.Pointer[Index]
	mu      sync.Mutex // serializes writers so Add never loses a concurrent Replace
}

// NewHandle creates a handle, optionally seeded with an index
func NewHandle(initial *Index) *Handle {
	h := &Handle{}
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// Load returns the current index, or nil when retrieval is disabled
func (h *Handle) Load() *Index {
	return h.current.Load()
}

// Enabled reports whether an index is installed
func (h *Handle) Enabled() bool {
	return h.current.Load().Len() > 0
}

// Replace installs idx wholesale; nil disables retrieval
func (h *Handle) Replace(idx *Index) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Store(idx)
}

// Reset disables retrieval
func (h *Handle) Reset() {
	h.Replace(nil)
}

// Add merges addition into the current index and publishes the result
func (h *Handle) Add(addition *Index) (*Index, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	merged, err := Merge(h.current.Load(), addition)
	if err != nil {
		return nil, err
	}
	h.current.Store(merged)
	return merged, nil
}

// Query searches the current index; a disabled handle yields no hits
func (h *Handle) Query(vector []float64, k int) ([]models.ScoredChunk, error) {
	return h.current.Load().Query(vector, k)
}

// Stats describes the live index
type Stats struct {
	Enabled   bool `json:"enabled"`
	Chunks    int  `json:"chunks"`
	Dimension int  `json:"dimension"`
}

// Stats reports the size of the current index
func (h *Handle) Stats() Stats {
	idx := h.current.Load()
	return Stats{
		Enabled:   idx.Len() > 0,
		Chunks:    idx.Len(),
		Dimension: idx.Dimension(),
	}
}
