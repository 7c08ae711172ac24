// ABOUTME: Chunk represents a bounded text segment paired with its embedding vector
// ABOUTME: ScoredChunk carries a chunk with its similarity to a query vector
package models

import (
	"errors"
	"fmt"
)

// Chunk is one indexed segment of source text
type Chunk struct {
	ID     string    `json:"id"`
	Source string    `json:"source,omitempty"`
	Text   string    `json:"text"`
	Vector []float64 `json:"-"`
}

// ScoredChunk is a query hit, higher Score is closer
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// ValidateDimension checks the chunk vector against the index dimension
func (c Chunk) ValidateDimension(dim int) error {
	if len(c.Vector) == 0 {
		return errors.New("chunk vector cannot be empty")
	}
	if len(c.Vector) != dim {
		return fmt.Errorf("chunk %s has dimension %d, expected %d", c.ID, len(c.Vector), dim)
	}
	return nil
}

// Texts returns the text of each hit in order
func Texts(hits []ScoredChunk) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Chunk.Text)
	}
	return out
}
