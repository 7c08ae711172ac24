// ABOUTME: Provider maps text to fixed-dimension vectors for similarity search
// ABOUTME: Implementations are pluggable; every vector from one provider has the same length
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when Embed is called with no texts
var ErrEmptyInput = errors.New("no texts to embed")

// Provider converts texts into embedding vectors.
// Embed returns one vector per input text, in input order.
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
