// ABOUTME: ChunkEngine splits document text into fixed-size overlapping segments
// ABOUTME: Pure length-based windowing over runes, front to back
package core

import (
	"github.com/google/uuid"

	"github.com/harper/finassist/internal/models"
)

// DefaultChunkSize is used when a non-positive size is requested
const DefaultChunkSize = 1000

// ChunkEngine applies one chunk size and overlap to every text it sees
type ChunkEngine struct {
	size    int
	overlap int
}

// NewChunkEngine creates a ChunkEngine, normalizing size and overlap
func NewChunkEngine(size, overlap int) *ChunkEngine {
	size, overlap = normalize(size, overlap)
	return &ChunkEngine{size: size, overlap: overlap}
}

// Size returns the maximum segment length in characters
func (ce *ChunkEngine) Size() int { return ce.size }

// Overlap returns how many characters consecutive segments share
func (ce *ChunkEngine) Overlap() int { return ce.overlap }

// Split segments one text
func (ce *ChunkEngine) Split(text string) []string {
	return Split(text, ce.size, ce.overlap)
}

// ChunkTexts splits every text and returns unembedded chunks in source order.
// sources[i] labels texts[i]; a short sources slice leaves the label empty.
func (ce *ChunkEngine) ChunkTexts(texts, sources []string) []models.Chunk {
	var chunks []models.Chunk
	for i, text := range texts {
		source := ""
		if i < len(sources) {
			source = sources[i]
		}
		for _, seg := range ce.Split(text) {
			chunks = append(chunks, models.Chunk{
				ID:     generateChunkID(),
				Source: source,
				Text:   seg,
			})
		}
	}
	return chunks
}

// Split cuts text into consecutive windows of at most chunkSize characters.
// Each window after the first starts overlap characters before the previous one ended.
func Split(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}
	chunkSize, overlap = normalize(chunkSize, overlap)

	// Rune start offsets into text; an invalid byte counts as one rune and is kept as is
	offsets := make([]int, 0, len(text))
	for i := range text {
		offsets = append(offsets, i)
	}
	n := len(offsets)
	if n <= chunkSize {
		return []string{text}
	}
	byteAt := func(r int) int {
		if r >= n {
			return len(text)
		}
		return offsets[r]
	}

	step := chunkSize - overlap
	var segments []string
	for start := 0; start < n; start += step {
		end := min(start+chunkSize, n)
		segments = append(segments, text[byteAt(start):byteAt(end)])
		if end == n {
			break
		}
	}
	return segments
}

func normalize(size, overlap int) (int, int) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return size, overlap
}

// generateChunkID generates a unique chunk ID
func generateChunkID() string {
	return "chunk_" + uuid.New().String()
}
