// ABOUTME: Retrieval service: query path over the live index plus rebuild and incremental add
// ABOUTME: Embeds chunks on a bounded worker pool and publishes indexes through the handle
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/harper/finassist/internal/core"
	"github.com/harper/finassist/internal/embedding"
	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/storage"
)

const (
	// DefaultTopK matches the number of passages the narrative prompt was tuned for
	DefaultTopK      = 2
	defaultWorkers   = 4
	defaultBatchSize = 32
)

var tracer = otel.Tracer("github.com/harper/finassist/retrieval")

// Options tunes a Service; zero values take defaults
type Options struct {
	TopK      int
	Workers   int
	BatchSize int
	Logger    *log.Logger
}

// Service owns the query and write paths of the retrieval index
type Service struct {
	handle    *storage.Handle
	chunker   *core.ChunkEngine
	embedder  embedding.Provider
	topK      int
	workers   int
	batchSize int
	logger    *log.Logger
}

// NewService creates a retrieval service over handle
func NewService(handle *storage.Handle, chunker *core.ChunkEngine, embedder embedding.Provider, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Service{
		handle:    handle,
		chunker:   chunker,
		embedder:  embedder,
		topK:      opts.TopK,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}
}

// TopK returns the default number of passages per query
func (s *Service) TopK() int { return s.topK }

// Stats reports the live index size
func (s *Service) Stats() storage.Stats { return s.handle.Stats() }

// Retrieve returns the default top-k passages for query, best first.
// A disabled index is a success with no passages.
func (s *Service) Retrieve(ctx context.Context, query string) models.Result[[]string] {
	hits, err := s.Search(ctx, query, s.topK)
	if err != nil {
		return models.Failure[[]string](classify(err), fmt.Sprintf("retrieval failed: %v", err))
	}
	return models.Success(models.Texts(hits))
}

// Search returns up to k scored chunks for query
func (s *Service) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	ctx, span := tracer.Start(ctx, "retrieval.search")
	defer span.End()

	idx := s.handle.Load()
	span.SetAttributes(attribute.Int("retrieval.index.chunks", idx.Len()), attribute.Int("retrieval.k", k))
	if idx.Len() == 0 || strings.TrimSpace(query) == "" {
		return []models.ScoredChunk{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors: %w", len(vectors), storage.ErrDimensionMismatch)
	}

	// Query the snapshot we loaded so a concurrent swap cannot change the dimension under us
	hits, err := idx.Query(vectors[0], k)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return hits, nil
}

// Rebuild replaces the live index with one built from texts.
// Zero chunks disables retrieval and returns storage.ErrEmptyCorpus.
func (s *Service) Rebuild(ctx context.Context, texts, sources []string) (int, error) {
	ctx, span := tracer.Start(ctx, "retrieval.rebuild")
	defer span.End()

	chunks := s.chunker.ChunkTexts(texts, sources)
	span.SetAttributes(attribute.Int("retrieval.chunks", len(chunks)))
	if len(chunks) == 0 {
		s.handle.Reset()
		return 0, storage.ErrEmptyCorpus
	}

	idx, err := s.buildIndex(ctx, chunks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	s.handle.Replace(idx)
	s.logger.Info("index rebuilt", "chunks", idx.Len(), "dimension", idx.Dimension(), "embedder", s.embedder.Name())
	return idx.Len(), nil
}

// AddText chunks and embeds one text and merges it into the live index
func (s *Service) AddText(ctx context.Context, text, source string) (int, error) {
	ctx, span := tracer.Start(ctx, "retrieval.add_text")
	defer span.End()

	chunks := s.chunker.ChunkTexts([]string{text}, []string{source})
	if len(chunks) == 0 {
		return 0, storage.ErrEmptyCorpus
	}

	addition, err := s.buildIndex(ctx, chunks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	merged, err := s.handle.Add(addition)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("merge index: %w", err)
	}
	s.logger.Debug("text added", "chunks", addition.Len(), "total", merged.Len())
	return addition.Len(), nil
}

func (s *Service) buildIndex(ctx context.Context, chunks []models.Chunk) (*storage.Index, error) {
	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}
	idx, err := storage.Build(chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

// embedChunks fills chunk vectors in place, one batch per worker slot
func (s *Service) embedChunks(ctx context.Context, chunks []models.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := s.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end, len(vectors), len(batch))
			}
			for i := range batch {
				batch[i].Vector = vectors[i]
			}
			return nil
		})
	}

	return g.Wait()
}

func classify(err error) models.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.KindTimeout
	case errors.Is(err, storage.ErrDimensionMismatch):
		return models.KindResponseShape
	default:
		return models.KindUnavailable
	}
}
