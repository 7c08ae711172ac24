// ABOUTME: Ingestion pipeline: load URLs and files concurrently, then rebuild the index
// ABOUTME: Per-source failures are recorded in the report and never abort the batch
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/harper/finassist/internal/models"
	"github.com/harper/finassist/internal/storage"
)

const defaultConcurrency = 4

var tracer = otel.Tracer("github.com/harper/finassist/ingest")

// Loader turns one source into document texts
type Loader interface {
	Load(ctx context.Context, source string) ([]string, error)
}

// Indexer replaces the retrieval index with one built from texts
type Indexer interface {
	Rebuild(ctx context.Context, texts, sources []string) (int, error)
}

// Pipeline loads sources and hands their text to an Indexer
type Pipeline struct {
	web         Loader
	files       Loader
	indexer     Indexer
	concurrency int
	logger      *log.Logger
}

// Options tunes a Pipeline
type Options struct {
	Concurrency int
	Logger      *log.Logger
}

// NewPipeline creates an ingestion pipeline
func NewPipeline(web, files Loader, indexer Indexer, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Pipeline{
		web:         web,
		files:       files,
		indexer:     indexer,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

type loaded struct {
	result models.SourceResult
	texts  []string
}

// Ingest loads every source and rebuilds the index from whatever text was
// collected. With no text at all the index is left disabled.
func (p *Pipeline) Ingest(ctx context.Context, urls, files []string) models.IngestionReport {
	ctx, span := tracer.Start(ctx, "ingest.run")
	defer span.End()
	span.SetAttributes(attribute.Int("ingest.urls", len(urls)), attribute.Int("ingest.files", len(files)))

	type job struct {
		source string
		kind   models.SourceKind
		loader Loader
	}
	var jobs []job
	for _, u := range urls {
		jobs = append(jobs, job{source: strings.TrimSpace(u), kind: models.SourceURL, loader: p.web})
	}
	for _, f := range files {
		jobs = append(jobs, job{source: strings.TrimSpace(f), kind: models.SourceFile, loader: p.files})
	}

	results := make([]loaded, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = p.load(gctx, j.source, j.kind, j.loader)
			return nil
		})
	}
	_ = g.Wait()

	report := models.IngestionReport{Sources: make([]models.SourceResult, 0, len(results))}
	var texts, labels []string
	for _, r := range results {
		report.Sources = append(report.Sources, r.result)
		for _, t := range r.texts {
			texts = append(texts, t)
			labels = append(labels, r.result.Source)
		}
	}

	chunks, err := p.indexer.Rebuild(ctx, texts, labels)
	switch {
	case errors.Is(err, storage.ErrEmptyCorpus):
		report.Status = models.StatusNoData
		p.logger.Warn("no data loaded from sources, retrieval disabled", "sources", len(jobs))
	case err != nil:
		report.Status = models.StatusIndexFail
		report.Error = err.Error()
		p.logger.Error("indexing failed", "err", err)
	default:
		report.Indexed = true
		report.Chunks = chunks
		report.Status = models.StatusIndexed
		if len(report.Failed()) > 0 {
			report.Status = models.StatusPartial
		}
	}

	span.SetAttributes(attribute.String("ingest.status", report.Status), attribute.Int("ingest.chunks", report.Chunks))
	return report
}

func (p *Pipeline) load(ctx context.Context, source string, kind models.SourceKind, loader Loader) (out loaded) {
	out.result = models.SourceResult{Source: source, Kind: kind}

	defer func() {
		if r := recover(); r != nil {
			out.texts = nil
			out.result.Segments = 0
			out.result.Error = fmt.Sprintf("loader panicked: %v", r)
			p.logger.Error("source failed", "source", source, "kind", kind, "err", out.result.Error)
		}
	}()

	if source == "" {
		out.result.Error = "empty source"
		return out
	}
	if loader == nil {
		out.result.Error = fmt.Sprintf("no loader for %s sources", kind)
		return out
	}

	texts, err := loader.Load(ctx, source)
	if err != nil {
		out.result.Error = err.Error()
		p.logger.Warn("source failed", "source", source, "kind", kind, "err", err)
		return out
	}
	if len(texts) == 0 {
		out.result.Error = "no text extracted"
		p.logger.Warn("source had no text", "source", source, "kind", kind)
		return out
	}

	out.texts = texts
	out.result.Segments = len(texts)
	p.logger.Info("source loaded", "source", source, "kind", kind, "segments", len(texts))
	return out
}
