package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"noteflow/internal/apperr"
	"noteflow/internal/services/notes"

	"golang.org/x/sync/errgroup"
)

// PipelineOptions tunes how chunks are embedded.
type PipelineOptions struct {
	BatchSize   int
	Concurrency int
}

// Pipeline keeps a note's vector namespace equal to its latest content.
type Pipeline struct {
	chunker  Chunker
	embedder Embedder
	index    VectorIndex
	opts     PipelineOptions
	metrics  *Metrics
	log      *slog.Logger
}

// NewPipeline creates an indexing pipeline. metrics may be nil.
func NewPipeline(chunker Chunker, embedder Embedder, index VectorIndex, opts PipelineOptions, metrics *Metrics, log *slog.Logger) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		opts:     opts,
		metrics:  metrics,
		log:      log,
	}
}

// Index replaces the note namespace in two phases: every chunk is embedded
// first, then the namespace is deleted and the new records inserted. An
// embedding failure leaves the old namespace as it was. Between the delete
// and the insert a reader may see an empty namespace.
func (p *Pipeline) Index(ctx context.Context, n *notes.Note) (err error) {
	defer func() { p.metrics.index("index", err) }()

	if n == nil || n.ID == "" {
		return apperr.New(apperr.ErrInvalidArgument, "note id is required")
	}

	chunks := p.chunker.ChunkNote(n)
	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := p.deleteNamespace(ctx, n.ID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		p.log.Debug("note has no content, namespace left empty", "note_id", n.ID)
		return nil
	}

	revision := n.UpdatedAt.UnixNano()
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		md := c.Metadata
		md.Revision = revision
		records[i] = Record{
			ID:       fmt.Sprintf("%s:%d", n.ID, c.Index),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: md,
		}
	}

	for start := 0; start < len(records); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(records))
		if err := p.index.Upsert(ctx, n.ID, records[start:end]); err != nil {
			return apperr.Wrap(ErrVectorIndex, ErrVectorIndex.Msg, err)
		}
	}

	p.log.Debug("note indexed", "note_id", n.ID, "chunks", len(records))
	return nil
}

// Remove deletes the note namespace. An absent namespace counts as removed.
func (p *Pipeline) Remove(ctx context.Context, noteID string) (err error) {
	defer func() { p.metrics.index("remove", err) }()
	return p.deleteNamespace(ctx, noteID)
}

func (p *Pipeline) deleteNamespace(ctx context.Context, noteID string) error {
	err := p.index.DeleteNamespace(ctx, noteID)
	if err == nil || errors.Is(err, ErrNamespaceNotFound) {
		return nil
	}
	return apperr.Wrap(ErrVectorIndex, ErrVectorIndex.Msg, err)
}

// embed runs the batches with bounded concurrency and returns the vectors
// in chunk order.
func (p *Pipeline) embed(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}

			began := time.Now()
			vecs, err := p.embedder.Embed(gctx, texts)
			p.metrics.batch(time.Since(began).Seconds())
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(ErrEmbed, ErrEmbed.Msg, err)
	}
	return out, nil
}
