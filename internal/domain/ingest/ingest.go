// Package ingest embeds the document corpus and writes the vector index
// consumed by the chat service.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/timelessnp/sitechat/internal/domain/corpus"
	"github.com/timelessnp/sitechat/internal/domain/index"
	"github.com/timelessnp/sitechat/internal/infra/llm"
	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

const (
	embedMaxRetries = 3
	embedBaseDelay  = 100 * time.Millisecond
)

// Service turns a document corpus into an index file.
type Service struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewService creates an ingestion service backed by the given provider.
func NewService(provider llm.Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, logger: logger}
}

// Run loads the corpus at corpusPath, embeds every document in one batch,
// and writes the resulting index to indexPath. The write is atomic, so the
// previous index stays intact if any step fails.
func (s *Service) Run(ctx context.Context, corpusPath, indexPath string) (*index.Index, error) {
	docs, err := corpus.Load(corpusPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("corpus loaded",
		zap.String("path", corpusPath),
		zap.Int("documents", len(docs)))

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.EmbeddingInput()
	}

	meta := s.provider.ModelInfo()
	vecs, err := s.embedWithRetry(ctx, llm.EmbedRequest{Model: meta.EmbedModel, Texts: texts})
	if err != nil {
		return nil, errs.Upstreamf("embed corpus: %v", err)
	}
	if len(vecs) != len(docs) {
		return nil, errs.Upstreamf("embedding count mismatch: sent %d texts, got %d vectors", len(docs), len(vecs))
	}

	records := make([]index.Record, len(docs))
	for i, d := range docs {
		records[i] = index.Record{
			ID:        d.ID,
			Title:     d.Title,
			Text:      d.Text,
			Embedding: vecs[i],
		}
	}

	idx, err := index.New(meta.EmbedModel, records)
	if err != nil {
		return nil, err
	}
	if err := idx.Save(indexPath); err != nil {
		return nil, err
	}
	s.logger.Info("index written",
		zap.String("path", indexPath),
		zap.String("embed_model", meta.EmbedModel),
		zap.Int("records", idx.Len()))
	return idx, nil
}

// embedWithRetry calls Provider.Embed with exponential backoff.
// Attempts: embedMaxRetries (100ms, 200ms delays between them).
func (s *Service) embedWithRetry(ctx context.Context, req llm.EmbedRequest) ([][]float32, error) {
	var lastErr error
	delay := embedBaseDelay
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("embed attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		resp, err := s.provider.Embed(ctx, req)
		if err == nil {
			return resp.Embeddings, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", embedMaxRetries, lastErr)
}
