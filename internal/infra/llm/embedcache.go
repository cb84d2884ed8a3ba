// Query-embedding cache. Wraps a Provider so repeated questions skip the
// embedding round-trip. Only Embed is decorated; chat completions pass
// through untouched. Ingestion builds its own provider without the wrapper so
// corpus vectors are always fresh.
package llm

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

type cachedProvider struct {
	Provider
	cache *expirable.LRU[string, []float32]
}

// WrapEmbedCache decorates p with an expiring LRU over single-text embed
// calls. Returns p unchanged when size or ttl is non-positive. Batch requests
// are served per-text: hits come from the cache, misses go upstream in one
// call.
func WrapEmbedCache(p Provider, size int, ttl time.Duration) Provider {
	if p == nil || size <= 0 || ttl <= 0 {
		return p
	}
	return &cachedProvider{
		Provider: p,
		cache:    expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *cachedProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	model := req.Model
	if model == "" {
		model = c.ModelInfo().EmbedModel
	}

	out := make([][]float32, len(req.Texts))
	missIdx := make([]int, 0, len(req.Texts))
	missTexts := make([]string, 0, len(req.Texts))
	for i, text := range req.Texts {
		if vec, ok := c.cache.Get(cacheKey(model, text)); ok {
			out[i] = cloneVector(vec)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return &EmbedResponse{Embeddings: out}, nil
	}

	resp, err := c.Provider.Embed(ctx, EmbedRequest{Model: req.Model, Texts: missTexts})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(missTexts) {
		return nil, errs.Upstreamf("embed response count mismatch: want %d, got %d", len(missTexts), len(resp.Embeddings))
	}
	for j, i := range missIdx {
		vec := resp.Embeddings[j]
		c.cache.Add(cacheKey(model, req.Texts[i]), cloneVector(vec))
		out[i] = vec
	}
	return &EmbedResponse{Embeddings: out}, nil
}

func cacheKey(model, text string) string {
	return model + "\x00" + text
}

// cloneVector copies a cached vector so callers cannot mutate cache entries.
func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
