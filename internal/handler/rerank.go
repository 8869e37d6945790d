package handler

import (
	"context"
	"math"
	"sort"

	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

// ScoredDocument is one ranked result from RerankDocuments or
// SemanticSearch.
type ScoredDocument struct {
	Index int
	Text  string
	Score float64
}

// RerankDocuments scores docs against query and returns the top_k (all,
// if top_k <= 0) sorted by descending score. If the loaded model's
// pipeline implements pipeline.Scorer (a genuine cross-encoder), that is
// used directly; otherwise docs and the query are embedded and ranked by
// cosine similarity, the authoritative fallback behavior.
func (h *Handler) RerankDocuments(ctx context.Context, modelID, query string, docs []string, topK int) ([]ScoredDocument, error) {
	lm, err := h.modelFor(modelID)
	if err != nil {
		return nil, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return nil, err
	}

	lm.GenLock.Lock()
	defer lm.GenLock.Unlock()

	query = normalizeText(query)
	docs = normalizeTexts(docs)

	p := pipeline.Dispatch(lm.Descriptor)
	if scorer, ok := p.(pipeline.Scorer); ok {
		scored := make([]ScoredDocument, len(docs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, d := range docs {
			i, d := i, d
			g.Go(func() error {
				s, serr := scorer.Score(gctx, lm.Handle, adapter, query, d)
				if serr != nil {
					return serr
				}
				scored[i] = ScoredDocument{Index: i, Text: d, Score: s}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
		}
		return topKSorted(scored, topK), nil
	}

	texts := append([]string{query}, docs...)
	vectors, eerr := p.Embed(ctx, lm.Handle, adapter, texts)
	if eerr != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.NotSupportedByEngine, eerr)
	}
	if len(vectors) != len(texts) {
		return nil, hearthrunerr.New(hearthrunerr.NativeBackend, "embedding count did not match input count")
	}

	queryVec := vectors[0]
	scored := make([]ScoredDocument, len(docs))
	for i, d := range docs {
		scored[i] = ScoredDocument{Index: i, Text: d, Score: cosineSimilarity(queryVec, vectors[i+1])}
	}
	return topKSorted(scored, topK), nil
}

// SemanticSearch ranks docs against query by cosine similarity over their
// embeddings, optionally dropping results below threshold.
func (h *Handler) SemanticSearch(ctx context.Context, modelID, query string, docs []string, k int, threshold float64) ([]ScoredDocument, error) {
	lm, err := h.modelFor(modelID)
	if err != nil {
		return nil, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return nil, err
	}

	lm.GenLock.Lock()
	defer lm.GenLock.Unlock()

	query = normalizeText(query)
	docs = normalizeTexts(docs)

	p := pipeline.Dispatch(lm.Descriptor)
	texts := append([]string{query}, docs...)
	vectors, err := p.Embed(ctx, lm.Handle, adapter, texts)
	if err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.NotSupportedByEngine, err)
	}

	queryVec := vectors[0]
	var scored []ScoredDocument
	for i, d := range docs {
		s := cosineSimilarity(queryVec, vectors[i+1])
		if s < threshold {
			continue
		}
		scored = append(scored, ScoredDocument{Index: i, Text: d, Score: s})
	}
	return topKSorted(scored, k), nil
}

func topKSorted(scored []ScoredDocument, k int) []ScoredDocument {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// cosineSimilarity is undefined (0) for a zero-length vector on either
// side; callers only pass vectors produced by a live embedding call so
// this should not occur in practice.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
