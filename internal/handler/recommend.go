package handler

import (
	"context"
	"sort"

	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/pipeline"
)

// RecommendedItem is one scored result from the recommend family.
type RecommendedItem struct {
	Index int
	Text  string
	Score float64
}

// RecommendOptions selects which recommend mode to run and its knobs.
// Exactly one of QueryIndex/QueryEmbedding should be set; when
// QueryEmbedding is nil, items[QueryIndex] is the query. RecommendForProfile
// takes the profile vector as QueryEmbedding.
type RecommendOptions struct {
	K               int
	QueryIndex      int // index into items, -1 if unused
	QueryEmbedding  []float32
	ScoreThreshold  float64
	DiversityWeight float64 // 0 = pure relevance, 1 = pure novelty
}

// RecommendSimilar embeds items (and the query, if QueryEmbedding is
// unset) and returns the k most similar to the query by cosine
// similarity.
func (h *Handler) RecommendSimilar(ctx context.Context, modelID string, items []string, opts RecommendOptions) ([]RecommendedItem, error) {
	vectors, queryVec, err := h.embedWithQuery(ctx, modelID, items, opts)
	if err != nil {
		return nil, err
	}
	scored := scoreByCosine(items, vectors, queryVec)
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if opts.K > 0 && opts.K < len(scored) {
		scored = scored[:opts.K]
	}
	return scored, nil
}

// RecommendForProfile is RecommendSimilar with a score floor: items
// scoring below opts.ScoreThreshold against the profile embedding are
// dropped entirely rather than merely ranked last.
func (h *Handler) RecommendForProfile(ctx context.Context, modelID string, items []string, opts RecommendOptions) ([]RecommendedItem, error) {
	vectors, queryVec, err := h.embedWithQuery(ctx, modelID, items, opts)
	if err != nil {
		return nil, err
	}
	scored := scoreByCosine(items, vectors, queryVec)
	var filtered []RecommendedItem
	for _, s := range scored {
		if s.Score >= opts.ScoreThreshold {
			filtered = append(filtered, s)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	if opts.K > 0 && opts.K < len(filtered) {
		filtered = filtered[:opts.K]
	}
	return filtered, nil
}

// RecommendDiverse runs maximal-marginal-relevance selection: start with
// the most relevant candidate, then repeatedly pick whichever remaining
// candidate maximizes (1-λ)·relevance + λ·(1 - max_similarity_to_selected),
// where λ is opts.DiversityWeight. Candidates are pre-filtered to the top
// 3k by raw relevance before the MMR loop runs.
func (h *Handler) RecommendDiverse(ctx context.Context, modelID string, items []string, opts RecommendOptions) ([]RecommendedItem, error) {
	vectors, queryVec, err := h.embedWithQuery(ctx, modelID, items, opts)
	if err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		return nil, hearthrunerr.New(hearthrunerr.InvalidRequest, "diverse recommendation requires k > 0")
	}

	relevance := scoreByCosine(items, vectors, queryVec)
	sort.SliceStable(relevance, func(i, j int) bool { return relevance[i].Score > relevance[j].Score })

	poolSize := 3 * opts.K
	if poolSize > len(relevance) {
		poolSize = len(relevance)
	}
	pool := relevance[:poolSize]

	var selected []RecommendedItem
	remaining := append([]RecommendedItem(nil), pool...)

	// Seed with the single most relevant candidate.
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	lambda := opts.DiversityWeight
	for len(selected) < opts.K && len(remaining) > 0 {
		bestIdx, bestScore := 0, -1.0
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := cosineSimilarity(vectors[cand.Index], vectors[s.Index]); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := (1-lambda)*cand.Score + lambda*(1-maxSim)
			if mmr > bestScore {
				bestIdx, bestScore = i, mmr
			}
		}
		chosen := remaining[bestIdx]
		chosen.Score = bestScore
		selected = append(selected, chosen)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected, nil
}

func (h *Handler) embedWithQuery(ctx context.Context, modelID string, items []string, opts RecommendOptions) ([][]float32, []float32, error) {
	if len(items) == 0 {
		return nil, nil, hearthrunerr.New(hearthrunerr.InvalidRequest, "recommend requires at least one item")
	}

	lm, err := h.modelFor(modelID)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return nil, nil, err
	}

	lm.GenLock.Lock()
	defer lm.GenLock.Unlock()
	p := pipeline.Dispatch(lm.Descriptor)

	items = normalizeTexts(items)

	if opts.QueryEmbedding != nil {
		vectors, eerr := p.Embed(ctx, lm.Handle, adapter, items)
		if eerr != nil {
			return nil, nil, hearthrunerr.Wrap(hearthrunerr.NotSupportedByEngine, eerr)
		}
		return vectors, opts.QueryEmbedding, nil
	}

	if opts.QueryIndex < 0 || opts.QueryIndex >= len(items) {
		return nil, nil, hearthrunerr.New(hearthrunerr.InvalidRequest, "query_index out of range and no query_embedding supplied")
	}
	vectors, eerr := p.Embed(ctx, lm.Handle, adapter, items)
	if eerr != nil {
		return nil, nil, hearthrunerr.Wrap(hearthrunerr.NotSupportedByEngine, eerr)
	}
	return vectors, vectors[opts.QueryIndex], nil
}

func scoreByCosine(items []string, vectors [][]float32, query []float32) []RecommendedItem {
	out := make([]RecommendedItem, len(items))
	for i, text := range items {
		out[i] = RecommendedItem{Index: i, Text: text, Score: cosineSimilarity(query, vectors[i])}
	}
	return out
}
