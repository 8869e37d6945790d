package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// Scorer is the optional capability a reranking pipeline implements: a
// single relevance score for one (query, document) pair, as opposed to the
// independent per-text vectors Pipeline.Embed produces. The unified
// handler type-asserts for it and falls back to embedding-cosine
// similarity when a pipeline doesn't implement it.
type Scorer interface {
	Score(ctx context.Context, h engine.Handle, a engine.Adapter, query, document string) (float64, error)
}

// crossEncoderPipeline implements document reranking: unlike the dual
// embedding encoder, a cross-encoder jointly encodes the query and
// document in one pass and the model itself emits the relevance score, so
// the pipeline's job is pair-encoding the input and parsing that score
// back out of the generated text.
type crossEncoderPipeline struct{}

func (p *crossEncoderPipeline) Load(ctx context.Context, desc artifact.Descriptor) error {
	return nil
}

func (p *crossEncoderPipeline) Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	return "", hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "cross-encoder pipeline only supports Score")
}

func (p *crossEncoderPipeline) GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "cross-encoder pipeline only supports Score")
}

func (p *crossEncoderPipeline) Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "cross-encoder pipeline does not support independent embedding")
}

func (p *crossEncoderPipeline) Unload(ctx context.Context) error { return nil }

func (p *crossEncoderPipeline) Score(ctx context.Context, h engine.Handle, a engine.Adapter, query, document string) (float64, error) {
	pair := []engine.ChatMessage{{
		Role:    "user",
		Content: fmt.Sprintf("Query: %s\nDocument: %s\nRelevance score between 0 and 1:", query, document),
	}}
	out, err := a.Generate(ctx, h, pair, engine.Settings{Temperature: 0, MaxNewTokens: 8})
	if err != nil {
		return 0, err
	}
	return parseLeadingFloat(out), nil
}

func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0.5
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
