package pipeline

import (
	"context"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// embeddingPipeline implements FeatureExtraction: a list of texts in,
// a list of fixed-width vectors out. It has nothing to shape, since the
// adapter's Embed already speaks in plain strings.
type embeddingPipeline struct{}

func (p *embeddingPipeline) Load(ctx context.Context, desc artifact.Descriptor) error {
	return nil
}

func (p *embeddingPipeline) Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	return "", hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "embedding pipeline does not support chat generation")
}

func (p *embeddingPipeline) GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "embedding pipeline does not support chat generation")
}

func (p *embeddingPipeline) Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error) {
	return a.Embed(ctx, h, texts)
}

func (p *embeddingPipeline) Unload(ctx context.Context) error { return nil }
