package pipeline

import (
	"context"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// textGenerationPipeline is the fallback pipeline: messages pass straight
// through to the adapter with no architecture-specific reshaping.
type textGenerationPipeline struct{}

func (p *textGenerationPipeline) Load(ctx context.Context, desc artifact.Descriptor) error {
	return nil
}

func (p *textGenerationPipeline) Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	return a.Generate(ctx, h, messages, settings)
}

func (p *textGenerationPipeline) GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	return a.GenerateStream(ctx, h, messages, settings, cancel)
}

func (p *textGenerationPipeline) Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "text generation pipeline does not support embedding")
}

func (p *textGenerationPipeline) Unload(ctx context.Context) error { return nil }

// codeCompletionPipeline routes code|codellama|starcoder models: same wire
// shape as plain text generation. The handler applies no code-specific
// settings; any lower temperature or fill-in-the-middle stop sequence comes
// from the caller's settings, so the pipeline itself needs no special
// casing.
type codeCompletionPipeline struct {
	textGenerationPipeline
}
