package pipeline

import (
	"context"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// multimodalPipeline covers the architectures whose input/output shape is
// "pass the attachments through unchanged": Janus (unified
// understanding+generation), CLIP and CLAP (image/audio-text joint
// embedding spaces). Unlike Florence2 none of these need a special
// prefix token, and unlike Whisper none require a specific attachment
// kind, so the wrapper differs from textGenerationPipeline only in
// supporting Embed for the two joint-embedding architectures.
type multimodalPipeline struct {
	arch artifact.Architecture
}

func (p *multimodalPipeline) Load(ctx context.Context, desc artifact.Descriptor) error {
	return nil
}

func (p *multimodalPipeline) Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	return a.Generate(ctx, h, messages, settings)
}

func (p *multimodalPipeline) GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	return a.GenerateStream(ctx, h, messages, settings, cancel)
}

func (p *multimodalPipeline) Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error) {
	if p.arch != artifact.ArchCLIP && p.arch != artifact.ArchCLAP {
		return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, string(p.arch)+" pipeline does not support embedding")
	}
	return a.Embed(ctx, h, texts)
}

func (p *multimodalPipeline) Unload(ctx context.Context) error { return nil }
