package pipeline

import (
	"context"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// whisperPipeline implements ASR: the caller supplies the audio clip as an
// Attachment on the single user turn, the tokenizer-assembled prompt
// carries only the language/task directive Whisper needs, and the
// transcript comes back as plain generated text.
type whisperPipeline struct{}

func (p *whisperPipeline) Load(ctx context.Context, desc artifact.Descriptor) error {
	return nil
}

func (p *whisperPipeline) Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	if err := requireAudioAttachment(messages); err != nil {
		return "", err
	}
	return a.Generate(ctx, h, messages, settings)
}

func (p *whisperPipeline) GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	if err := requireAudioAttachment(messages); err != nil {
		return nil, err
	}
	return a.GenerateStream(ctx, h, messages, settings, cancel)
}

func (p *whisperPipeline) Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "whisper pipeline does not support embedding")
}

func (p *whisperPipeline) Unload(ctx context.Context) error { return nil }

func requireAudioAttachment(messages []engine.ChatMessage) error {
	for _, m := range messages {
		for _, att := range m.Attachments {
			if att.Kind == "audio" {
				return nil
			}
		}
	}
	return hearthrunerr.New(hearthrunerr.InvalidRequest, "ASR request carries no audio attachment")
}
