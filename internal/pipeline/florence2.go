package pipeline

import (
	"context"
	"strings"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// florence2TaskTokens maps a caller-supplied task hint (the whole content
// of the last message when it is a user turn, e.g. "caption", "ocr",
// "detection") to the special token Florence2 expects as its prompt.
var florence2TaskTokens = map[string]string{
	"caption":        "<CAPTION>",
	"detailed":       "<DETAILED_CAPTION>",
	"more_detailed":  "<MORE_DETAILED_CAPTION>",
	"ocr":            "<OCR>",
	"ocr_region":     "<OCR_WITH_REGION>",
	"detection":      "<OD>",
	"dense_region":   "<DENSE_REGION_CAPTION>",
	"region_caption": "<REGION_TO_CATEGORY>",
}

// florence2Pipeline implements the image-to-text task: it replaces the last
// user message's content (the sub-task hint) with the matching Florence2
// special token, <CAPTION> for an unrecognized hint, and passes any image
// attachments straight through.
type florence2Pipeline struct{}

func (p *florence2Pipeline) Load(ctx context.Context, desc artifact.Descriptor) error {
	return nil
}

func (p *florence2Pipeline) Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	return a.Generate(ctx, h, withFlorence2Token(messages), settings)
}

func (p *florence2Pipeline) GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	return a.GenerateStream(ctx, h, withFlorence2Token(messages), settings, cancel)
}

func (p *florence2Pipeline) Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "florence2 pipeline does not support embedding")
}

func (p *florence2Pipeline) Unload(ctx context.Context) error { return nil }

func withFlorence2Token(messages []engine.ChatMessage) []engine.ChatMessage {
	if len(messages) == 0 {
		return messages
	}
	out := make([]engine.ChatMessage, len(messages))
	copy(out, messages)
	last := len(out) - 1
	if out[last].Role != "user" {
		return out
	}
	token, ok := florence2TaskTokens[strings.ToLower(strings.TrimSpace(out[last].Content))]
	if !ok {
		token = florence2TaskTokens["caption"]
	}
	out[last].Content = token
	return out
}
