// Package onnxruntime is an honest placeholder binding: no Go repo in the
// example corpus links ONNX Runtime (no cgo, no onnxruntime_go import
// anywhere in the retrieval pack), so rather than fabricate a dependency
// behind a replace directive, this adapter implements the real
// engine.Adapter contract and reports NotSupportedByEngine until a genuine
// binding is wired in.
package onnxruntime

import (
	"context"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/offload"
	"github.com/hearthrun/hearthrun/internal/recipe"
)

type handle struct{}

func (handle) Engine() engine.Engine { return engine.OnnxRuntime }

// Adapter is a structurally complete but functionally stubbed binding.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Load(ctx context.Context, desc artifact.Descriptor, rec recipe.Recipe, plan offload.Plan) (engine.Handle, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "onnxruntime binding not available in this build")
}

func (a *Adapter) Unload(ctx context.Context, h engine.Handle) error {
	return hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "onnxruntime binding not available in this build")
}

func (a *Adapter) Generate(ctx context.Context, h engine.Handle, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	return "", hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "onnxruntime binding not available in this build")
}

func (a *Adapter) GenerateStream(ctx context.Context, h engine.Handle, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "onnxruntime binding not available in this build")
}

func (a *Adapter) Embed(ctx context.Context, h engine.Handle, texts []string) ([][]float32, error) {
	return nil, hearthrunerr.New(hearthrunerr.NotSupportedByEngine, "onnxruntime binding not available in this build")
}
