// Package pipeline implements the task-specialized wrappers that sit
// between the unified handler and an engine.Adapter: each pipeline knows
// how to shape a request's input for its architecture (special tokens for
// Florence2, pair-encoding for a cross-encoder reranker, a plain chat
// turn for generic text) and how to interpret the adapter's output.
// Pipelines never touch a native library directly; they delegate every
// call to the engine.Adapter chosen by recipe resolution.
package pipeline

import (
	"context"
	"strings"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
)

// Pipeline is the contract every task wrapper implements. Load and Unload
// are lifecycle hooks a pipeline can use to stash architecture-specific
// state (e.g. a prompt template); most pipelines leave them as no-ops
// since the adapter itself owns the native session.
type Pipeline interface {
	Load(ctx context.Context, desc artifact.Descriptor) error
	Generate(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings) (string, error)
	GenerateStream(ctx context.Context, h engine.Handle, a engine.Adapter, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error)
	Embed(ctx context.Context, h engine.Handle, a engine.Adapter, texts []string) ([][]float32, error)
	Unload(ctx context.Context) error
}

// substringRoutes maps a case-insensitive substring of the model
// identifier to the architecture it implies, checked when no explicit
// architecture hint is present. Order matters: first match wins.
var substringRoutes = []struct {
	substr string
	arch   artifact.Architecture
}{
	{"florence", artifact.ArchFlorence2},
	{"janus", artifact.ArchJanus},
	{"whisper", artifact.ArchWhisper},
	{"moonshine", artifact.ArchMoonshine},
	{"clip", artifact.ArchCLIP},
	{"clap", artifact.ArchCLAP},
}

// rerankSubstrings flags a model identifier as a cross-encoder reranker
// regardless of its architecture field; rerank shares FeatureExtraction's
// task but needs pair-encoded input instead of a single string.
var rerankSubstrings = []string{"rerank", "cross-encoder", "crossencoder"}

// Dispatch is the pure registry factory: (descriptor) -> Pipeline. Pure and
// testable with only a descriptor, per the documented contract.
func Dispatch(desc artifact.Descriptor) Pipeline {
	lower := strings.ToLower(desc.Source)

	// 1. Explicit architecture hint.
	switch desc.Architecture {
	case artifact.ArchFlorence2:
		return &florence2Pipeline{}
	case artifact.ArchWhisper, artifact.ArchMoonshine:
		return &whisperPipeline{}
	case artifact.ArchJanus, artifact.ArchCLIP, artifact.ArchCLAP:
		return &multimodalPipeline{arch: desc.Architecture}
	}

	// 2. Substring patterns on the model identifier.
	for _, r := range substringRoutes {
		if strings.Contains(lower, r.substr) {
			return Dispatch(withArchitecture(desc, r.arch))
		}
	}
	for _, s := range rerankSubstrings {
		if strings.Contains(lower, s) {
			return &crossEncoderPipeline{}
		}
	}
	for _, s := range []string{"code", "codellama", "starcoder"} {
		if strings.Contains(lower, s) {
			return &codeCompletionPipeline{}
		}
	}

	// 3. Task-keyed fixed table.
	switch desc.Task {
	case artifact.TaskFeatureExtraction:
		return &embeddingPipeline{}
	case artifact.TaskImageToText:
		return &florence2Pipeline{}
	case artifact.TaskASR:
		return &whisperPipeline{}
	}

	// 4. Fallback: generic text generation.
	return &textGenerationPipeline{}
}

func withArchitecture(desc artifact.Descriptor, arch artifact.Architecture) artifact.Descriptor {
	desc.Architecture = arch
	return desc
}
