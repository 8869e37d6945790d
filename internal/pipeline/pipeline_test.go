package pipeline

import (
	"testing"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestDispatchExplicitArchitecture(t *testing.T) {
	tests := []struct {
		name string
		desc artifact.Descriptor
		want any
	}{
		{"florence2", artifact.Descriptor{Architecture: artifact.ArchFlorence2}, &florence2Pipeline{}},
		{"whisper", artifact.Descriptor{Architecture: artifact.ArchWhisper}, &whisperPipeline{}},
		{"moonshine", artifact.Descriptor{Architecture: artifact.ArchMoonshine}, &whisperPipeline{}},
		{"janus", artifact.Descriptor{Architecture: artifact.ArchJanus}, &multimodalPipeline{arch: artifact.ArchJanus}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dispatch(tt.desc)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestDispatchSubstringPatterns(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want any
	}{
		{"rerank suffix", "bge-reranker-base", &crossEncoderPipeline{}},
		{"cross-encoder", "ms-marco-cross-encoder", &crossEncoderPipeline{}},
		{"code model", "codellama-7b", &codeCompletionPipeline{}},
		{"whisper in id", "openai-whisper-tiny", &whisperPipeline{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dispatch(artifact.Descriptor{Source: tt.src})
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestDispatchTaskTable(t *testing.T) {
	assert.IsType(t, &embeddingPipeline{}, Dispatch(artifact.Descriptor{Task: artifact.TaskFeatureExtraction}))
	assert.IsType(t, &florence2Pipeline{}, Dispatch(artifact.Descriptor{Task: artifact.TaskImageToText}))
	assert.IsType(t, &whisperPipeline{}, Dispatch(artifact.Descriptor{Task: artifact.TaskASR}))
}

func TestDispatchFallback(t *testing.T) {
	got := Dispatch(artifact.Descriptor{Source: "meta-llama-3-8b-instruct"})
	assert.IsType(t, &textGenerationPipeline{}, got)
}

func TestFlorence2TaskTokenSelection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"caption", "<CAPTION>"},
		{"ocr", "<OCR>"},
		{"unknown-task", "<CAPTION>"},
	}
	for _, tt := range tests {
		out := withFlorence2Token([]engine.ChatMessage{{Role: "user", Content: tt.in}})
		assert.Equal(t, tt.want, out[0].Content)
	}
}

func TestParseLeadingFloat(t *testing.T) {
	assert.Equal(t, 0.87, parseLeadingFloat("0.87"))
	assert.Equal(t, 1.0, parseLeadingFloat("1.5 (clamped)"))
	assert.Equal(t, 0.0, parseLeadingFloat("-3"))
	assert.Equal(t, 0.5, parseLeadingFloat("not a number"))
}
