// Package engine defines the narrow five-operation contract every native
// inference backend implements, plus the C2 availability
// probe that turns a hardware inventory into a usable engine×accelerator
// matrix.
package engine

import (
	"context"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/offload"
	"github.com/hearthrun/hearthrun/internal/recipe"
)

// Engine identifies a concrete inference backend. Closed enumeration.
type Engine string

const (
	LlamaCpp    Engine = "LlamaCpp"
	BitNet      Engine = "BitNet"
	OnnxRuntime Engine = "OnnxRuntime"
	MediaPipe   Engine = "MediaPipe"
)

// ChatMessage is one turn of conversation passed to a backend.
type ChatMessage struct {
	Role        string // system, user, assistant
	Content     string
	Attachments []Attachment
}

// Attachment is a non-text input (image/audio/video) attached to a message.
type Attachment struct {
	Kind  string // image, audio, video
	Bytes []byte
	URL   string
}

// Settings controls sampling and length for one generation call.
type Settings struct {
	Temperature       float64
	TopP              float64
	TopK              int
	MaxNewTokens      int
	RepetitionPenalty float64
	DoSample          bool
	StopSequences     []string
}

// FinishReason is the closed set of terminal-chunk reasons.
type FinishReason string

const (
	FinishStop    FinishReason = "stop"
	FinishLength  FinishReason = "length"
	FinishStopped FinishReason = "stopped" // set when halt_generation cancelled the stream
	FinishError   FinishReason = "error"
)

// TokenChunk is one unit of a streaming generation.
type TokenChunk struct {
	Delta          string
	CumulativeToks int
	Finish         FinishReason // set only on the terminal chunk
	Err            string       // set only when Finish == FinishError
}

// Handle is an opaque reference to a loaded native session, owned
// exclusively by its LoadedModel.
type Handle interface {
	// Engine reports which backend issued this handle.
	Engine() Engine
}

// CancelSignal is checked between native token callbacks; flipping it true
// causes generate_stream to stop and emit a terminal "stopped" chunk.
type CancelSignal struct {
	flag chan struct{}
}

// NewCancelSignal returns a fresh, un-tripped cancel signal.
func NewCancelSignal() *CancelSignal {
	return &CancelSignal{flag: make(chan struct{})}
}

// Cancel trips the signal. Idempotent.
func (c *CancelSignal) Cancel() {
	select {
	case <-c.flag:
	default:
		close(c.flag)
	}
}

// Cancelled reports whether Cancel has been called.
func (c *CancelSignal) Cancelled() bool {
	select {
	case <-c.flag:
		return true
	default:
		return false
	}
}

// Adapter is the shared contract every engine binding implements. All
// operations are blocking and MUST be invoked off the I/O goroutine —
// callers (internal/handler) are responsible for scheduling onto a worker.
type Adapter interface {
	Load(ctx context.Context, desc artifact.Descriptor, rec recipe.Recipe, plan offload.Plan) (Handle, error)
	Unload(ctx context.Context, h Handle) error
	Generate(ctx context.Context, h Handle, messages []ChatMessage, settings Settings) (string, error)
	GenerateStream(ctx context.Context, h Handle, messages []ChatMessage, settings Settings, cancel *CancelSignal) (<-chan TokenChunk, error)
	// Embed is an optional capability; adapters that don't support it
	// return a NotSupportedByEngine-kind error (see hearthrunerr).
	Embed(ctx context.Context, h Handle, texts []string) ([][]float32, error)
}
