// Package llamacpp adapts the llama.cpp/BitNet native runtimes by spawning
// their llama-server binary as a subprocess and speaking its
// OpenAI-compatible HTTP/SSE surface, the same mechanism the upstream's
// proxy/processgroup.go and (missing from this retrieval, reconstructed
// from its call sites) proxy/process.go use: one subprocess per loaded
// model, health-polled until ready, torn down on unload. No repo anywhere
// in the example corpus links llama.cpp through cgo, so this is the
// idiomatic-for-this-corpus binding shape rather than an FFI one.
package llamacpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/offload"
	"github.com/hearthrun/hearthrun/internal/recipe"
)

// BinaryPath locates the llama-server (or BitNet's equivalent) executable.
// Overridable for tests and alternate installs.
var BinaryPath = "llama-server"

// handle is the subprocess-backed engine.Handle for one loaded model.
type handle struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	port    int
	client  *http.Client
	engine  engine.Engine
	started bool
}

func (h *handle) Engine() engine.Engine { return h.engine }

// Adapter implements engine.Adapter by supervising llama-server processes.
type Adapter struct {
	Which engine.Engine // LlamaCpp or BitNet; both speak the same server protocol
}

func New(which engine.Engine) *Adapter {
	return &Adapter{Which: which}
}

func (a *Adapter) Load(ctx context.Context, desc artifact.Descriptor, rec recipe.Recipe, plan offload.Plan) (engine.Handle, error) {
	port, err := freePort()
	if err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.NativeBackend, err)
	}

	gpuLayers := int(plan.VRAMLayers)
	if acceleratorIsCPUOnly(rec) {
		gpuLayers = 0
	}
	args := []string{
		"--model", desc.LocalPath,
		"--port", strconv.Itoa(port),
		"--ctx-size", strconv.Itoa(rec.ContextSize),
		"--batch-size", strconv.Itoa(rec.BatchSize),
		"--n-gpu-layers", strconv.Itoa(gpuLayers),
	}
	if rec.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(rec.Threads))
	}

	cmd := exec.CommandContext(ctx, BinaryPath, args...)
	if err := cmd.Start(); err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.NativeBackend, fmt.Errorf("start %s: %w", BinaryPath, err))
	}

	h := &handle{
		cmd:    cmd,
		port:   port,
		client: &http.Client{Timeout: 120 * time.Second},
		engine: a.Which,
	}

	if err := waitHealthy(ctx, h.client, port); err != nil {
		_ = cmd.Process.Kill()
		return nil, hearthrunerr.Wrap(hearthrunerr.NativeBackend, err)
	}
	h.started = true
	return h, nil
}

func (a *Adapter) Unload(ctx context.Context, h engine.Handle) error {
	hh, ok := h.(*handle)
	if !ok {
		return hearthrunerr.New(hearthrunerr.NativeBackend, "handle not owned by llamacpp adapter")
	}
	hh.mu.Lock()
	defer hh.mu.Unlock()
	if hh.cmd.Process == nil {
		return nil
	}
	if err := hh.cmd.Process.Kill(); err != nil {
		return hearthrunerr.Wrap(hearthrunerr.NativeBackend, err)
	}
	_ = hh.cmd.Wait()
	return nil
}

func (a *Adapter) Generate(ctx context.Context, h engine.Handle, messages []engine.ChatMessage, settings engine.Settings) (string, error) {
	hh, ok := h.(*handle)
	if !ok {
		return "", hearthrunerr.New(hearthrunerr.NativeBackend, "handle not owned by llamacpp adapter")
	}

	body := chatRequestBody(messages, settings, false)
	resp, err := postJSON(ctx, hh.client, hh.baseURL()+"/v1/chat/completions", body)
	if err != nil {
		return "", hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}
	if len(decoded.Choices) == 0 {
		return "", hearthrunerr.New(hearthrunerr.GenerateError, "empty completion response")
	}
	return decoded.Choices[0].Message.Content, nil
}

func (a *Adapter) GenerateStream(ctx context.Context, h engine.Handle, messages []engine.ChatMessage, settings engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	hh, ok := h.(*handle)
	if !ok {
		return nil, hearthrunerr.New(hearthrunerr.NativeBackend, "handle not owned by llamacpp adapter")
	}

	body := chatRequestBody(messages, settings, true)
	resp, err := postJSON(ctx, hh.client, hh.baseURL()+"/v1/chat/completions", body)
	if err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}

	out := make(chan engine.TokenChunk, 16) // bounded: applies backpressure instead of dropping chunks
	go streamSSE(resp, out, cancel)
	return out, nil
}

func (a *Adapter) Embed(ctx context.Context, h engine.Handle, texts []string) ([][]float32, error) {
	hh, ok := h.(*handle)
	if !ok {
		return nil, hearthrunerr.New(hearthrunerr.NativeBackend, "handle not owned by llamacpp adapter")
	}

	resp, err := postJSON(ctx, hh.client, hh.baseURL()+"/v1/embeddings", map[string]any{"input": texts})
	if err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}
	out := make([][]float32, len(decoded.Data))
	for i, d := range decoded.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (h *handle) baseURL() string {
	return "http://127.0.0.1:" + strconv.Itoa(h.port)
}

func chatRequestBody(messages []engine.ChatMessage, settings engine.Settings, stream bool) map[string]any {
	msgs := make([]map[string]string, len(messages))
	for i, m := range messages {
		msgs[i] = map[string]string{"role": m.Role, "content": m.Content}
	}
	return map[string]any{
		"messages":       msgs,
		"temperature":    settings.Temperature,
		"top_p":          settings.TopP,
		"top_k":          settings.TopK,
		"max_tokens":     settings.MaxNewTokens,
		"repeat_penalty": settings.RepetitionPenalty,
		"stop":           settings.StopSequences,
		"stream":         stream,
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("llama-server returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// streamSSE parses llama-server's "data: {...}" SSE frames into TokenChunks,
// honoring cancel between frames so halt_generation stops the stream within
// one additional token.
func streamSSE(resp *http.Response, out chan<- engine.TokenChunk, cancel *engine.CancelSignal) {
	defer resp.Body.Close()
	defer close(out)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	cumulative := 0

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return
		}

		if cancel != nil && cancel.Cancelled() {
			out <- engine.TokenChunk{CumulativeToks: cumulative, Finish: engine.FinishStopped}
			return
		}

		var frame struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}

		choice := frame.Choices[0]
		if choice.Delta.Content != "" {
			cumulative++
			out <- engine.TokenChunk{Delta: choice.Delta.Content, CumulativeToks: cumulative}
		}
		if choice.FinishReason != nil {
			out <- engine.TokenChunk{CumulativeToks: cumulative, Finish: mapFinishReason(*choice.FinishReason)}
			return
		}
	}

	if err := scanner.Err(); err != nil {
		out <- engine.TokenChunk{CumulativeToks: cumulative, Finish: engine.FinishError, Err: err.Error()}
	}
}

func mapFinishReason(r string) engine.FinishReason {
	switch r {
	case "length":
		return engine.FinishLength
	case "stop":
		return engine.FinishStop
	default:
		return engine.FinishStop
	}
}

func acceleratorIsCPUOnly(rec recipe.Recipe) bool {
	return rec.Accelerator == recipe.CPU
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitHealthy(ctx context.Context, client *http.Client, port int) error {
	deadline := time.Now().Add(60 * time.Second)
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err == nil {
			if resp, err := client.Do(req); err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("llama-server did not become healthy within timeout")
}
