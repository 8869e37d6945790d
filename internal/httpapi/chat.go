package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/telemetry"
)

// oaiMessage is the OpenAI chat message wire shape.
type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the OpenAI-compatible /chat/completions request body,
// plus the extension fields spec.md §3/§6 names (model id, streaming,
// sampling overrides).
type chatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Stream      bool         `json:"stream"`
	Temperature *float64     `json:"temperature,omitempty"`
	TopP        *float64     `json:"top_p,omitempty"`
	TopK        *int         `json:"top_k,omitempty"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
	Stop        []string     `json:"stop,omitempty"`
}

// completionRequest is the legacy /completions body; completions
// wraps it as a single user turn before dispatch, per spec.md §6's
// "internally rewrapped as chat" instruction.
type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Stream      bool     `json:"stream"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

func (r chatRequest) toMessages() []engine.ChatMessage {
	out := make([]engine.ChatMessage, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = engine.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func (r chatRequest) settingsOverride(base engine.Settings) *engine.Settings {
	s := base
	changed := false
	if r.Temperature != nil {
		s.Temperature = *r.Temperature
		changed = true
	}
	if r.TopP != nil {
		s.TopP = *r.TopP
		changed = true
	}
	if r.TopK != nil {
		s.TopK = *r.TopK
		changed = true
	}
	if r.MaxTokens != nil {
		s.MaxNewTokens = *r.MaxTokens
		changed = true
	}
	if len(r.Stop) > 0 {
		s.StopSequences = r.Stop
		changed = true
	}
	if !changed {
		return nil
	}
	return &s
}

func (s *Server) chatCompletions(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if len(req.Messages) == 0 {
		sendError(c, errInvalidBody)
		return
	}

	messages := req.toMessages()
	settings := req.settingsOverride(s.handler.GetParams())

	if req.Stream {
		s.streamChat(c, req.Model, messages, settings)
		return
	}

	start := time.Now()
	result, err := s.handler.Chat(c.Request.Context(), req.Model, messages, settings)
	if err != nil {
		telemetry.GenerationsTotal.WithLabelValues("unknown", "error").Inc()
		sendError(c, err)
		return
	}
	elapsed := time.Since(start)
	s.genStats.record(string(result.Engine), elapsed, tokensPerSecond(result.Text, elapsed), approxTokenCount(result.Text), string(result.FinishReason))
	telemetry.GenerationsTotal.WithLabelValues(string(result.Engine), string(result.FinishReason)).Inc()

	c.JSON(http.StatusOK, gin.H{
		"id":      "chatcmpl-" + requestID(c),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []gin.H{{
			"index": 0,
			"message": oaiMessage{
				Role:    "assistant",
				Content: result.Text,
			},
			"finish_reason": result.FinishReason,
		}},
	})
}

func (s *Server) completions(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	wrapped := chatRequest{
		Model:       req.Model,
		Messages:    []oaiMessage{{Role: "user", Content: req.Prompt}},
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}

	messages := wrapped.toMessages()
	settings := wrapped.settingsOverride(s.handler.GetParams())

	if req.Stream {
		s.streamChat(c, req.Model, messages, settings)
		return
	}

	result, err := s.handler.Chat(c.Request.Context(), req.Model, messages, settings)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      "cmpl-" + requestID(c),
		"object":  "text_completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []gin.H{{
			"index":         0,
			"text":          result.Text,
			"finish_reason": result.FinishReason,
		}},
	})
}

// streamChat drives chat_stream and relays its ordered chunks as SSE,
// per spec.md §6's wire format: "data: <json>\n\n" lines, terminated by
// "data: [DONE]\n\n". Disconnect cancels generation (§5).
func (s *Server) streamChat(c *gin.Context, modelID string, messages []engine.ChatMessage, settings *engine.Settings) {
	cancel := engine.NewCancelSignal()
	chunks, err := s.handler.ChatStream(c.Request.Context(), modelID, messages, settings, cancel)
	if err != nil {
		sendError(c, err)
		return
	}
	s.streams.register(modelID, cancel)
	defer s.streams.unregister(modelID, cancel)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	start := time.Now()
	firstToken := true
	firstTokenAt := start
	id := "chatcmpl-" + requestID(c)

	flusher, _ := c.Writer.(http.Flusher)
	clientGone := c.Writer.CloseNotify()

	for {
		select {
		case <-clientGone:
			cancel.Cancel()
		case chunk, ok := <-chunks:
			if !ok {
				fmt.Fprint(c.Writer, "data: [DONE]\n\n")
				if flusher != nil {
					flusher.Flush()
				}
				return
			}
			if firstToken && chunk.Delta != "" {
				firstToken = false
				firstTokenAt = time.Now()
			}
			writeSSEChunk(c, id, modelID, chunk)
			if flusher != nil {
				flusher.Flush()
			}
			if chunk.Finish != "" {
				elapsed := time.Since(start)
				var tps float64
				if elapsed > 0 {
					tps = float64(chunk.CumulativeToks) / elapsed.Seconds()
				}
				s.genStats.record(modelID, firstTokenAt.Sub(start), tps, chunk.CumulativeToks, string(chunk.Finish))
			}
		}
	}
}

func writeSSEChunk(c *gin.Context, id, model string, chunk engine.TokenChunk) {
	payload := gin.H{
		"id":      id,
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []gin.H{{
			"index": 0,
			"delta": gin.H{"content": chunk.Delta},
		}},
	}
	if chunk.Finish != "" {
		payload["choices"].([]gin.H)[0]["finish_reason"] = chunk.Finish
		if chunk.Err != "" {
			payload["error"] = chunk.Err
		}
	}
	data, _ := marshalCompact(payload)
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func approxTokenCount(text string) int {
	return len(text) / 4
}

func tokensPerSecond(text string, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(approxTokenCount(text)) / elapsed.Seconds()
}
