// Package stdio implements the browser-extension native-messaging
// transport: 4-byte little-endian length prefix followed by a UTF-8 JSON
// body, both directions, one action per message, routed 1:1 to the same
// Unified Handler operations the HTTP surface calls (spec.md §6). The
// action catalog is grounded on
// original_source/Python/core/message_types.py's ActionType enum,
// narrowed to the core-runtime actions this spec covers (chat-history
// sync, LM Studio bridging, and HF-token management live outside this
// spec's scope per spec.md §1).
package stdio

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Action is the closed set of native-messaging actions this transport
// dispatches.
type Action string

const (
	ActionPing               Action = "ping"
	ActionGetHardwareInfo    Action = "get_hardware_info"
	ActionPullModel          Action = "pull_model"
	ActionLoadModel          Action = "load_model"
	ActionUnloadModel        Action = "unload_model"
	ActionDeleteModel        Action = "delete_model"
	ActionGenerate           Action = "generate"
	ActionStopGeneration     Action = "stop_generation"
	ActionGetParams          Action = "get_params"
	ActionSetParams          Action = "set_params"
	ActionGenerateEmbeddings Action = "generate_embeddings"
	ActionSemanticSearch     Action = "semantic_search"
	ActionRerankDocuments    Action = "rerank_documents"
	ActionClusterTexts       Action = "cluster_texts"
	ActionRecommendItems     Action = "recommend_items"
	ActionQueryResources     Action = "query_resources"
	ActionListLoadedModels   Action = "list_loaded_models"
	ActionSelectActiveModel  Action = "select_active_model"
	ActionEstimateModelSize  Action = "estimate_model_size"
)

// Request is one decoded native-messaging message.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the framed reply. Exactly one of Result/Error is set.
type Response struct {
	ID     string     `json:"id,omitempty"`
	Result any        `json:"result,omitempty"`
	Error  *WireError `json:"error,omitempty"`
}

// WireError is the {kind, message, hint?} shape spec.md §7 prescribes,
// reused verbatim from the HTTP transport's error body.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// maxFrameBytes bounds a single message body to guard against a
// misbehaving extension sending an unbounded length prefix.
const maxFrameBytes = 64 << 20

var errFrameTooLarge = errors.New("stdio: frame exceeds maximum size")

// ReadFrame reads one length-prefixed JSON message from r.
func ReadFrame(r *bufio.Reader) (Request, error) {
	var req Request
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return req, err
	}
	length := binary.LittleEndian.Uint32(lengthBuf)
	if length > maxFrameBytes {
		return req, errFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return req, fmt.Errorf("stdio: reading frame body: %w", err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("stdio: decoding frame: %w", err)
	}
	return req, nil
}

// WriteFrame encodes resp as length-prefixed JSON to w.
func WriteFrame(w io.Writer, resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("stdio: encoding frame: %w", err)
	}
	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(body)))
	if _, err := w.Write(lengthBuf); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// Dispatcher routes one decoded Request to the Unified Handler and
// returns its Response. Kept as an interface so the read/write loop
// below is independently testable against a fake.
type Dispatcher interface {
	Dispatch(req Request) Response
}

// Serve runs the read-dispatch-write loop until r is exhausted or
// returns a non-EOF error. Each request is handled synchronously in
// message order, matching the extension's request/response pairing
// expectation; every action, generate included, gets exactly one Response
// carrying the request's ID, with no intermediate messages.
func Serve(r io.Reader, w io.Writer, d Dispatcher, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	br := bufio.NewReader(r)
	for {
		req, err := ReadFrame(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		log.Debug("stdio request", "action", req.Action, "id", req.ID)
		resp := d.Dispatch(req)
		resp.ID = req.ID
		if err := WriteFrame(w, resp); err != nil {
			return fmt.Errorf("stdio: writing response: %w", err)
		}
	}
}
