package httpapi

import (
	"sync"

	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/handler"
)

// streamRegistry tracks the CancelSignal of each in-flight chat_stream
// call, keyed by the model id it targets, so a separate HTTP request to
// /halt (which holds no reference to the stream's own connection) can
// still flip it. The handler's own HaltGeneration only needs the signal
// handed back to it; this registry is the HTTP transport's bookkeeping
// for finding the right one.
type streamRegistry struct {
	mu      sync.Mutex
	signals map[string]*engine.CancelSignal
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{signals: map[string]*engine.CancelSignal{}}
}

func (r *streamRegistry) register(modelID string, cancel *engine.CancelSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[modelID] = cancel
}

func (r *streamRegistry) unregister(modelID string, cancel *engine.CancelSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.signals[modelID] == cancel {
		delete(r.signals, modelID)
	}
}

func (r *streamRegistry) get(modelID string) *engine.CancelSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if modelID != "" {
		return r.signals[modelID]
	}
	// No model id given: halt targets the first registered stream in map
	// iteration order, an arbitrary one when several are in flight; the
	// handler's active-model pointer is not consulted.
	for _, sig := range r.signals {
		return sig
	}
	return nil
}

func (s *Server) haltActiveStream(modelID string) handler.HaltResult {
	cancel := s.streams.get(modelID)
	return s.handler.HaltGeneration(cancel)
}
