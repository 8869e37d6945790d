// Package tracker is the registry of currently-loaded models, generalized
// from the upstream's single-process-group map in proxy/proxymanager.go
// (processGroups map[string]*ProcessGroup) to a multi-model
// {id -> LoadedModel} registry plus an at-most-one-active pointer.
package tracker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/offload"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"github.com/hearthrun/hearthrun/internal/resource"
)

// State is a LoadedModel's position in its lifecycle.
type State string

const (
	Loading   State = "Loading"
	Ready     State = "Ready"
	Unloading State = "Unloading"
	Failed    State = "Failed"
)

// LoadedModel is the tracker's owned record for one loaded model.
type LoadedModel struct {
	ID          string
	Descriptor  artifact.Descriptor
	Recipe      recipe.Recipe
	Plan        offload.Plan
	Reservation resource.Reservation
	Handle      engine.Handle
	Pipeline    string // task key this model's pipeline is registered under
	State       State
	Active      bool
	CreatedAt   time.Time

	// GenLock serializes generate calls against this model and makes
	// load/unload mutually exclusive with in-flight generation.
	GenLock sync.Mutex
}

// Tracker is the ordered registry of loaded models plus the active pointer.
type Tracker struct {
	mu       sync.RWMutex
	order    []string
	models   map[string]*LoadedModel
	activeID string
	nextID   atomic.Int64
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{models: map[string]*LoadedModel{}}
}

// NextID deterministically assigns the next model id (model-<n>, a
// monotonic counter scoped to this Tracker) for callers that don't supply
// their own.
func (t *Tracker) NextID() string {
	return fmt.Sprintf("model-%d", t.nextID.Add(1))
}

// Insert registers a newly loaded model. If id is empty, the next counter
// id is assigned. Returns the assigned id.
func (t *Tracker) Insert(id string, m *LoadedModel) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == "" {
		id = t.NextID()
	}
	m.ID = id
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if _, exists := t.models[id]; !exists {
		t.order = append(t.order, id)
	}
	t.models[id] = m

	// First model loaded becomes active by default: the registry keeps
	// at most one active model at a time.
	if t.activeID == "" {
		t.activeID = id
		m.Active = true
	}
	return id
}

// Remove deletes a model from the registry. If it was active, no model is
// active afterward until SetActive is called or another model is inserted
// (Insert makes the new model active when none is).
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.models, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if t.activeID == id {
		t.activeID = ""
	}
}

// SetActive marks id as the active model, clearing any previous active
// flag. Returns false if id is not registered.
func (t *Tracker) SetActive(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.models[id]; !ok {
		return false
	}
	if prev, ok := t.models[t.activeID]; ok {
		prev.Active = false
	}
	t.activeID = id
	t.models[id].Active = true
	return true
}

// GetActive returns the active model, or nil if none is active.
func (t *Tracker) GetActive() *LoadedModel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.models[t.activeID]
}

// ActiveID returns the active model's id, or "" if none.
func (t *Tracker) ActiveID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeID
}

// Get returns a model by id, or nil.
func (t *Tracker) Get(id string) *LoadedModel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.models[id]
}

// List returns every registered model, in insertion order.
func (t *Tracker) List() []*LoadedModel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*LoadedModel, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.models[id])
	}
	return out
}

// Count returns the number of registered models.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.models)
}

// CountByEngine tallies registered models per engine.
func (t *Tracker) CountByEngine() map[recipe.Engine]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := map[recipe.Engine]int{}
	for _, m := range t.models {
		out[m.Recipe.Engine]++
	}
	return out
}
