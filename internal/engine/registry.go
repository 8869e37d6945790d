package engine

import (
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/recipe"
)

// Registry is the concrete AdapterSet: a fixed map from recipe.Engine to
// the Adapter instance that implements it, built once at startup.
type Registry struct {
	adapters map[recipe.Engine]Adapter
}

// NewRegistry builds a Registry from an explicit engine->adapter map so
// callers control exactly which bindings (including stub ones) are wired
// in for a given build.
func NewRegistry(adapters map[recipe.Engine]Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// For returns the Adapter registered for e, or a NativeBackend error if
// none was wired in at startup.
func (r *Registry) For(e recipe.Engine) (Adapter, error) {
	a, ok := r.adapters[e]
	if !ok {
		return nil, hearthrunerr.Newf(hearthrunerr.NativeBackend, "no adapter registered for engine %s", e)
	}
	return a, nil
}
