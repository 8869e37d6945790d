// Package handler implements the single consumer-facing service every
// transport (HTTP, stdio, CLI) calls into. Every operation here is
// transport-agnostic: no framing, no HTTP, no stdio. Collapses what the
// upstream splits across proxyOAIHandler/apiLoadModel/apiUnloadModel/
// apiUpdateModelParams in proxy/proxymanager_api.go into one owned value
// constructed at startup, matching this runtime's closed adapter
// enumeration instead of the upstream's per-request process lookup.
package handler

import (
	"context"
	"sync"
	"time"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/offload"
	"github.com/hearthrun/hearthrun/internal/pipeline"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"github.com/hearthrun/hearthrun/internal/resource"
	"github.com/hearthrun/hearthrun/internal/tracker"
	"golang.org/x/sync/semaphore"
	"golang.org/x/text/unicode/norm"
)

// normalizeText applies Unicode NFC normalization so visually-identical
// strings with different combining-character decompositions embed and
// compare consistently (semantic_search, cluster, rerank).
func normalizeText(s string) string {
	return norm.NFC.String(s)
}

func normalizeTexts(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = normalizeText(t)
	}
	return out
}

// AdapterSet resolves a recipe.Engine to the concrete engine.Adapter that
// implements it. Constructed once at startup in cmd/hearthrund and handed
// to New; kept as an interface so tests can substitute fakes per engine.
type AdapterSet interface {
	For(e recipe.Engine) (engine.Adapter, error)
}

// LoadResult is load_model's success payload.
type LoadResult struct {
	ModelID string
	Engine  recipe.Engine
	Plan    offload.Plan
}

// ChatResult is chat's success payload.
type ChatResult struct {
	Text         string
	FinishReason engine.FinishReason
	Engine       recipe.Engine
}

// HaltResult reports what halt_generation actually stopped.
type HaltResult struct {
	WasGenerating   bool
	TokensGenerated int
}

// Handler is the Unified Handler: owns the artifact resolver, hardware
// inventory, resource manager, model tracker, and a worker semaphore
// bounding how many native generation calls run at once across all loaded
// models; calls against one model are serialized by its GenLock.
type Handler struct {
	resolver  *artifact.Resolver
	inv       hardware.Inventory
	resources *resource.Manager
	tracker   *tracker.Tracker
	adapters  AdapterSet

	paramsMu sync.RWMutex
	params   engine.Settings

	sem *semaphore.Weighted // one permit per in-flight generate call
}

// New constructs a Handler bound to a fixed hardware snapshot. maxConcurrent
// bounds how many native generate calls may run at once across all loaded
// models; cmd/hearthrund passes config.yaml's max_concurrent_generate.
func New(resolver *artifact.Resolver, inv hardware.Inventory, adapters AdapterSet, maxConcurrent int64) *Handler {
	return &Handler{
		resolver:  resolver,
		inv:       inv,
		resources: resource.New(inv),
		tracker:   tracker.New(),
		adapters:  adapters,
		params:    defaultSettings(),
		sem:       semaphore.NewWeighted(maxConcurrent),
	}
}

func defaultSettings() engine.Settings {
	return engine.Settings{
		Temperature:       0.8,
		TopP:              0.95,
		TopK:              40,
		MaxNewTokens:      512,
		RepetitionPenalty: 1.1,
		DoSample:          true,
	}
}

// LoadModel resolves source to an artifact, picks a recipe and an offload
// plan, reserves resources, and starts the native backend. On OverBudget
// it retries once with the next-ranked plan before surfacing the error.
func (h *Handler) LoadModel(ctx context.Context, source, authToken string, explicitRecipe *recipe.Explicit) (LoadResult, error) {
	desc, err := h.resolver.Resolve(source, authToken)
	if err != nil {
		return LoadResult{}, err
	}

	rec, err := recipe.Resolve(*desc, h.inv, explicitRecipe)
	if err != nil {
		return LoadResult{}, err
	}

	plans := offload.Plans(desc.SizeBytes, desc.LayerCount, h.inv.TotalVRAMBytes(), h.inv.FreeRAMBytes, rec.ContextSize)
	if len(plans) == 0 {
		return LoadResult{}, hearthrunerr.New(hearthrunerr.OverBudget, "no viable offload plan for this host")
	}

	adapter, err := h.adapters.For(rec.Engine)
	if err != nil {
		return LoadResult{}, err
	}

	var lastErr error
	for i, plan := range plans {
		if i > 1 {
			// Only one replan: the first-ranked plan and the next one.
			break
		}
		id := h.tracker.NextID()
		reservation, rerr := h.resources.Reserve(id, plan, resource.Engine(rec.Engine))
		if rerr != nil {
			// OverBudget on this plan: replan with the next-ranked candidate.
			lastErr = rerr
			continue
		}

		handle, lerr := adapter.Load(ctx, *desc, rec, plan)
		if lerr != nil {
			h.resources.Release(id)
			return LoadResult{}, lerr
		}

		lm := &tracker.LoadedModel{
			Descriptor:  *desc,
			Recipe:      rec,
			Plan:        plan,
			Reservation: reservation,
			Handle:      handle,
			Pipeline:    string(desc.Task),
			State:       tracker.Ready,
			CreatedAt:   time.Now(),
		}
		h.tracker.Insert(id, lm)
		return LoadResult{ModelID: id, Engine: rec.Engine, Plan: plan}, nil
	}
	return LoadResult{}, lastErr
}

// UnloadModel tears down a loaded model. An empty id targets the active
// model.
func (h *Handler) UnloadModel(ctx context.Context, modelID string) error {
	id := h.resolveTarget(modelID)
	lm := h.tracker.Get(id)
	if lm == nil {
		return hearthrunerr.Newf(hearthrunerr.UnknownModel, "model %q is not loaded", modelID)
	}

	lm.GenLock.Lock()
	defer lm.GenLock.Unlock()

	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return err
	}
	if err := adapter.Unload(ctx, lm.Handle); err != nil {
		return err
	}
	h.resources.Release(id)
	h.tracker.Remove(id)
	return nil
}

// ListModels returns every currently loaded model.
func (h *Handler) ListModels() []*tracker.LoadedModel {
	return h.tracker.List()
}

// SelectActive changes which loaded model receives unrouted chat calls.
func (h *Handler) SelectActive(modelID string) error {
	if !h.tracker.SetActive(modelID) {
		return hearthrunerr.Newf(hearthrunerr.UnknownModel, "model %q is not loaded", modelID)
	}
	return nil
}

func (h *Handler) resolveTarget(modelID string) string {
	if modelID != "" {
		return modelID
	}
	return h.tracker.ActiveID()
}

func (h *Handler) modelFor(modelID string) (*tracker.LoadedModel, error) {
	id := h.resolveTarget(modelID)
	if id == "" {
		return nil, hearthrunerr.New(hearthrunerr.NoModelLoaded, "no active model")
	}
	lm := h.tracker.Get(id)
	if lm == nil {
		return nil, hearthrunerr.Newf(hearthrunerr.UnknownModel, "model %q is not loaded", modelID)
	}
	if lm.State != tracker.Ready {
		return nil, hearthrunerr.Newf(hearthrunerr.NoModelLoaded, "model %q is in state %s", id, lm.State)
	}
	return lm, nil
}

// Chat runs one non-streaming generation against modelID (or the active
// model when empty), serialized per-model by its generation lock.
func (h *Handler) Chat(ctx context.Context, modelID string, messages []engine.ChatMessage, settings *engine.Settings) (ChatResult, error) {
	lm, err := h.modelFor(modelID)
	if err != nil {
		return ChatResult{}, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return ChatResult{}, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return ChatResult{}, hearthrunerr.Wrap(hearthrunerr.Timeout, err)
	}
	defer h.sem.Release(1)

	lm.GenLock.Lock()
	defer lm.GenLock.Unlock()

	eff := h.effectiveSettings(settings)
	p := pipeline.Dispatch(lm.Descriptor)
	text, err := p.Generate(ctx, lm.Handle, adapter, messages, eff)
	if err != nil {
		return ChatResult{}, hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}
	return ChatResult{Text: text, FinishReason: engine.FinishStop, Engine: lm.Recipe.Engine}, nil
}

// ChatStream runs one streaming generation. The returned channel's
// chunks arrive in production order; cancel.Cancel() implements
// halt_generation for this stream.
func (h *Handler) ChatStream(ctx context.Context, modelID string, messages []engine.ChatMessage, settings *engine.Settings, cancel *engine.CancelSignal) (<-chan engine.TokenChunk, error) {
	lm, err := h.modelFor(modelID)
	if err != nil {
		return nil, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return nil, err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.Timeout, err)
	}

	lm.GenLock.Lock()
	eff := h.effectiveSettings(settings)
	p := pipeline.Dispatch(lm.Descriptor)
	upstream, err := p.GenerateStream(ctx, lm.Handle, adapter, messages, eff, cancel)
	if err != nil {
		lm.GenLock.Unlock()
		h.sem.Release(1)
		return nil, hearthrunerr.Wrap(hearthrunerr.GenerateError, err)
	}

	out := make(chan engine.TokenChunk, 16)
	go func() {
		defer close(out)
		defer h.sem.Release(1)
		defer lm.GenLock.Unlock()
		for chunk := range upstream {
			out <- chunk
		}
	}()
	return out, nil
}

// HaltGeneration trips cancel, the same CancelSignal the caller passed to
// ChatStream; it does not look up a model by id. This method exists for
// transports that keep the signal server-side rather than in the stream
// caller's hands.
func (h *Handler) HaltGeneration(cancel *engine.CancelSignal) HaltResult {
	if cancel == nil {
		return HaltResult{}
	}
	wasGenerating := !cancel.Cancelled()
	cancel.Cancel()
	return HaltResult{WasGenerating: wasGenerating}
}

// GenerateEmbeddings embeds texts against modelID (or the active model).
func (h *Handler) GenerateEmbeddings(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	lm, err := h.modelFor(modelID)
	if err != nil {
		return nil, err
	}
	adapter, err := h.adapters.For(lm.Recipe.Engine)
	if err != nil {
		return nil, err
	}

	lm.GenLock.Lock()
	defer lm.GenLock.Unlock()

	p := pipeline.Dispatch(lm.Descriptor)
	return p.Embed(ctx, lm.Handle, adapter, texts)
}

// GetParams returns the current default generation settings.
func (h *Handler) GetParams() engine.Settings {
	h.paramsMu.RLock()
	defer h.paramsMu.RUnlock()
	return h.params
}

// SetParams replaces the default generation settings, clipping to the
// documented bounds.
func (h *Handler) SetParams(s engine.Settings) engine.Settings {
	h.paramsMu.Lock()
	defer h.paramsMu.Unlock()
	h.params = clipSettings(s)
	return h.params
}

func (h *Handler) effectiveSettings(override *engine.Settings) engine.Settings {
	if override == nil {
		return h.GetParams()
	}
	return clipSettings(*override)
}

func clipSettings(s engine.Settings) engine.Settings {
	s.Temperature = min(max(s.Temperature, 0), 2)
	if s.TopP < 0 {
		s.TopP = 0
	}
	if s.TopP > 1 {
		s.TopP = 1
	}
	if s.TopK < 0 {
		s.TopK = 0
	}
	s.MaxNewTokens = max(s.MaxNewTokens, 1)
	s.RepetitionPenalty = max(s.RepetitionPenalty, 1.0)
	return s
}

// QueryResources reports current resource budget/usage.
func (h *Handler) QueryResources() resource.Status {
	return h.resources.Status()
}

// EstimateModelSize returns the ranked offload plans for a not-yet-loaded
// source, without reserving anything.
func (h *Handler) EstimateModelSize(ctx context.Context, source, authToken string) ([]offload.Plan, error) {
	desc, err := h.resolver.Resolve(source, authToken)
	if err != nil {
		return nil, err
	}
	ctxSize := 4096
	return offload.Plans(desc.SizeBytes, desc.LayerCount, h.inv.TotalVRAMBytes(), h.inv.FreeRAMBytes, ctxSize), nil
}
