// Package resource implements C6: tracking per-model VRAM/RAM reservations
// against the host's total budget, refusing over-commitments, and
// releasing on unload. The single sync.Mutex field guarding all
// bookkeeping mirrors the upstream ProxyManager's own embedded
// sync.Mutex in proxy/proxymanager.go, generalized from "serialize proxy
// requests" to "serialize reservation accounting" so I1 holds atomically
// across concurrent load requests.
package resource

import (
	"sync"
	"time"

	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
	"github.com/hearthrun/hearthrun/internal/offload"
)

// Engine names the backend a reservation belongs to, kept as a plain
// string here (rather than importing internal/recipe) so this package
// stays a near-leaf in the dependency graph.
type Engine string

// Estimate is a heuristic resource footprint for an artifact before it is
// loaded.
type Estimate struct {
	VRAMBytes  uint64
	RAMBytes   uint64
	LayerCount uint32
}

// Reservation is the accounting record for one loaded model's resource
// usage, owned by Manager and keyed by model id.
type Reservation struct {
	ModelID   string
	VRAMBytes uint64
	RAMBytes  uint64
	Engine    Engine
	Timestamp time.Time
}

// Status is a snapshot of total/free budgets and active reservations.
type Status struct {
	TotalRAMBytes  uint64
	FreeRAMBytes   uint64
	TotalVRAMBytes uint64
	FreeVRAMBytes  uint64
	PerModel       map[string]Reservation
}

// formatOverheadBytes is a fixed per-format allowance added to an
// estimate's file-size-based footprint, covering compute buffers and
// runtime structures the raw weights file doesn't account for.
var formatOverheadBytes = map[artifact.Format]uint64{
	artifact.FormatGGUF:      512 << 20,
	artifact.FormatBitNet:    256 << 20,
	artifact.FormatONNX:      768 << 20,
	artifact.FormatMediaPipe: 256 << 20,
	artifact.FormatLiteRT:    256 << 20,
}

const systemMarginBytes uint64 = 2 << 30 // 2 GiB, mirrors internal/offload's margin

// Manager enforces I1 (resource conservation) across concurrent loads.
type Manager struct {
	mu           sync.Mutex
	inv          hardware.Inventory
	reservations map[string]Reservation
}

// New constructs a Manager bound to a hardware snapshot. The snapshot is
// held fixed for the Manager's lifetime; callers that want fresh
// headroom numbers re-probe and build a new Manager.
func New(inv hardware.Inventory) *Manager {
	return &Manager{inv: inv, reservations: map[string]Reservation{}}
}

// EstimateArtifact computes a heuristic resource footprint for desc. For
// GGUF and ONNX artifacts the figure is file-size based plus a fixed
// format overhead; layer count is passed through from the descriptor when
// known.
func EstimateArtifact(desc artifact.Descriptor) Estimate {
	overhead := formatOverheadBytes[desc.Format]
	footprint := desc.SizeBytes + overhead
	return Estimate{
		VRAMBytes:  footprint,
		RAMBytes:   footprint,
		LayerCount: desc.LayerCount,
	}
}

// Reserve records a reservation for plan against model_id, failing with
// OverBudget if doing so would violate I1. On failure the caller should
// retry Reserve with the next offload.Plan from the ranked candidate list.
func (m *Manager) Reserve(modelID string, plan offload.Plan, engine Engine) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var usedVRAM, usedRAM uint64
	for id, r := range m.reservations {
		if id == modelID {
			continue
		}
		usedVRAM += r.VRAMBytes
		usedRAM += r.RAMBytes
	}

	vramBudget := subOrZero(m.inv.TotalVRAMBytes(), systemMarginBytes)
	ramBudget := subOrZero(m.inv.TotalRAMBytes, systemMarginBytes)

	if usedVRAM+plan.VRAMBytes > vramBudget {
		return Reservation{}, hearthrunerr.Newf(hearthrunerr.OverBudget,
			"reserving %d VRAM bytes would exceed budget (%d used, %d budget)",
			plan.VRAMBytes, usedVRAM, vramBudget)
	}
	if usedRAM+plan.RAMBytes > ramBudget {
		return Reservation{}, hearthrunerr.Newf(hearthrunerr.OverBudget,
			"reserving %d RAM bytes would exceed budget (%d used, %d budget)",
			plan.RAMBytes, usedRAM, ramBudget)
	}

	r := Reservation{
		ModelID:   modelID,
		VRAMBytes: plan.VRAMBytes,
		RAMBytes:  plan.RAMBytes,
		Engine:    engine,
		Timestamp: time.Now(),
	}
	m.reservations[modelID] = r
	return r, nil
}

// Release removes modelID's reservation. Idempotent: releasing an unknown
// or already-released id is not an error.
func (m *Manager) Release(modelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reservations, modelID)
}

// Status reports current budgets and every active reservation.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var usedVRAM, usedRAM uint64
	perModel := make(map[string]Reservation, len(m.reservations))
	for id, r := range m.reservations {
		usedVRAM += r.VRAMBytes
		usedRAM += r.RAMBytes
		perModel[id] = r
	}

	totalVRAM := m.inv.TotalVRAMBytes()
	return Status{
		TotalRAMBytes:  m.inv.TotalRAMBytes,
		FreeRAMBytes:   subOrZero(m.inv.TotalRAMBytes, usedRAM),
		TotalVRAMBytes: totalVRAM,
		FreeVRAMBytes:  subOrZero(totalVRAM, usedVRAM),
		PerModel:       perModel,
	}
}

func subOrZero(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
