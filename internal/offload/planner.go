// Package offload implements C5: turning a model size, layer count, and
// VRAM headroom into one or more candidate OffloadPlans. The binary-search
// sizing in the upstream autosetup/memory_estimator.go
// (CalculateOptimalLayers/FindOptimalContextSizeWithOffload) is generalized
// here into a pure function returning a ranked plan list instead of a
// single best-effort answer, so callers (C6) can retry against the next
// plan on OverBudget.
package offload

import (
	"sort"

	"github.com/dustin/go-humanize"
)

// SpeedTier ranks a plan by expected throughput.
type SpeedTier string

const (
	Fast   SpeedTier = "Fast"
	Medium SpeedTier = "Medium"
	Slow   SpeedTier = "Slow"
)

var tierRank = map[SpeedTier]int{Fast: 3, Medium: 2, Slow: 1}

// Plan is one candidate split of a model's layers between VRAM and RAM.
type Plan struct {
	VRAMLayers uint32
	RAMLayers  uint32
	VRAMBytes  uint64
	RAMBytes   uint64
	SpeedTier  SpeedTier
	Label      string
}

// systemMarginBytes is the fixed VRAM headroom withheld for drivers and
// compute buffers, on top of the per-context reservation.
const systemMarginBytes uint64 = 2 << 30 // 2 GiB

// contextBytesPerToken is the rough per-token KV-cache reservation used to
// size the context-cache carve-out ahead of per-model offload math.
const contextBytesPerToken = 3 // ~1.5x overhead factor expressed per-token

// sizeToLayerBins bins a model's file size into an estimated layer count when
// the caller has no exact figure (e.g. GGUF metadata lacked block_count).
var sizeToLayerBins = []struct {
	maxBytes uint64
	layers   uint32
}{
	{1<<30 + (1 << 29), 16}, // <= 1.5 GiB
	{4 << 30, 26},           // <= 4 GiB
	{8 << 30, 32},           // <= 8 GiB
	{15 << 30, 40},          // <= 15 GiB
	{^uint64(0), 60},        // else
}

func estimateLayerCount(modelSizeBytes uint64) uint32 {
	for _, bin := range sizeToLayerBins {
		if modelSizeBytes <= bin.maxBytes {
			return bin.layers
		}
	}
	return 60
}

// Plans computes the ranked candidate offload plans for a model.
// layerCount may be zero, in which case it is estimated from modelSizeBytes.
// ramFreeBytes, when zero, disables emission of the CPU-only fallback plan.
func Plans(modelSizeBytes uint64, layerCount uint32, vramFreeBytes, ramFreeBytes uint64, contextSize int) []Plan {
	if layerCount == 0 {
		layerCount = estimateLayerCount(modelSizeBytes)
	}

	contextReserve := uint64(contextSize) * contextBytesPerToken
	var vramRemaining uint64
	if vramFreeBytes > contextReserve+systemMarginBytes {
		vramRemaining = vramFreeBytes - contextReserve - systemMarginBytes
	}

	var plans []Plan

	switch {
	case vramRemaining >= modelSizeBytes && modelSizeBytes > 0:
		plans = append(plans, Plan{
			VRAMLayers: layerCount,
			RAMLayers:  0,
			VRAMBytes:  modelSizeBytes,
			RAMBytes:   0,
			SpeedTier:  Fast,
			Label:      "all layers on accelerator, " + humanize.Bytes(modelSizeBytes),
		})
	case modelSizeBytes > 0:
		ratio := float64(vramRemaining) / float64(modelSizeBytes)
		vramLayers := uint32(float64(layerCount) * ratio * 0.9)
		if vramLayers >= 4 {
			perLayer := modelSizeBytes / uint64(layerCount)
			vramBytes := uint64(vramLayers) * perLayer
			plans = append(plans, Plan{
				VRAMLayers: vramLayers,
				RAMLayers:  layerCount - vramLayers,
				VRAMBytes:  vramBytes,
				RAMBytes:   modelSizeBytes - vramBytes,
				SpeedTier:  Medium,
				Label:      humanize.Comma(int64(vramLayers)) + " of " + humanize.Comma(int64(layerCount)) + " layers on accelerator",
			})
		}
	}

	if ramFreeBytes >= modelSizeBytes {
		plans = append(plans, Plan{
			VRAMLayers: 0,
			RAMLayers:  layerCount,
			VRAMBytes:  0,
			RAMBytes:   modelSizeBytes,
			SpeedTier:  Slow,
			Label:      "CPU-only, " + humanize.Bytes(modelSizeBytes),
		})
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return tierRank[plans[i].SpeedTier] > tierRank[plans[j].SpeedTier]
	})

	return plans
}
