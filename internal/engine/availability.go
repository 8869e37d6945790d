package engine

import (
	"os/exec"
	"runtime"

	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/recipe"
)

// Pair is one (engine, accelerator) combination the host can actually run.
type Pair struct {
	Engine      Engine
	Accelerator recipe.Accelerator
}

// Available enumerates every (engine, accelerator) pair usable on inv: the
// engine's native library/binary must be importable, and the accelerator
// must be in inv's capability set (CPU is always available).
func Available(inv hardware.Inventory) []Pair {
	var pairs []Pair

	for _, eng := range []Engine{LlamaCpp, BitNet, OnnxRuntime, MediaPipe} {
		if !engineImportable(eng) {
			continue
		}
		for _, acc := range acceleratorsFor(eng) {
			if acc == recipe.CPU || acceleratorAvailable(inv, acc, eng) {
				pairs = append(pairs, Pair{Engine: eng, Accelerator: acc})
			}
		}
	}
	return pairs
}

func acceleratorsFor(eng Engine) []recipe.Accelerator {
	switch eng {
	case LlamaCpp, BitNet:
		return []recipe.Accelerator{recipe.CUDA, recipe.Vulkan, recipe.ROCm, recipe.Metal, recipe.CPU}
	case OnnxRuntime:
		return []recipe.Accelerator{recipe.Hybrid, recipe.NPU, recipe.DirectML, recipe.CUDA, recipe.CPU}
	case MediaPipe:
		return []recipe.Accelerator{recipe.NPU, recipe.CUDA, recipe.Vulkan, recipe.ROCm, recipe.Metal, recipe.CPU}
	default:
		return nil
	}
}

// engineImportable checks that the engine's native runtime is present on
// this host: the llama-server binary on the loader path for
// LlamaCpp/BitNet, and (honestly) never for the two stub bindings.
func engineImportable(eng Engine) bool {
	switch eng {
	case LlamaCpp, BitNet:
		_, err := exec.LookPath("llama-server")
		return err == nil
	default:
		return false
	}
}

func acceleratorAvailable(inv hardware.Inventory, acc recipe.Accelerator, eng Engine) bool {
	switch acc {
	case recipe.CUDA:
		return inv.HasCap(hardware.CapCUDA)
	case recipe.Vulkan:
		return inv.HasCap(hardware.CapVulkan)
	case recipe.ROCm:
		return inv.HasCap(hardware.CapROCm)
	case recipe.Metal:
		return inv.HasCap(hardware.CapMetal)
	case recipe.DirectML:
		return inv.HasCap(hardware.CapDirectML) && runtime.GOOS == "windows"
	case recipe.NPU:
		if !inv.HasCap(hardware.CapNPU) {
			return false
		}
		// NPU execution providers are engine-specific; only ONNX Runtime
		// and MediaPipe expose one in this runtime's adapter set.
		return eng == OnnxRuntime || eng == MediaPipe
	case recipe.Hybrid:
		return eng == OnnxRuntime && inv.HasCap(hardware.CapNPU) && inv.HasCap(hardware.CapDirectML)
	default:
		return false
	}
}
