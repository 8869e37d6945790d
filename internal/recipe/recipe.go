// Package recipe implements C4: a pure function turning
// (format, hardware, explicit-recipe?) into a concrete Recipe, enforcing
// the closed format/engine/accelerator compatibility table. Extracted from
// the upstream backend-selection logic in autosetup/config_generator.go,
// which weaves recipe choice into YAML generation; here it is pulled out
// as a pure, independently testable function.
package recipe

import (
	"github.com/hearthrun/hearthrun/internal/artifact"
	"github.com/hearthrun/hearthrun/internal/hardware"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

// Engine mirrors internal/engine.Engine without importing that package
// (which itself depends on recipe), keeping the dependency graph acyclic.
type Engine string

const (
	LlamaCpp    Engine = "LlamaCpp"
	BitNet      Engine = "BitNet"
	OnnxRuntime Engine = "OnnxRuntime"
	MediaPipe   Engine = "MediaPipe"
)

// Accelerator is the closed set of execution targets.
type Accelerator string

const (
	CPU      Accelerator = "CPU"
	CUDA     Accelerator = "CUDA"
	Vulkan   Accelerator = "Vulkan"
	ROCm     Accelerator = "ROCm"
	Metal    Accelerator = "Metal"
	DirectML Accelerator = "DirectML"
	NPU      Accelerator = "NPU"
	Hybrid   Accelerator = "Hybrid" // NPU+DirectML, ONNX only
)

// Recipe is the chosen (engine, accelerator, params) tuple.
type Recipe struct {
	Engine      Engine
	Accelerator Accelerator
	ContextSize int
	BatchSize   int
	Threads     int // 0 means "let the engine decide"
	Extra       map[string]any
}

// legalEngines is the closed format -> allowed-engines table.
var legalEngines = map[artifact.Format][]Engine{
	artifact.FormatGGUF:      {LlamaCpp},
	artifact.FormatBitNet:    {BitNet},
	artifact.FormatONNX:      {OnnxRuntime},
	artifact.FormatMediaPipe: {MediaPipe},
	artifact.FormatLiteRT:    {MediaPipe},
	// SafeTensors is out-of-core for this runtime: no engine.
}

// defaultContext is the format-keyed default context size.
var defaultContext = map[artifact.Format]int{
	artifact.FormatGGUF:      4096,
	artifact.FormatBitNet:    4096,
	artifact.FormatONNX:      4096,
	artifact.FormatMediaPipe: 2048,
	artifact.FormatLiteRT:    2048,
}

// legalAccelerators lists, per engine, every accelerator it may pair with
// (closed pairs enforced by I3), independent of what's actually available.
var legalAccelerators = map[Engine][]Accelerator{
	LlamaCpp:    {CUDA, Vulkan, ROCm, Metal, CPU},
	BitNet:      {CUDA, Vulkan, ROCm, Metal, CPU},
	OnnxRuntime: {Hybrid, NPU, DirectML, CUDA, CPU},
	MediaPipe:   {NPU, CUDA, Vulkan, ROCm, Metal, CPU}, // "GPU" generalized across vendor accelerators
}

// priorityOrder is the tie-break/auto-selection priority per engine,
// most-efficient first.
var priorityOrder = map[Engine][]Accelerator{
	LlamaCpp:    {CUDA, Vulkan, ROCm, Metal, CPU},
	BitNet:      {CUDA, Vulkan, ROCm, Metal, CPU},
	OnnxRuntime: {Hybrid, NPU, DirectML, CUDA, CPU},
	MediaPipe:   {NPU, CUDA, Vulkan, ROCm, Metal, CPU},
}

// Explicit is a caller-supplied recipe request, validated (never silently
// downgraded).
type Explicit struct {
	Engine      Engine
	Accelerator Accelerator
	ContextSize int
	BatchSize   int
	Threads     int
	Extra       map[string]any
}

// Resolve implements algorithm.
func Resolve(desc artifact.Descriptor, inv hardware.Inventory, explicit *Explicit) (Recipe, error) {
	allowed, ok := legalEngines[desc.Format]
	if !ok || len(allowed) == 0 {
		return Recipe{}, hearthrunerr.Newf(hearthrunerr.IncompatibleRecipe,
			"format %s has no supported engine", desc.Format)
	}

	if explicit != nil {
		return resolveExplicit(desc, inv, *explicit, allowed)
	}
	return autoSelect(desc, inv, allowed)
}

func resolveExplicit(desc artifact.Descriptor, inv hardware.Inventory, ex Explicit, allowed []Engine) (Recipe, error) {
	if !containsEngine(allowed, ex.Engine) {
		return Recipe{}, hearthrunerr.Newf(hearthrunerr.IncompatibleRecipe,
			"engine %s cannot serve format %s", ex.Engine, desc.Format)
	}
	if !containsAccelerator(legalAccelerators[ex.Engine], ex.Accelerator) {
		return Recipe{}, hearthrunerr.Newf(hearthrunerr.IncompatibleRecipe,
			"accelerator %s is not a legal pairing for engine %s", ex.Accelerator, ex.Engine)
	}
	if ex.Accelerator != CPU && !acceleratorAvailable(inv, ex.Accelerator) {
		return Recipe{}, hearthrunerr.Newf(hearthrunerr.IncompatibleRecipe,
			"accelerator %s is not available on this host", ex.Accelerator)
	}

	ctx := ex.ContextSize
	if ctx == 0 {
		ctx = defaultContext[desc.Format]
	}
	batch := ex.BatchSize
	if batch == 0 {
		batch = 512
	}
	return Recipe{
		Engine: ex.Engine, Accelerator: ex.Accelerator,
		ContextSize: ctx, BatchSize: batch, Threads: ex.Threads, Extra: ex.Extra,
	}, nil
}

func autoSelect(desc artifact.Descriptor, inv hardware.Inventory, allowed []Engine) (Recipe, error) {
	// Only one engine is ever legal per format in this runtime's closed table,
	// but iterate to stay correct if that ever changes.
	for _, eng := range allowed {
		for _, acc := range priorityOrder[eng] {
			if acc == Hybrid {
				if eng == OnnxRuntime && inv.HasCap(hardwarenpu()) && inv.HasCap(hardwaredirectml()) {
					return built(eng, acc, desc), nil
				}
				continue
			}
			if acc == CPU || acceleratorAvailable(inv, acc) {
				return built(eng, acc, desc), nil
			}
		}
	}
	return Recipe{}, hearthrunerr.Newf(hearthrunerr.IncompatibleRecipe,
		"no available accelerator for engine(s) %v", allowed)
}

func built(eng Engine, acc Accelerator, desc artifact.Descriptor) Recipe {
	return Recipe{
		Engine:      eng,
		Accelerator: acc,
		ContextSize: defaultContext[desc.Format],
		BatchSize:   512,
		Extra:       map[string]any{},
	}
}

func acceleratorAvailable(inv hardware.Inventory, acc Accelerator) bool {
	switch acc {
	case CUDA:
		return inv.HasCap(hardware.CapCUDA)
	case Vulkan:
		return inv.HasCap(hardware.CapVulkan)
	case ROCm:
		return inv.HasCap(hardware.CapROCm)
	case Metal:
		return inv.HasCap(hardware.CapMetal)
	case DirectML:
		return inv.HasCap(hardware.CapDirectML)
	case NPU:
		return inv.HasCap(hardware.CapNPU)
	case CPU:
		return true
	default:
		return false
	}
}

// hardwarenpu/hardwaredirectml avoid importing hardware.Cap values twice
// at call sites; trivial aliases kept local to this file for readability.
func hardwarenpu() hardware.Cap      { return hardware.CapNPU }
func hardwaredirectml() hardware.Cap { return hardware.CapDirectML }

func containsEngine(list []Engine, e Engine) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

func containsAccelerator(list []Accelerator, a Accelerator) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
