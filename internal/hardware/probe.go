// Package hardware implements C1: a pure, side-effect-free snapshot of the
// machine's CPU, GPU, NPU, and accelerator capabilities.
//
// The CPU, GPU, NPU and accelerator sub-probes are grounded on the
// vendor-CLI shell-out strategy in the teacher's autosetup/gpu_detector.go
// and autosetup/downloader.go (DetectSystem/EnhanceSystemInfo): nvidia-smi
// for NVIDIA, rocm-smi for AMD, system_profiler/sysctl for Apple Silicon,
// all through stdlib os/exec. System RAM is read through
// github.com/shirou/gopsutil/mem.
package hardware

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/mem"
)

// Cap is an accelerator capability flag.
type Cap string

const (
	CapCUDA     Cap = "cuda"
	CapVulkan   Cap = "vulkan"
	CapROCm     Cap = "rocm"
	CapMetal    Cap = "metal"
	CapDirectML Cap = "directml"
	CapNPU      Cap = "npu"
)

// GPUClass distinguishes discrete from integrated GPUs.
type GPUClass string

const (
	GPUDiscrete   GPUClass = "discrete"
	GPUIntegrated GPUClass = "integrated"
)

// CPUInfo describes the detected processor.
type CPUInfo struct {
	Vendor    string
	Microarch string // e.g. "Zen3", "Alderlake", falls back to "portable"
	Cores     int
	Threads   int
}

// GPUInfo describes a single detected GPU device.
type GPUInfo struct {
	Vendor    string
	Name      string
	Class     GPUClass
	VRAMBytes uint64 // 0 if unknown
}

// NPUInfo describes a detected neural processing unit.
type NPUInfo struct {
	Vendor    string
	Driver    string
	PowerMode string
}

// Inventory is an immutable snapshot of the host's hardware. Re-probed only
// on explicit request (Probe), never mutated after construction.
type Inventory struct {
	CPU           CPUInfo
	GPUs          []GPUInfo
	NPU           *NPUInfo // nil if absent
	Capabilities  map[Cap]bool
	TotalRAMBytes uint64
	FreeRAMBytes  uint64
}

// HasCap reports whether a capability flag is set.
func (inv Inventory) HasCap(c Cap) bool {
	return inv.Capabilities != nil && inv.Capabilities[c]
}

// TotalVRAMBytes sums VRAM across every detected GPU (see DESIGN.md's
// Open Question resolution: this runtime budgets against aggregate VRAM).
func (inv Inventory) TotalVRAMBytes() uint64 {
	var total uint64
	for _, g := range inv.GPUs {
		total += g.VRAMBytes
	}
	return total
}

// Probe performs a full hardware inventory. Every sub-probe degrades
// gracefully: a failed probe simply reports a negative/absent result, never
// propagates an error, so the inventory is always producible.
func Probe() Inventory {
	inv := Inventory{
		CPU:          probeCPU(),
		Capabilities: map[Cap]bool{},
	}

	inv.GPUs = probeGPUs()
	inv.NPU = probeNPU()
	inv.TotalRAMBytes, inv.FreeRAMBytes = probeRAM()

	for _, g := range inv.GPUs {
		switch g.Vendor {
		case "nvidia":
			inv.Capabilities[CapCUDA] = probeLibraryLiveness("cuda")
			inv.Capabilities[CapVulkan] = inv.Capabilities[CapVulkan] || probeLibraryLiveness("vulkan")
		case "amd":
			inv.Capabilities[CapROCm] = probeLibraryLiveness("rocm")
			inv.Capabilities[CapVulkan] = inv.Capabilities[CapVulkan] || probeLibraryLiveness("vulkan")
		case "apple":
			inv.Capabilities[CapMetal] = true
		case "intel":
			inv.Capabilities[CapVulkan] = inv.Capabilities[CapVulkan] || probeLibraryLiveness("vulkan")
			if runtime.GOOS == "windows" {
				inv.Capabilities[CapDirectML] = true
			}
		}
	}
	if runtime.GOOS == "windows" && len(inv.GPUs) > 0 {
		inv.Capabilities[CapDirectML] = true
	}
	if inv.NPU != nil {
		inv.Capabilities[CapNPU] = true
	}

	return inv
}

// probeRAM reports total and currently-free system memory. Failure degrades
// to zero, matching every other sub-probe's graceful-absence contract.
func probeRAM() (total, free uint64) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0
	}
	return v.Total, v.Available
}

// probeLibraryLiveness is a cheap accelerator liveness check: it runs the
// vendor's CLI probe binary and reports whether it exits successfully.
// Grounded on the upstream detectCUDA/detectROCm/detectVulkan pattern of
// shelling out to a probe binary rather than dlopen'ing anything.
func probeLibraryLiveness(which string) bool {
	var cmd *exec.Cmd
	switch which {
	case "cuda":
		cmd = exec.Command("nvidia-smi", "-L")
	case "rocm":
		cmd = exec.Command("rocm-smi", "--showid")
	case "vulkan":
		cmd = exec.Command("vulkaninfo", "--summary")
	default:
		return false
	}
	return cmd.Run() == nil
}

func probeCPU() CPUInfo {
	info := CPUInfo{
		Vendor:    "unknown",
		Microarch: "portable",
		Cores:     runtime.NumCPU(),
		Threads:   runtime.NumCPU(),
	}

	switch runtime.GOOS {
	case "linux":
		info.Vendor, info.Microarch = probeCPULinux()
	case "darwin":
		info.Vendor, info.Microarch = probeCPUDarwin()
	case "windows":
		info.Vendor, info.Microarch = probeCPUWindows()
	}

	if physical := detectPhysicalCores(); physical > 0 {
		info.Cores = physical
	}
	return info
}

func detectPhysicalCores() int {
	switch runtime.GOOS {
	case "linux":
		out, err := exec.Command("sh", "-c", "lscpu -p=Core,Socket | grep -v '^#' | sort -u | wc -l").Output()
		if err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(string(out))); err == nil && n > 0 {
				return n
			}
		}
	case "darwin":
		out, err := exec.Command("sysctl", "-n", "hw.physicalcpu").Output()
		if err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(string(out))); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func probeCPULinux() (vendor, microarch string) {
	out, err := exec.Command("sh", "-c", "grep -m1 'vendor_id' /proc/cpuinfo").Output()
	if err != nil {
		return "unknown", "portable"
	}
	line := string(out)
	switch {
	case strings.Contains(line, "AuthenticAMD"):
		vendor = "amd"
	case strings.Contains(line, "GenuineIntel"):
		vendor = "intel"
	default:
		vendor = "unknown"
	}

	modelOut, _ := exec.Command("sh", "-c", "grep -m1 'model name' /proc/cpuinfo").Output()
	model := strings.ToLower(string(modelOut))
	return vendor, classifyMicroarch(vendor, model)
}

func probeCPUDarwin() (vendor, microarch string) {
	out, err := exec.Command("sysctl", "-n", "machdep.cpu.brand_string").Output()
	if err != nil {
		return "unknown", "portable"
	}
	model := strings.ToLower(string(out))
	if strings.Contains(model, "apple") {
		return "apple", classifyMicroarch("apple", model)
	}
	return "intel", classifyMicroarch("intel", model)
}

func probeCPUWindows() (vendor, microarch string) {
	out, err := exec.Command("wmic", "cpu", "get", "name").Output()
	if err != nil {
		return "unknown", "portable"
	}
	model := strings.ToLower(string(out))
	switch {
	case strings.Contains(model, "amd"):
		vendor = "amd"
	case strings.Contains(model, "intel"):
		vendor = "intel"
	default:
		vendor = "unknown"
	}
	return vendor, classifyMicroarch(vendor, model)
}

// classifyMicroarch maps vendor/model strings to a named microarchitecture,
// falling back to a generic "portable" class when unrecognized.
func classifyMicroarch(vendor, modelLower string) string {
	switch {
	case vendor == "amd" && strings.Contains(modelLower, "ryzen 9 7"):
		return "Zen4"
	case vendor == "amd" && strings.Contains(modelLower, "ryzen 9 5"):
		return "Zen3"
	case vendor == "amd" && strings.Contains(modelLower, "ryzen"):
		return "Zen"
	case vendor == "intel" && (strings.Contains(modelLower, "14th gen") || strings.Contains(modelLower, "i9-14")):
		return "Raptorlake-Refresh"
	case vendor == "intel" && (strings.Contains(modelLower, "13th gen") || strings.Contains(modelLower, "i9-13")):
		return "Raptorlake"
	case vendor == "intel" && (strings.Contains(modelLower, "12th gen") || strings.Contains(modelLower, "i9-12")):
		return "Alderlake"
	case vendor == "apple" && strings.Contains(modelLower, "m3"):
		return "AppleM3"
	case vendor == "apple" && strings.Contains(modelLower, "m2"):
		return "AppleM2"
	case vendor == "apple" && strings.Contains(modelLower, "m1"):
		return "AppleM1"
	default:
		return "portable"
	}
}

// probeGPUs enumerates GPUs, grounded on autosetup/gpu_detector.go's
// per-vendor DetectAllGPUs strategy (nvidia-smi / rocm-smi / system_profiler
// + sysctl for unified memory on Apple Silicon).
func probeGPUs() []GPUInfo {
	var gpus []GPUInfo

	switch runtime.GOOS {
	case "linux", "windows":
		if g, ok := probeNvidiaGPUs(); ok {
			gpus = append(gpus, g...)
		}
		if g, ok := probeAMDGPUs(); ok {
			gpus = append(gpus, g...)
		}
	case "darwin":
		if g, ok := probeAppleGPU(); ok {
			gpus = append(gpus, g...)
		}
	}
	return gpus
}

func probeNvidiaGPUs() ([]GPUInfo, bool) {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu=name,memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil, false
	}
	var gpus []GPUInfo
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.Split(line, ", ")
		if len(parts) < 2 {
			continue
		}
		memMB, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		gpus = append(gpus, GPUInfo{
			Vendor:    "nvidia",
			Name:      strings.TrimSpace(parts[0]),
			Class:     GPUDiscrete,
			VRAMBytes: uint64(memMB * 1024 * 1024),
		})
	}
	return gpus, len(gpus) > 0
}

func probeAMDGPUs() ([]GPUInfo, bool) {
	out, err := exec.Command("rocm-smi", "--showmeminfo", "vram", "--csv").Output()
	if err != nil {
		return nil, false
	}
	var gpus []GPUInfo
	idx := 0
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "VRAM") {
			continue
		}
		gpus = append(gpus, GPUInfo{
			Vendor: "amd",
			Name:   fmt.Sprintf("AMD GPU %d", idx),
			Class:  GPUDiscrete,
		})
		idx++
	}
	return gpus, len(gpus) > 0
}

func probeAppleGPU() ([]GPUInfo, bool) {
	out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
	if err != nil {
		return nil, false
	}
	memBytes, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return nil, false
	}
	// Apple Silicon shares unified memory with the GPU; up to ~75% usable.
	return []GPUInfo{{
		Vendor:    "apple",
		Name:      "Apple Silicon GPU",
		Class:     GPUIntegrated,
		VRAMBytes: uint64(float64(memBytes) * 0.75),
	}}, true
}

// probeNPU detects AMD (XDNA driver + power-mode utility) and Intel
// (display-controller keyword + CPU generation match) NPUs.
// Absent on failure, never an error.
func probeNPU() *NPUInfo {
	if runtime.GOOS != "linux" && runtime.GOOS != "windows" {
		return nil
	}
	if out, err := exec.Command("sh", "-c", "lsmod 2>/dev/null | grep -i amdxdna").Output(); err == nil && len(out) > 0 {
		mode := "balanced"
		if pm, err := exec.Command("sh", "-c", "cat /sys/class/amdxdna/*/power_mode 2>/dev/null").Output(); err == nil {
			if s := strings.TrimSpace(string(pm)); s != "" {
				mode = s
			}
		}
		return &NPUInfo{Vendor: "amd", Driver: "xdna", PowerMode: mode}
	}

	cpu := probeCPU()
	if cpu.Vendor == "intel" {
		out, err := exec.Command("sh", "-c", "lspci 2>/dev/null | grep -i 'signal processing'").Output()
		if err == nil && strings.Contains(strings.ToLower(string(out)), "intel") {
			return &NPUInfo{Vendor: "intel", Driver: "vpu"}
		}
	}
	return nil
}
