// Package artifact implements C3: mapping a bare source string (filesystem
// path or remote repository identifier) to an ArtifactDescriptor describing
// its format, architecture, and task.
package artifact

// Format is the closed set of artifact container formats names.
type Format string

const (
	FormatGGUF        Format = "GGUF"
	FormatBitNet      Format = "BitNet"
	FormatONNX        Format = "ONNX"
	FormatSafeTensors Format = "SafeTensors"
	FormatMediaPipe   Format = "MediaPipeTask"
	FormatLiteRT      Format = "LiteRT"
)

// Architecture is the closed set of recognized model architectures, with
// Generic as the catch-all.
type Architecture string

const (
	ArchFlorence2 Architecture = "Florence2"
	ArchJanus     Architecture = "Janus"
	ArchWhisper   Architecture = "Whisper"
	ArchCLIP      Architecture = "CLIP"
	ArchCLAP      Architecture = "CLAP"
	ArchMoonshine Architecture = "Moonshine"
	ArchGeneric   Architecture = "Generic"
)

// Task is the closed set of inference tasks a pipeline may serve.
type Task string

const (
	TaskTextGeneration    Task = "TextGeneration"
	TaskImageToText       Task = "ImageToText"
	TaskASR               Task = "ASR"
	TaskFeatureExtraction Task = "FeatureExtraction"
)

// Descriptor is the immutable result of artifact resolution.
// Once a load completes its fields are folded into the owning LoadedModel
// and the Descriptor value itself is discarded.
type Descriptor struct {
	Source       string
	LocalPath    string // populated once the artifact is on local disk
	Repo         string // owner/repo, set when Source was a remote reference
	Format       Format
	Architecture Architecture
	Task         Task
	SizeBytes    uint64
	LayerCount   uint32 // 0 when unknown; offload planner estimates in that case
}
