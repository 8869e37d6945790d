// Resolver implements C3's detection precedence: local
// extension/magic sniffing first, then owner/repo pattern matching, then
// explicit repo+variant. Architecture detection is substring matching on
// the basename/repo-name, the same idiom the reference implementation uses for model-family
// detection in autosetup/detector.go (isSuitableForDraftModel's family
// list), generalized here from "same family" to "known architecture" and
// backstopped by a bounded edit-distance check (github.com/agnivade/
// levenshtein) for near-miss spellings before falling back to Generic.
package artifact

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/distribution/reference"
	"github.com/hearthrun/hearthrun/internal/hearthrunerr"
)

var extensionFormats = map[string]Format{
	".gguf":        FormatGGUF,
	".onnx":        FormatONNX,
	".task":        FormatMediaPipe,
	".safetensors": FormatSafeTensors,
}

var bitnetFilenameHints = regexp.MustCompile(`(?i)bitnet|b1\.58|b1_58|1\.58bit|i2_s|tl1|tl2`)

// archKeywords maps a lowercase substring to the architecture it implies.
// Order matters only for readability; lookups scan the whole table and take
// the longest match so "clip" doesn't shadow a hypothetical "clip-large".
var archKeywords = map[string]Architecture{
	"florence":  ArchFlorence2,
	"whisper":   ArchWhisper,
	"janus":     ArchJanus,
	"clip":      ArchCLIP,
	"clap":      ArchCLAP,
	"moonshine": ArchMoonshine,
}

// archTask is the fixed architecture -> task table.
var archTask = map[Architecture]Task{
	ArchWhisper:   TaskASR,
	ArchMoonshine: TaskASR,
	ArchFlorence2: TaskImageToText,
	ArchJanus:     TaskImageToText,
	ArchCLIP:      TaskFeatureExtraction,
	ArchCLAP:      TaskFeatureExtraction,
	ArchGeneric:   TaskTextGeneration,
}

// repoFormatHints maps owner/repo name substrings to formats.
var repoFormatHints = []struct {
	substr string
	format Format
}{
	{"-gguf", FormatGGUF},
	{"-onnx", FormatONNX},
	{"-litert", FormatLiteRT},
}

// RepoLister fetches a remote repository's file listing, used to pick a
// variant when the format can't be inferred from the repo name alone.
// Implemented by internal/artifact's download.go against the HuggingFace
// API, grounded on proxy/model_search.go.
type RepoLister interface {
	ListFiles(repo, authToken string) ([]string, error)
}

// Resolver resolves source strings to Descriptors.
type Resolver struct {
	Lister RepoLister
}

// NewResolver constructs a Resolver with the default HuggingFace-backed
// file lister.
func NewResolver() *Resolver {
	return &Resolver{Lister: newHFLister()}
}

// Resolve implements detection precedence.
func (r *Resolver) Resolve(source, authToken string) (*Descriptor, error) {
	if source == "" {
		return nil, hearthrunerr.New(hearthrunerr.InvalidRequest, "empty source")
	}

	// Step 1: local file by extension.
	if ext := strings.ToLower(filepath.Ext(source)); extensionFormats[ext] != "" {
		if _, err := os.Stat(source); err == nil {
			return r.resolveLocalFile(source, ext)
		}
		return nil, hearthrunerr.Newf(hearthrunerr.SourceNotFound, "local artifact not found: %s", source)
	}

	// Step 2/3: remote repository reference (owner/repo[/subpath],
	// optionally owner/repo:variant).
	if repo, variant, ok := parseRepoReference(source); ok {
		return r.resolveRemote(repo, variant, authToken)
	}

	// Bare path that exists but has no recognized extension: a directory
	// is resolved as directory-form ONNX; any other file is rejected as
	// UnknownFormat without reading its header.
	if info, err := os.Stat(source); err == nil {
		if info.IsDir() {
			return r.resolveONNXDirectory(source)
		}
		return nil, hearthrunerr.Newf(hearthrunerr.UnknownFormat, "unrecognized artifact extension for %s", source)
	}

	return nil, hearthrunerr.Newf(hearthrunerr.SourceNotFound, "source not found: %s", source)
}

func (r *Resolver) resolveLocalFile(path, ext string) (*Descriptor, error) {
	format := extensionFormats[ext]
	desc := &Descriptor{Source: path, LocalPath: path, Format: format}

	if format == FormatGGUF {
		meta, err := ReadGGUFMetadata(path)
		if err != nil {
			return nil, hearthrunerr.Wrap(hearthrunerr.UnknownFormat, err)
		}
		if isBitNetArchitecture(meta.Architecture) || bitnetFilenameHints.MatchString(filepath.Base(path)) {
			desc.Format = FormatBitNet
		}
		desc.LayerCount = meta.BlockCount
		arch := detectArchitecture(filepath.Base(path), meta.Architecture)
		desc.Architecture = arch
		desc.Task = taskFor(arch)
		if info, err := os.Stat(path); err == nil {
			desc.SizeBytes = uint64(info.Size())
		}
		return desc, nil
	}

	arch := detectArchitecture(filepath.Base(path), "")
	desc.Architecture = arch
	desc.Task = taskFor(arch)
	if info, err := os.Stat(path); err == nil {
		desc.SizeBytes = uint64(info.Size())
	}
	return desc, nil
}

func (r *Resolver) resolveONNXDirectory(dir string) (*Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, hearthrunerr.Wrap(hearthrunerr.SourceNotFound, err)
	}
	for _, e := range entries {
		if strings.HasSuffix(strings.ToLower(e.Name()), ".onnx") {
			arch := detectArchitecture(filepath.Base(dir), "")
			var size uint64
			if info, err := e.Info(); err == nil {
				size = uint64(info.Size())
			}
			return &Descriptor{
				Source: dir, LocalPath: dir, Format: FormatONNX,
				Architecture: arch, Task: taskFor(arch), SizeBytes: size,
			}, nil
		}
	}
	return nil, hearthrunerr.Newf(hearthrunerr.UnknownFormat, "no .onnx file found in directory %s", dir)
}

// parseRepoReference recognizes "owner/repo", "owner/repo/subpath", and
// "owner/repo:variant" source strings. The grammar is shared with OCI image
// references closely enough that this resolver reuses
// github.com/distribution/reference's parser rather than a bespoke regex
// (see DESIGN.md).
func parseRepoReference(source string) (repo, variant string, ok bool) {
	if strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") {
		return "", "", false
	}

	base := source
	if idx := strings.Index(source, ":"); idx > 0 {
		base = source[:idx]
		variant = source[idx+1:]
	}

	if !strings.Contains(base, "/") {
		return "", "", false
	}

	if _, err := reference.ParseNormalizedNamed(base); err == nil {
		return base, variant, true
	}

	// distribution/reference rejects names with uppercase letters, which
	// HF-style "owner/repo" ids often have; fall back to the minimal
	// owner/repo[/subpath] shape: at least one slash, no leading slash, no
	// spaces.
	if strings.Contains(base, "/") && !strings.Contains(base, " ") {
		return base, variant, true
	}
	return "", "", false
}

func (r *Resolver) resolveRemote(repo, variant, authToken string) (*Descriptor, error) {
	desc := &Descriptor{Source: repo, Repo: repo}

	lower := strings.ToLower(repo)
	for _, hint := range repoFormatHints {
		if strings.Contains(lower, hint.substr) {
			desc.Format = hint.format
		}
	}

	if variant != "" {
		desc.Source = repo + ":" + variant
		desc.Format = formatFromFilename(variant, desc.Format)
		if bitnetFilenameHints.MatchString(variant) {
			desc.Format = FormatBitNet
		}
		arch := detectArchitecture(repo, "")
		desc.Architecture = arch
		desc.Task = taskFor(arch)
		return desc, nil
	}

	if desc.Format == "" {
		if r.Lister == nil {
			return nil, hearthrunerr.New(hearthrunerr.UnknownFormat, "no file lister configured to disambiguate repo format")
		}
		files, err := r.Lister.ListFiles(repo, authToken)
		if err != nil {
			return nil, hearthrunerr.Wrap(hearthrunerr.NetworkFetchFailed, err)
		}
		chosen := pickVariant(files)
		if chosen == "" {
			return nil, hearthrunerr.Newf(hearthrunerr.UnknownFormat, "no recognized artifact file in repo %s", repo)
		}
		desc.Format = formatFromFilename(chosen, "")
		desc.Source = repo + ":" + chosen
		if bitnetFilenameHints.MatchString(chosen) {
			desc.Format = FormatBitNet
		}
	}

	arch := detectArchitecture(repo, "")
	desc.Architecture = arch
	desc.Task = taskFor(arch)
	return desc, nil
}

func formatFromFilename(name string, fallback Format) Format {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensionFormats[ext]; ok {
		return f
	}
	return fallback
}

// pickVariant chooses the best-fit file from a repo listing: prefer GGUF,
// then ONNX, then MediaPipe/.task, skipping auxiliary files like .mmproj.
func pickVariant(files []string) string {
	priority := []string{".gguf", ".onnx", ".task", ".safetensors"}
	for _, ext := range priority {
		for _, f := range files {
			if strings.Contains(strings.ToLower(f), "mmproj") {
				continue
			}
			if strings.HasSuffix(strings.ToLower(f), ext) {
				return f
			}
		}
	}
	return ""
}

// detectArchitecture applies substring matching, falling
// back to a bounded Levenshtein check on near-miss spellings before
// declaring Generic.
func detectArchitecture(basenameOrRepo, metadataArchHint string) Architecture {
	lower := strings.ToLower(basenameOrRepo)

	if metadataArchHint != "" {
		if a, ok := archFromMetadataKey(metadataArchHint); ok {
			return a
		}
	}

	var best Architecture
	bestLen := 0
	for kw, arch := range archKeywords {
		if strings.Contains(lower, kw) && len(kw) > bestLen {
			best, bestLen = arch, len(kw)
		}
	}
	if best != "" {
		return best
	}

	// Near-miss spelling check: split on non-alnum and compare each token
	// against the keyword table with a tight edit-distance budget.
	tokens := regexp.MustCompile(`[^a-z0-9]+`).Split(lower, -1)
	for _, tok := range tokens {
		if len(tok) < 4 {
			continue
		}
		for kw, arch := range archKeywords {
			if levenshtein.ComputeDistance(tok, kw) <= 1 {
				return arch
			}
		}
	}

	return ArchGeneric
}

// archFromMetadataKey maps a GGUF "general.architecture" value to our
// Architecture enum when it names one we specialize; most GGUF LLM
// architectures (llama, qwen2, mistral, ...) fall through to Generic
// text-generation handling, which is correct.
func archFromMetadataKey(key string) (Architecture, bool) {
	lower := strings.ToLower(key)
	for kw, arch := range archKeywords {
		if strings.Contains(lower, kw) {
			return arch, true
		}
	}
	return "", false
}

func isBitNetArchitecture(metadataArch string) bool {
	lower := strings.ToLower(metadataArch)
	return strings.Contains(lower, "bitnet") || strings.Contains(lower, "1.58") || strings.Contains(lower, "1_58")
}

func taskFor(arch Architecture) Task {
	if t, ok := archTask[arch]; ok {
		return t
	}
	return TaskTextGeneration
}
