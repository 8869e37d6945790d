// Package config loads and reloads config.yaml, the ambient configuration
// surface for cmd/hearthrund. Format and reload story are grounded on
// frogllm.go's LoadConfig/watch-debounce loop and the upstream's implied
// proxy.Config shape (profiles, groups, per-model entries) reconstructed
// from its call sites in proxy/proxymanager.go.
package config

import (
	"fmt"
	"os"

	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/hearthrun/hearthrun/internal/recipe"
	"gopkg.in/yaml.v3"
)

// ModelEntry is one catalog entry a caller may reference by alias instead
// of a raw source string.
type ModelEntry struct {
	Source  string          `yaml:"source" json:"source"`
	Aliases []string        `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Recipe  *ExplicitRecipe `yaml:"recipe,omitempty" json:"recipe,omitempty"`
}

// ExplicitRecipe mirrors recipe.Explicit in YAML-friendly form; AsRecipe
// converts it, leaving nil when the entry supplied no override (the
// handler then runs auto-selection).
type ExplicitRecipe struct {
	Engine      recipe.Engine      `yaml:"engine" json:"engine"`
	Accelerator recipe.Accelerator `yaml:"accelerator" json:"accelerator"`
	ContextSize int                `yaml:"context_size,omitempty" json:"context_size,omitempty"`
	BatchSize   int                `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	Threads     int                `yaml:"threads,omitempty" json:"threads,omitempty"`
	Extra       map[string]any     `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// AsRecipe converts a YAML-sourced override into recipe.Explicit, or
// returns nil when e is nil.
func (e *ExplicitRecipe) AsRecipe() *recipe.Explicit {
	if e == nil {
		return nil
	}
	return &recipe.Explicit{
		Engine:      e.Engine,
		Accelerator: e.Accelerator,
		ContextSize: e.ContextSize,
		BatchSize:   e.BatchSize,
		Threads:     e.Threads,
		Extra:       e.Extra,
	}
}

// DefaultParams mirrors engine.Settings in YAML-friendly form.
type DefaultParams struct {
	Temperature       float64  `yaml:"temperature" json:"temperature"`
	TopP              float64  `yaml:"top_p" json:"top_p"`
	TopK              int      `yaml:"top_k" json:"top_k"`
	MaxNewTokens      int      `yaml:"max_new_tokens" json:"max_new_tokens"`
	RepetitionPenalty float64  `yaml:"repetition_penalty" json:"repetition_penalty"`
	DoSample          bool     `yaml:"do_sample" json:"do_sample"`
	StopSequences     []string `yaml:"stop_sequences,omitempty" json:"stop_sequences,omitempty"`
}

// AsSettings converts to engine.Settings.
func (p DefaultParams) AsSettings() engine.Settings {
	return engine.Settings{
		Temperature:       p.Temperature,
		TopP:              p.TopP,
		TopK:              p.TopK,
		MaxNewTokens:      p.MaxNewTokens,
		RepetitionPenalty: p.RepetitionPenalty,
		DoSample:          p.DoSample,
		StopSequences:     p.StopSequences,
	}
}

// Config is the full on-disk shape of config.yaml.
type Config struct {
	Listen               string                `yaml:"listen" json:"listen"`
	StdioEnabled         bool                  `yaml:"stdio_enabled" json:"stdio_enabled"`
	HFToken              string                `yaml:"hf_token,omitempty" json:"hf_token,omitempty"`
	MinFreeMemoryPercent float64               `yaml:"min_free_memory_percent" json:"min_free_memory_percent"`
	MaxConcurrentLoads   int64                 `yaml:"max_concurrent_generate" json:"max_concurrent_generate"`
	DefaultParams        DefaultParams         `yaml:"default_params" json:"default_params"`
	Models               map[string]ModelEntry `yaml:"models,omitempty" json:"models,omitempty"`
}

// Default returns the configuration used when no config.yaml exists yet,
// matching the teacher's self-heal-to-empty-config behavior in frogllm.go.
func Default() Config {
	return Config{
		Listen:               ":8080",
		StdioEnabled:         true,
		MinFreeMemoryPercent: 10.0,
		MaxConcurrentLoads:   4,
		DefaultParams: DefaultParams{
			Temperature:       0.8,
			TopP:              0.95,
			TopK:              40,
			MaxNewTokens:      512,
			RepetitionPenalty: 1.1,
			DoSample:          true,
		},
	}
}

// Load reads and parses path. A missing file is not an error: it returns
// Default() so the caller can create the file and continue, matching
// frogllm.go's "create an empty config if missing" startup behavior.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(data) == 0 {
		return Default(), nil
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg back to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveModel looks up a model entry by id or alias.
func (c Config) ResolveModel(idOrAlias string) (ModelEntry, bool) {
	if entry, ok := c.Models[idOrAlias]; ok {
		return entry, true
	}
	for _, entry := range c.Models {
		for _, alias := range entry.Aliases {
			if alias == idOrAlias {
				return entry, true
			}
		}
	}
	return ModelEntry{}, false
}
