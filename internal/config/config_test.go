package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Listen = "0.0.0.0:9090"
	cfg.DefaultParams.Temperature = 0.42

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", loaded.Listen)
	assert.Equal(t, 0.42, loaded.DefaultParams.Temperature)
}

func TestResolveModelByAlias(t *testing.T) {
	cfg := Default()
	cfg.Models = map[string]ModelEntry{
		"qwen2.5-7b": {Source: "hf:Qwen/Qwen2.5-7B-Instruct-GGUF", Aliases: []string{"qwen", "default"}},
	}

	entry, ok := cfg.ResolveModel("qwen")
	require.True(t, ok)
	assert.Equal(t, "hf:Qwen/Qwen2.5-7B-Instruct-GGUF", entry.Source)

	_, ok = cfg.ResolveModel("nonexistent")
	assert.False(t, ok)
}

func TestExplicitRecipeAsRecipeNilWhenUnset(t *testing.T) {
	var e *ExplicitRecipe
	assert.Nil(t, e.AsRecipe())
}

func TestDefaultParamsAsSettings(t *testing.T) {
	p := DefaultParams{Temperature: 0.7, TopP: 0.9, TopK: 40, MaxNewTokens: 256, RepetitionPenalty: 1.1, DoSample: true}
	s := p.AsSettings()
	assert.Equal(t, p.Temperature, s.Temperature)
	assert.Equal(t, p.MaxNewTokens, s.MaxNewTokens)
	assert.True(t, s.DoSample)
}
