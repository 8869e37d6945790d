package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchDefaultParamsUpdatesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, Default()))

	err := PatchDefaultParams(path, map[string]any{"temperature": 0.25})
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.DefaultParams.Temperature)
	assert.Equal(t, Default().DefaultParams.TopP, cfg.DefaultParams.TopP)
}

func TestPatchModelRecipeExtra(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Models = map[string]ModelEntry{
		"phi-3-mini": {Source: "hf:microsoft/Phi-3-mini-4k-instruct-gguf"},
	}
	require.NoError(t, Save(path, cfg))

	err := PatchModelRecipeExtra(path, "phi-3-mini", "n_gpu_layers", 20)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Models["phi-3-mini"].Recipe)
	assert.EqualValues(t, 20, loaded.Models["phi-3-mini"].Recipe.Extra["n_gpu_layers"])

	v, err := ReadDefaultParam(path, "do_sample")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}

func TestEscapeDots(t *testing.T) {
	assert.Equal(t, `my\.model\.id`, escapeDots("my.model.id"))
	assert.Equal(t, "plain", escapeDots("plain"))
}

func TestReadDefaultParamMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, Default()))

	_, err := ReadDefaultParam(path, "does_not_exist")
	assert.Error(t, err)
}
