package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// PatchDefaultParams applies a partial set_params update to the on-disk
// config.yaml. The file is loaded into a Config and re-encoded as JSON,
// each key is set with sjson, and the result is written back as YAML, so
// the whole Config struct is round-tripped. Keys are the yaml field names
// under default_params (e.g. "temperature", "top_p").
func PatchDefaultParams(path string, updates map[string]any) error {
	raw, err := yamlToJSON(path)
	if err != nil {
		return err
	}

	patched := raw
	for key, value := range updates {
		patched, err = sjson.SetBytes(patched, "default_params."+escapeDots(key), value)
		if err != nil {
			return fmt.Errorf("patching default_params.%s: %w", key, err)
		}
	}
	return jsonToYAMLFile(path, patched)
}

// PatchModelRecipeExtra patches one key inside a model's recipe.extra map,
// the same narrow-surgery shape the teacher applies to per-model command
// fragments rather than rewriting the whole models section.
func PatchModelRecipeExtra(path, modelID, key string, value any) error {
	raw, err := yamlToJSON(path)
	if err != nil {
		return err
	}

	pointer := fmt.Sprintf("models.%s.recipe.extra.%s", escapeDots(modelID), escapeDots(key))
	patched, err := sjson.SetBytes(raw, pointer, value)
	if err != nil {
		return fmt.Errorf("patching %s: %w", pointer, err)
	}
	return jsonToYAMLFile(path, patched)
}

// ReadDefaultParam reads a single default_params field from the config
// file at path and returns it as a string.
func ReadDefaultParam(path, key string) (string, error) {
	raw, err := yamlToJSON(path)
	if err != nil {
		return "", err
	}
	result := gjson.GetBytes(raw, "default_params."+escapeDots(key))
	if !result.Exists() {
		return "", fmt.Errorf("default_params.%s not set", key)
	}
	return result.String(), nil
}

// escapeDots guards against dots inside ids/keys breaking sjson/gjson's
// dotted-path addressing.
func escapeDots(segment string) string {
	return strings.ReplaceAll(segment, ".", `\.`)
}

// yamlToJSON loads path (YAML) and re-encodes it as JSON so gjson/sjson
// can operate on it; config.yaml has no YAML-only features (anchors,
// multi-doc) that would make this lossy.
func yamlToJSON(path string) ([]byte, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cfg)
}

func jsonToYAMLFile(path string, jsonBytes []byte) error {
	var generic map[string]any
	if err := json.Unmarshal(jsonBytes, &generic); err != nil {
		return fmt.Errorf("decoding patched config: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("re-encoding patched config as yaml: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
