package handler

import (
	"testing"

	"github.com/hearthrun/hearthrun/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestClipSettingsBoundsInvalidValues(t *testing.T) {
	clipped := clipSettings(engine.Settings{
		Temperature:       -1,
		TopP:              1.5,
		TopK:              -5,
		MaxNewTokens:      0,
		RepetitionPenalty: -2,
	})
	assert.Equal(t, 0.0, clipped.Temperature)
	assert.Equal(t, 1.0, clipped.TopP)
	assert.Equal(t, 0, clipped.TopK)
	assert.Equal(t, 1, clipped.MaxNewTokens)
	assert.Equal(t, 1.0, clipped.RepetitionPenalty)
}

func TestClipSettingsBoundsUpperTemperature(t *testing.T) {
	clipped := clipSettings(engine.Settings{Temperature: 2.5})
	assert.Equal(t, 2.0, clipped.Temperature)
}

func TestClipSettingsLeavesZeroTopPAtZero(t *testing.T) {
	clipped := clipSettings(engine.Settings{TopP: 0})
	assert.Equal(t, 0.0, clipped.TopP)
}

func TestClipSettingsClampsMidRangeRepetitionPenalty(t *testing.T) {
	clipped := clipSettings(engine.Settings{RepetitionPenalty: 0.5})
	assert.Equal(t, 1.0, clipped.RepetitionPenalty)
}

func TestClipSettingsPreservesValidValues(t *testing.T) {
	in := engine.Settings{Temperature: 0.5, TopP: 0.9, TopK: 40, MaxNewTokens: 128, RepetitionPenalty: 1.2}
	assert.Equal(t, in, clipSettings(in))
}

func TestHaltGenerationReportsWasGenerating(t *testing.T) {
	h := &Handler{}
	cancel := engine.NewCancelSignal()
	result := h.HaltGeneration(cancel)
	assert.True(t, result.WasGenerating)
	assert.True(t, cancel.Cancelled())

	result = h.HaltGeneration(cancel)
	assert.False(t, result.WasGenerating)
}

func TestHaltGenerationNilSignal(t *testing.T) {
	h := &Handler{}
	assert.Equal(t, HaltResult{}, h.HaltGeneration(nil))
}
