package offload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlansSuppressesCPUFallbackWhenNoRAMHeadroom(t *testing.T) {
	plans := Plans(8<<30, 32, 0, 0, 4096)
	for _, p := range plans {
		assert.NotEqual(t, Slow, p.SpeedTier)
	}
}

func TestPlansEmitsCPUFallbackWhenRAMCoversModel(t *testing.T) {
	plans := Plans(8<<30, 32, 0, 16<<30, 4096)
	var sawSlow bool
	for _, p := range plans {
		if p.SpeedTier == Slow {
			sawSlow = true
		}
	}
	assert.True(t, sawSlow)
}

func TestPlansSuppressesCPUFallbackWhenRAMBelowModelSize(t *testing.T) {
	plans := Plans(8<<30, 32, 0, 4<<30, 4096)
	for _, p := range plans {
		assert.NotEqual(t, Slow, p.SpeedTier)
	}
}

func TestPlansEmitsFastTierWhenVRAMCoversModel(t *testing.T) {
	plans := Plans(4<<30, 32, 32<<30, 0, 4096)
	assert.NotEmpty(t, plans)
	assert.Equal(t, Fast, plans[0].SpeedTier)
}
