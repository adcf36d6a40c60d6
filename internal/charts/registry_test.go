package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var destroyed []uint64
	r.OnDestroy(func(h *Handle) { destroyed = append(destroyed, h.Version) })

	first := r.Replace(SlotLapTimes, Config{Type: TypeLine})
	second := r.Replace(SlotLapTimes, Config{Type: TypeScatter})
	r.Replace(SlotTires, Config{Type: TypeBar})

	assert.Equal(t, []uint64{first.Version}, destroyed, "replace destroys the previous handle")
	got, ok := r.Get(SlotLapTimes)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, []string{SlotLapTimes, SlotTires}, r.Slots())

	assert.True(t, r.Destroy(SlotTires))
	assert.False(t, r.Destroy(SlotTires))
	assert.Len(t, r.Snapshot(), 1)

	r.Clear()
	assert.Empty(t, r.Slots())
	_, ok = r.Get(SlotLapTimes)
	assert.False(t, ok)
	assert.Len(t, destroyed, 3)
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "Lap Times Comparison", SlotTitle(SlotLapTimes))
	assert.Equal(t, "Telemetry Data", SlotTitle(SlotTelemetry))
	assert.Equal(t, "Telemetry Data - Lap 7", TelemetryTitle(7))
	assert.Empty(t, SlotTitle("speed-trap"))
}
