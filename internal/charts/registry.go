package charts

import (
	"fmt"
	"slices"
	"sync"
)

// Chart slots of the dashboard page.
const (
	SlotLapTimes     = "lap-times-chart"
	SlotTelemetry    = "telemetry-chart"
	SlotTires        = "tire-chart"
	SlotTireStrategy = "tire-strategy-chart"
)

var Slots = []string{SlotLapTimes, SlotTelemetry, SlotTires, SlotTireStrategy}

var slotTitles = map[string]string{
	SlotLapTimes:     "Lap Times Comparison",
	SlotTelemetry:    "Telemetry Data",
	SlotTires:        "Tire Compound Usage",
	SlotTireStrategy: "Tire Strategy",
}

// SlotTitle returns the heading of a slot. The telemetry heading gains the lap
// number once telemetry is shown.
func SlotTitle(slot string) string { return slotTitles[slot] }

func TelemetryTitle(lap int) string {
	return fmt.Sprintf("%s - Lap %d", slotTitles[SlotTelemetry], lap)
}

// Handle is an installed chart. Version increases with every install on any slot
// of the registry so consumers can detect replacements.
type Handle struct {
	Slot    string `json:"slot"`
	Config  Config `json:"config"`
	Version uint64 `json:"version"`
}

// Registry owns the chart handles of one dashboard, keyed by slot.
type Registry struct {
	mu       sync.RWMutex
	handles  map[string]*Handle
	version  uint64
	onRemove func(*Handle)
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// OnDestroy registers a callback invoked for every handle leaving the registry.
func (r *Registry) OnDestroy(fn func(*Handle)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = fn
}

// Replace destroys the handle installed on slot, if any, and installs cfg.
func (r *Registry) Replace(slot string, cfg Config) *Handle {
	r.mu.Lock()
	old := r.handles[slot]
	r.version++
	h := &Handle{Slot: slot, Config: cfg, Version: r.version}
	r.handles[slot] = h
	cb := r.onRemove
	r.mu.Unlock()

	if old != nil && cb != nil {
		cb(old)
	}
	return h
}

// Destroy removes the handle of slot. It reports whether one was installed.
func (r *Registry) Destroy(slot string) bool {
	r.mu.Lock()
	old, ok := r.handles[slot]
	delete(r.handles, slot)
	cb := r.onRemove
	r.mu.Unlock()

	if ok && cb != nil {
		cb(old)
	}
	return ok
}

func (r *Registry) Get(slot string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[slot]
	return h, ok
}

// Slots returns the occupied slots, sorted.
func (r *Registry) Slots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.handles))
	for k := range r.handles {
		ret = append(ret, k)
	}
	slices.Sort(ret)
	return ret
}

// Clear destroys all handles.
func (r *Registry) Clear() {
	for _, slot := range r.Slots() {
		r.Destroy(slot)
	}
}

// Snapshot returns the configurations of all occupied slots.
func (r *Registry) Snapshot() map[string]Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make(map[string]Config, len(r.handles))
	for k, h := range r.handles {
		ret[k] = h.Config
	}
	return ret
}
