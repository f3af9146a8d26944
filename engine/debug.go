package engine

import "github.com/pthm-cable/genesis/components"

// DebugInfo is a point-in-time summary for inspectors and logs.
type DebugInfo struct {
	Frame         uint64        `json:"frame"`
	Paused        bool          `json:"paused"`
	Phase         string        `json:"phase,omitempty"`
	Seed          int64         `json:"seed"`
	Entities      int           `json:"entities"`
	Agents        int           `json:"agents"`
	Pending       int           `json:"pending"`
	Substitutions int           `json:"substitutions"`
	Algorithms    []string      `json:"algorithms"`
	Systems       []SystemDebug `json:"systems"`
}

// SystemDebug describes one registered system.
type SystemDebug struct {
	Name        string         `json:"name"`
	Display     string         `json:"display"`
	Description string         `json:"description,omitempty"`
	Phase       string         `json:"phase"`
	Enabled     bool           `json:"enabled"`
	AutoOff     bool           `json:"auto_disabled,omitempty"`
	Consecutive int            `json:"consecutive_failures"`
	Failures    int            `json:"failures"`
	Info        map[string]any `json:"info,omitempty"`
}

// DebugInfo reports engine and per-system state, systems in run order.
func (e *Engine) DebugInfo() DebugInfo {
	d := DebugInfo{Frame: e.frame, Paused: e.paused, Phase: e.phase, Seed: e.seed}
	if !e.ready {
		return d
	}
	d.Entities = e.store.Len()
	d.Agents = e.store.Count(components.KindAgent)
	d.Pending = e.queue.Len()
	d.Substitutions = e.behaviors.Substitutions()
	d.Algorithms = e.behaviors.IDs()
	for _, sl := range e.slots {
		info, _ := e.info.Get(sl.sys.Name())
		d.Systems = append(d.Systems, SystemDebug{
			Name:        sl.sys.Name(),
			Display:     e.info.GetName(sl.sys.Name()),
			Description: info.Description,
			Phase:       sl.phase,
			Enabled:     sl.sys.Enabled(),
			AutoOff:     sl.autoOff,
			Consecutive: sl.consecutive,
			Failures:    sl.failures,
			Info:        sl.sys.DebugInfo(),
		})
	}
	return d
}
