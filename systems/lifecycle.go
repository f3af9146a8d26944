package systems

import "github.com/pthm-cable/genesis/components"

// Lifecycle queues removal of agents flagged for death in this or earlier
// ticks. The death cause becomes the removal reason.
type Lifecycle struct {
	Base
	queued int
}

// NewLifecycle creates the lifecycle system.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{Base: NewBase(NameLifecycle)}
}

func (s *Lifecycle) Update(ctx *Context) error {
	s.queued = 0
	for _, id := range ctx.Entities.IDs(components.Mask(components.KindAgent)) {
		vit := ctx.Entities.Vitals(id)
		en := ctx.Entities.Energy(id)
		if vit == nil {
			continue
		}
		if !vit.Dying && en != nil && en.Value <= 0 {
			vit.MarkDying(components.CauseStarvation)
		}
		if !vit.Dying {
			continue
		}
		cause := vit.Cause
		if cause == "" {
			cause = components.CauseExternal
		}
		if ctx.RequestRemove(id, cause) {
			s.queued++
		}
	}
	return nil
}

func (s *Lifecycle) DebugInfo() map[string]any {
	return map[string]any{"queued": s.queued}
}
