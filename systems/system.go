// Package systems provides the pluggable units run by the engine each tick.
package systems

// System is one pluggable unit of simulation logic.
//
// Update is called once per tick in the system's phase, and only when the
// system is enabled. It may mutate component data through the context but
// performs structural changes only through the context's request methods.
type System interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	Update(ctx *Context) error
	DebugInfo() map[string]any
}

// Base carries the name and enabled flag. Embed it in system structs.
type Base struct {
	name    string
	enabled bool
}

// NewBase returns an enabled Base.
func NewBase(name string) Base {
	return Base{name: name, enabled: true}
}

func (b *Base) Name() string            { return b.name }
func (b *Base) Enabled() bool           { return b.enabled }
func (b *Base) SetEnabled(enabled bool) { b.enabled = enabled }
