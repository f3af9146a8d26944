package components

import "github.com/go-gl/mathgl/mgl64"

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() mgl64.Vec2 { return mgl64.Vec2{p.X, p.Y} }

// PositionOf converts a vector to a Position.
func PositionOf(v mgl64.Vec2) Position { return Position{X: v[0], Y: v[1]} }

// Velocity represents an entity's velocity in world units per tick.
type Velocity struct {
	X, Y float64
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }

// VelocityOf converts a vector to a Velocity.
func VelocityOf(v mgl64.Vec2) Velocity { return Velocity{X: v[0], Y: v[1]} }
