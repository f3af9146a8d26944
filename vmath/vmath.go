// Package vmath holds small scalar and 2D vector helpers shared by the simulation.
package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp interpolates between a and b by t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Heading returns the unit vector for angle (radians).
func Heading(angle float64) mgl64.Vec2 {
	s, c := math.Sincos(angle)
	return mgl64.Vec2{c, s}
}

// Normalize returns v scaled to unit length, or the zero vector if v is zero.
func Normalize(v mgl64.Vec2) mgl64.Vec2 {
	l := v.Len()
	if l < 1e-12 {
		return mgl64.Vec2{}
	}
	return v.Mul(1 / l)
}

// Limit scales v down so its length does not exceed max.
func Limit(v mgl64.Vec2, max float64) mgl64.Vec2 {
	l := v.Len()
	if l <= max || l < 1e-12 {
		return v
	}
	return v.Mul(max / l)
}

// DistSq returns the squared distance between a and b.
func DistSq(a, b mgl64.Vec2) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
