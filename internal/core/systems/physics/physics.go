package physics

import (
	"fmt"
	"math"
)

// Planar geometry shared by the sensors, the policy and the collision check.
// Track coordinates: x grows to the right, y grows downward, forward is -y.

// Epsilon is the smallest distance used before any angle computation.
const Epsilon = 1e-6

type Vec2 struct{ X, Y float64 }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Len() float64    { return math.Hypot(v.X, v.Y) }

// Rect is an axis-aligned box anchored at its top-left corner.
type Rect struct{ X, Y, W, H float64 }

func (r Rect) Center() Vec2 { return Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Overlaps reports a positive-area intersection. Boxes that only share an
// edge or a corner do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Bearing returns the length of d, floored at Epsilon, and its heading in
// degrees measured clockwise from forward (-y). Straight ahead is 0, right is
// +90, left is -90. A zero vector points straight ahead.
func Bearing(d Vec2) (dist, deg float64) {
	dist = d.Len()
	if dist < Epsilon {
		dist = Epsilon
	}
	forward := -d.Y
	if forward == 0 {
		// -0 would turn a zero vector into 180
		forward = 0
	}
	deg = math.Atan2(d.X, forward) * 180 / math.Pi
	return dist, deg
}

// AngleDiff returns a-b wrapped into (-180, 180].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	switch {
	case d > 180:
		d -= 360
	case d <= -180:
		d += 360
	}
	return d
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MustFinite panics when v is NaN or infinite. A non-finite value inside the
// decision pipeline is a programming error, not an input condition.
func MustFinite(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic(fmt.Sprintf("physics: %s is not finite (%v)", name, v))
	}
}
