package track

import (
	"fmt"

	phys "github.com/zeusync/roadsim/internal/core/systems/physics"
)

// NoLane marks an obstacle or vehicle that is not bound to a lane.
const NoLane = -1

// Obstacle is one body the controlled vehicle must avoid during a tick.
type Obstacle struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Lane  int     `json:"lane"`
	Speed float64 `json:"speed"`
}

func (o Obstacle) Rect() phys.Rect    { return phys.Rect{X: o.X, Y: o.Y, W: o.W, H: o.H} }
func (o Obstacle) Center() phys.Vec2  { return o.Rect().Center() }
func (o Obstacle) HalfWidth() float64 { return o.W / 2 }

// Mode is the behavioural state shown on the HUD.
type Mode uint8

const (
	ModeCruising Mode = iota
	ModeCautiousBrake
	ModeOvertaking
	ModeReturning
)

func (m Mode) String() string {
	switch m {
	case ModeCruising:
		return "CRUISING"
	case ModeCautiousBrake:
		return "CAUTIOUS_BRAKE"
	case ModeOvertaking:
		return "OVERTAKING"
	case ModeReturning:
		return "RETURNING"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	for c := ModeCruising; c <= ModeReturning; c++ {
		if c.String() == string(text) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Vehicle is the controlled car. TargetX is the committed lateral position
// for lane-discrete driving; it equals X when no change is in progress.
type Vehicle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	Speed    float64 `json:"speed"`
	Lane     int     `json:"lane"`
	TargetX  float64 `json:"target_x"`
	Mode     Mode    `json:"mode"`
	Cooldown int     `json:"cooldown"`
	Odometer float64 `json:"odometer"`
}

func (v Vehicle) Rect() phys.Rect   { return phys.Rect{X: v.X, Y: v.Y, W: v.W, H: v.H} }
func (v Vehicle) Center() phys.Vec2 { return v.Rect().Center() }

// Bounds describes the drivable area.
type Bounds struct {
	Width          float64 `json:"width" yaml:"width"`
	ViewportHeight float64 `json:"viewport_height" yaml:"viewport_height"`
	Lanes          int     `json:"lanes" yaml:"lanes"`
	LaneWidth      float64 `json:"lane_width" yaml:"lane_width"`
}

// MaxX is the largest left edge that keeps a body of width w on the track.
func (b Bounds) MaxX(w float64) float64 { return b.Width - w }

// LaneCenter returns the x coordinate of the middle of lane i.
func (b Bounds) LaneCenter(i int) float64 { return b.LaneWidth*float64(i) + b.LaneWidth/2 }

// LaneX returns the left edge that centres a body of width w in lane i.
func (b Bounds) LaneX(i int, w float64) float64 { return b.LaneCenter(i) - w/2 }

// CenterLane is the lane the vehicle returns to when traffic allows.
func (b Bounds) CenterLane() int { return b.Lanes / 2 }

// Set holds the obstacles of one tick. It is replaced wholesale each tick.
type Set []Obstacle

// Filter builds the next set from the obstacles keep accepts; the receiver is
// left untouched.
func (s Set) Filter(keep func(Obstacle) bool) Set {
	next := make(Set, 0, len(s))
	for _, o := range s {
		if keep(o) {
			next = append(next, o)
		}
	}
	return next
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// SpeedRange bounds the scalar speed of the controlled vehicle.
type SpeedRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r SpeedRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}
