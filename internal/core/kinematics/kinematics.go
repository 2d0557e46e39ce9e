package kinematics

import (
	"math"

	"github.com/zeusync/roadsim/internal/core/policy"
	"github.com/zeusync/roadsim/internal/core/sensor"
	phys "github.com/zeusync/roadsim/internal/core/systems/physics"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

type Config struct {
	// TurnRate is the lateral step per unit of ray-fan turn.
	TurnRate float64 `json:"turn_rate" yaml:"turn_rate"`
	// Smoothing is the share of the remaining lateral distance covered per tick.
	Smoothing float64 `json:"smoothing" yaml:"smoothing"`
	// SnapEpsilon is the distance below which the vehicle snaps onto its target.
	SnapEpsilon float64 `json:"snap_epsilon" yaml:"snap_epsilon"`
}

func DefaultRayFanConfig() Config {
	return Config{TurnRate: 5}
}

func DefaultZoneConfig() Config {
	return Config{Smoothing: 0.1, SnapEpsilon: 2}
}

func (c Config) validate(geometry sensor.Geometry) error {
	if geometry == sensor.GeometryZone {
		return validate.First(
			validate.Fraction("smoothing", c.Smoothing),
			validate.NonNegative("snap_epsilon", c.SnapEpsilon),
		)
	}
	return validate.Positive("turn_rate", c.TurnRate)
}

// Kinematics moves the vehicle according to a command.
type Kinematics struct {
	cfg      Config
	geometry sensor.Geometry
	bounds   track.Bounds
	speed    track.SpeedRange
}

func New(cfg Config, geometry sensor.Geometry, bounds track.Bounds, speed track.SpeedRange) (*Kinematics, error) {
	if err := cfg.validate(geometry); err != nil {
		return nil, err
	}
	return &Kinematics{cfg: cfg, geometry: geometry, bounds: bounds, speed: speed}, nil
}

// Apply returns the vehicle after one tick under cmd.
func (k *Kinematics) Apply(v track.Vehicle, cmd policy.Command) track.Vehicle {
	phys.MustFinite("speed", cmd.Speed)
	v.Speed = k.speed.Clamp(cmd.Speed)
	v.Mode = cmd.Mode
	v.Cooldown = cmd.Cooldown
	v.Odometer += v.Speed

	if k.geometry == sensor.GeometryZone {
		v.Lane = cmd.Lane
		v.TargetX = cmd.TargetX
		k.approach(&v)
	} else {
		v.X += float64(cmd.Turn) * k.cfg.TurnRate
		// The world scrolls under the vehicle; leaving the top re-enters at
		// the bottom.
		v.Y -= v.Speed
		if v.Y < -v.H {
			v.Y = k.bounds.ViewportHeight
		}
	}

	v.X = phys.Clamp(v.X, 0, k.bounds.MaxX(v.W))
	if k.geometry != sensor.GeometryZone {
		v.TargetX = v.X
	}
	return v
}

// approach closes a fixed share of the lateral gap to the target and snaps
// once within epsilon, ending any lane manoeuvre.
func (k *Kinematics) approach(v *track.Vehicle) {
	if math.Abs(v.X-v.TargetX) > k.cfg.SnapEpsilon {
		v.X += (v.TargetX - v.X) * k.cfg.Smoothing
		return
	}
	v.X = v.TargetX
	v.Mode = track.ModeCruising
}
