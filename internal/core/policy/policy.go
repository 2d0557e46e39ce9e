package policy

import (
	"fmt"

	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// Config holds the thresholds of both reactive policies.
type Config struct {
	// SafeDistanceRatio scales the sensor range into the ray-fan safe distance.
	SafeDistanceRatio float64 `json:"safe_distance_ratio" yaml:"safe_distance_ratio"`
	// SideMarginRatio scales the safe distance into the side keep-away margin.
	SideMarginRatio float64 `json:"side_margin_ratio" yaml:"side_margin_ratio"`
	// ClearanceWidths is the free side distance, in vehicle widths, needed to steer.
	ClearanceWidths float64 `json:"clearance_widths" yaml:"clearance_widths"`
	// BlockedRatio scales the sensor range into the zone blocking distance.
	BlockedRatio float64 `json:"blocked_ratio" yaml:"blocked_ratio"`
	// FollowRatio scales the blocking obstacle's speed into the follow speed.
	FollowRatio float64 `json:"follow_ratio" yaml:"follow_ratio"`
	AccelStep   float64 `json:"accel_step" yaml:"accel_step"`
	BrakeStep   float64 `json:"brake_step" yaml:"brake_step"`
	// Cooldown is the number of ticks after a lane change with no decision.
	Cooldown int `json:"cooldown" yaml:"cooldown"`
}

func DefaultRayFanConfig() Config {
	return Config{
		SafeDistanceRatio: 0.6,
		SideMarginRatio:   0.5,
		ClearanceWidths:   2,
		AccelStep:         0.2,
		BrakeStep:         0.5,
	}
}

func DefaultZoneConfig() Config {
	return Config{
		BlockedRatio: 0.5,
		FollowRatio:  0.5,
		AccelStep:    0.1,
		Cooldown:     30,
	}
}

func (c Config) validate(geometry sensor.Geometry) error {
	switch geometry {
	case sensor.GeometryRayFan:
		return validate.First(
			validate.Fraction("safe_distance_ratio", c.SafeDistanceRatio),
			validate.Fraction("side_margin_ratio", c.SideMarginRatio),
			validate.NonNegative("clearance_widths", c.ClearanceWidths),
			validate.Positive("accel_step", c.AccelStep),
			validate.Positive("brake_step", c.BrakeStep),
		)
	case sensor.GeometryZone:
		if c.Cooldown < 0 {
			return validate.Fail("cooldown", "must not be negative, got %d", c.Cooldown)
		}
		return validate.First(
			validate.Fraction("blocked_ratio", c.BlockedRatio),
			validate.NonNegative("follow_ratio", c.FollowRatio),
			validate.Positive("accel_step", c.AccelStep),
		)
	default:
		return validate.Fail("geometry", "unsupported geometry %s", geometry)
	}
}

// Command is the outcome of one decision. Kinematics applies it as a whole.
type Command struct {
	// Turn is the ray-fan lateral step: -1 left, 0 none, +1 right.
	Turn int `json:"turn"`
	// Speed is the speed to drive this tick.
	Speed float64 `json:"speed"`
	// Lane and TargetX describe the lateral commitment.
	Lane    int     `json:"lane"`
	TargetX float64 `json:"target_x"`
	// LaneChange is the direction committed this tick, 0 when none.
	LaneChange int        `json:"lane_change"`
	Mode       track.Mode `json:"mode"`
	Cooldown   int        `json:"cooldown"`
}

// Policy is the fixed reactive controller. It keeps no state between ticks:
// everything it remembers lives in the vehicle.
type Policy struct {
	cfg      Config
	geometry sensor.Geometry
	bounds   track.Bounds
	speed    track.SpeedRange
}

func New(cfg Config, geometry sensor.Geometry, bounds track.Bounds, speed track.SpeedRange) (*Policy, error) {
	if err := cfg.validate(geometry); err != nil {
		return nil, err
	}
	if geometry == sensor.GeometryZone && bounds.Lanes < 1 {
		return nil, validate.Fail("bounds.lanes", "zone policy needs at least one lane, got %d", bounds.Lanes)
	}
	return &Policy{cfg: cfg, geometry: geometry, bounds: bounds, speed: speed}, nil
}

// Decide maps the vehicle state and the current reading to a command.
func (p *Policy) Decide(v track.Vehicle, r sensor.Reading) Command {
	if r.Geometry != p.geometry {
		panic(fmt.Sprintf("policy: %s reading given to a %s policy", r.Geometry, p.geometry))
	}
	if p.geometry == sensor.GeometryZone {
		return p.decideZone(v, r)
	}
	return p.decideRayFan(v, r)
}

// hold repeats the current state.
func hold(v track.Vehicle) Command {
	return Command{
		Speed:    v.Speed,
		Lane:     v.Lane,
		TargetX:  v.TargetX,
		Mode:     v.Mode,
		Cooldown: v.Cooldown,
	}
}
