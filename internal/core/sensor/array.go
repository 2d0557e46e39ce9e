package sensor

import (
	"fmt"
	"math"

	phys "github.com/zeusync/roadsim/internal/core/systems/physics"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// Config describes the probe layout.
type Config struct {
	Geometry Geometry `json:"geometry" yaml:"geometry"`
	// MaxRange is the ray length for the fan and the look-ahead distance for
	// the front zones.
	MaxRange float64 `json:"max_range" yaml:"max_range"`
	// Angles are the ray emission angles in degrees, ray fan only.
	Angles []float64 `json:"angles,omitempty" yaml:"angles,omitempty"`
	// Tolerance is the half-width in degrees of the cone each ray accepts.
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	// SideRange is the longitudinal reach of the left and right zones.
	SideRange float64 `json:"side_range,omitempty" yaml:"side_range,omitempty"`
}

func DefaultRayFanConfig() Config {
	return Config{
		Geometry:  GeometryRayFan,
		MaxRange:  200,
		Angles:    []float64{-50, -20, 0, 20, 50},
		Tolerance: 30,
	}
}

func DefaultZoneConfig() Config {
	return Config{
		Geometry:  GeometryZone,
		MaxRange:  500,
		SideRange: 100,
	}
}

func (c Config) Validate() error {
	if err := validate.Positive("max_range", c.MaxRange); err != nil {
		return err
	}
	switch c.Geometry {
	case GeometryRayFan:
		if len(c.Angles) == 0 {
			return validate.Fail("angles", "ray fan needs at least one probe")
		}
		for i, a := range c.Angles {
			if math.IsNaN(a) || a <= -180 || a > 180 {
				return validate.Fail(fmt.Sprintf("angles[%d]", i), "must be in (-180, 180], got %v", a)
			}
		}
		if _, err := rayRoles(c.Angles); err != nil {
			return err
		}
		if c.Tolerance <= 0 || c.Tolerance > 180 {
			return validate.Fail("tolerance", "must be in (0, 180], got %v", c.Tolerance)
		}
	case GeometryZone:
		if err := validate.Positive("side_range", c.SideRange); err != nil {
			return err
		}
		if c.SideRange > c.MaxRange {
			return validate.Fail("side_range", "must not exceed max_range (%v > %v)", c.SideRange, c.MaxRange)
		}
	default:
		return validate.Fail("geometry", "unsupported geometry %s", c.Geometry)
	}
	return nil
}

// rayRoles picks the ray closest to straight ahead as front and the nearest
// rays on either side of it as left and right.
func rayRoles(angles []float64) (Roles, error) {
	roles := Roles{Left: -1, Front: -1, Right: -1}
	for i, a := range angles {
		if roles.Front < 0 || math.Abs(a) < math.Abs(angles[roles.Front]) {
			roles.Front = i
		}
	}
	front := angles[roles.Front]
	for i, a := range angles {
		if a < front && (roles.Left < 0 || a > angles[roles.Left]) {
			roles.Left = i
		}
		if a > front && (roles.Right < 0 || a < angles[roles.Right]) {
			roles.Right = i
		}
	}
	if roles.Left < 0 || roles.Right < 0 {
		return roles, validate.Fail("angles", "ray fan needs probes on both sides of the front probe")
	}
	return roles, nil
}

// Array casts the configured probes. Its layout never changes after New.
type Array struct {
	cfg    Config
	bounds track.Bounds
	roles  Roles
	names  []string
}

func New(cfg Config, bounds track.Bounds) (*Array, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Array{cfg: cfg, bounds: bounds}
	a.cfg.Angles = append([]float64(nil), cfg.Angles...)

	switch cfg.Geometry {
	case GeometryRayFan:
		if err := validate.Positive("bounds.width", bounds.Width); err != nil {
			return nil, err
		}
		a.roles, _ = rayRoles(a.cfg.Angles)
		a.names = make([]string, len(a.cfg.Angles))
		for i, angle := range a.cfg.Angles {
			a.names[i] = fmt.Sprintf("ray%+.0f", angle)
		}
	case GeometryZone:
		if err := validate.Positive("bounds.lane_width", bounds.LaneWidth); err != nil {
			return nil, err
		}
		a.roles = Roles{Left: int(ZoneLeft), Front: int(ZoneFront), Right: int(ZoneRight)}
		a.names = zoneNames[:]
	}
	return a, nil
}

func (a *Array) Geometry() Geometry { return a.cfg.Geometry }
func (a *Array) Len() int           { return len(a.names) }
func (a *Array) Roles() Roles       { return a.roles }
func (a *Array) MaxRange() float64  { return a.cfg.MaxRange }

// Update reads every probe against the obstacles of the current tick.
func (a *Array) Update(v track.Vehicle, obstacles track.Set) Reading {
	r := Reading{
		Geometry: a.cfg.Geometry,
		MaxRange: a.cfg.MaxRange,
		Roles:    a.roles,
		Probes:   make([]Probe, len(a.names)),
	}
	for i, name := range a.names {
		r.Probes[i] = Probe{Name: name, Distance: a.cfg.MaxRange}
		if a.cfg.Geometry == GeometryRayFan {
			r.Probes[i].Angle = a.cfg.Angles[i]
		}
	}

	switch a.cfg.Geometry {
	case GeometryRayFan:
		a.castRays(v, obstacles, r.Probes)
	case GeometryZone:
		a.classifyZones(v, obstacles, r.Probes)
	}

	for i := range r.Probes {
		phys.MustFinite(r.Probes[i].Name, r.Probes[i].Distance)
	}
	return r
}
