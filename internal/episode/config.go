package episode

import (
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/sim"
	"github.com/zeusync/roadsim/internal/core/traffic"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// Scoring rewards survival and passing traffic.
type Scoring struct {
	PerTick   int `json:"per_tick" yaml:"per_tick"`
	PerPassed int `json:"per_passed" yaml:"per_passed"`
	// SpeedScale converts engine speed into the km/h shown on the HUD.
	SpeedScale float64 `json:"speed_scale" yaml:"speed_scale"`
}

type Config struct {
	Sim     sim.Config     `json:"sim" yaml:"sim"`
	Traffic traffic.Config `json:"traffic" yaml:"traffic"`
	Scoring Scoring        `json:"scoring" yaml:"scoring"`
	// Seed drives the traffic of the first episode; each reset moves on to
	// the next seed.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultConfig reproduces the reference games: one point per survived tick
// on the open road, ten points per overtaken car on the highway.
func DefaultConfig(geometry sensor.Geometry) Config {
	scoring := Scoring{PerTick: 1, SpeedScale: 10}
	if geometry == sensor.GeometryZone {
		scoring = Scoring{PerPassed: 10, SpeedScale: 10}
	}
	return Config{
		Sim:     sim.DefaultConfig(geometry),
		Traffic: traffic.DefaultConfig(geometry),
		Scoring: scoring,
		Seed:    1,
	}
}

func (c Config) Validate() error {
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	if err := c.Traffic.Validate(c.Sim.Geometry(), c.Sim.Bounds); err != nil {
		return validate.Prefix("traffic", err)
	}
	if c.Scoring.PerTick < 0 {
		return validate.Fail("scoring.per_tick", "must not be negative, got %d", c.Scoring.PerTick)
	}
	if c.Scoring.PerPassed < 0 {
		return validate.Fail("scoring.per_passed", "must not be negative, got %d", c.Scoring.PerPassed)
	}
	return validate.NonNegative("scoring.speed_scale", c.Scoring.SpeedScale)
}
