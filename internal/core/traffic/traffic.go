// Package traffic produces the obstacle set for each tick. Generators are
// seeded and own their random source, so an episode replays exactly for a
// given seed.
package traffic

import (
	"math/rand/v2"

	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// Generator advances the traffic around the controlled vehicle.
type Generator interface {
	// Reset discards all traffic and reseeds the random source.
	Reset(seed uint64)
	// Advance moves the traffic one tick and returns a fresh set together with
	// the number of obstacles that left the viewport behind the vehicle.
	Advance() (track.Set, int)
	// Obstacles returns a copy of the current set.
	Obstacles() track.Set
}

type Config struct {
	// Count is the fixed number of falling blocks on the open road.
	Count int `json:"count" yaml:"count"`
	// BlockSize is the side of a falling block.
	BlockSize float64 `json:"block_size" yaml:"block_size"`
	// FallSpeed is the distance a block falls per tick.
	FallSpeed float64 `json:"fall_speed" yaml:"fall_speed"`

	// MaxCars caps the lane traffic.
	MaxCars int `json:"max_cars" yaml:"max_cars"`
	// SpawnChance is the probability of a new car per tick.
	SpawnChance float64 `json:"spawn_chance" yaml:"spawn_chance"`
	CarWidth    float64 `json:"car_width" yaml:"car_width"`
	CarHeight   float64 `json:"car_height" yaml:"car_height"`
	// Traffic speeds are drawn from Speed. A car drifts down the screen by
	// BaseSpeed minus its own speed each tick.
	Speed     track.SpeedRange `json:"speed" yaml:"speed"`
	BaseSpeed float64          `json:"base_speed" yaml:"base_speed"`
}

func DefaultRayFanConfig() Config {
	return Config{Count: 3, BlockSize: 60, FallSpeed: 3}
}

func DefaultZoneConfig() Config {
	return Config{
		MaxCars:     8,
		SpawnChance: 0.02,
		CarWidth:    40,
		CarHeight:   80,
		Speed:       track.SpeedRange{Min: 2, Max: 5},
		BaseSpeed:   10,
	}
}

// DefaultConfig returns the traffic of the reference simulation for geometry.
func DefaultConfig(geometry sensor.Geometry) Config {
	if geometry == sensor.GeometryZone {
		return DefaultZoneConfig()
	}
	return DefaultRayFanConfig()
}

func (c Config) Validate(geometry sensor.Geometry, bounds track.Bounds) error {
	if geometry == sensor.GeometryZone {
		if c.MaxCars < 0 {
			return validate.Fail("max_cars", "must not be negative, got %d", c.MaxCars)
		}
		if c.SpawnChance < 0 || c.SpawnChance > 1 {
			return validate.Fail("spawn_chance", "must be in [0, 1], got %v", c.SpawnChance)
		}
		if c.Speed.Min > c.Speed.Max {
			return validate.Fail("speed", "min %v exceeds max %v", c.Speed.Min, c.Speed.Max)
		}
		if bounds.Lanes < 1 {
			return validate.Fail("bounds.lanes", "lane traffic needs at least one lane")
		}
		return validate.First(
			validate.Positive("car_width", c.CarWidth),
			validate.Positive("car_height", c.CarHeight),
			validate.NonNegative("speed.min", c.Speed.Min),
			validate.NonNegative("base_speed", c.BaseSpeed),
		)
	}
	if c.Count < 0 {
		return validate.Fail("count", "must not be negative, got %d", c.Count)
	}
	if c.BlockSize > bounds.Width {
		return validate.Fail("block_size", "wider than the track (%v > %v)", c.BlockSize, bounds.Width)
	}
	return validate.First(
		validate.Positive("block_size", c.BlockSize),
		validate.Positive("fall_speed", c.FallSpeed),
	)
}

// New returns the generator matching geometry: falling blocks for the ray
// fan, lane traffic for zones.
func New(cfg Config, geometry sensor.Geometry, bounds track.Bounds, seed uint64) (Generator, error) {
	if err := cfg.Validate(geometry, bounds); err != nil {
		return nil, err
	}
	var g Generator
	if geometry == sensor.GeometryZone {
		g = &laneTraffic{cfg: cfg, bounds: bounds}
	} else {
		g = &fallingBlocks{cfg: cfg, bounds: bounds}
	}
	g.Reset(seed)
	return g, nil
}

// source derives a PCG stream from a single seed.
func source(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
