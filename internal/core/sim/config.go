package sim

import (
	"fmt"

	"github.com/zeusync/roadsim/internal/core/kinematics"
	"github.com/zeusync/roadsim/internal/core/policy"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// VehicleConfig places the controlled vehicle at the start of an episode.
type VehicleConfig struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	// StartLane puts the vehicle in a lane; track.NoLane uses StartX.
	StartLane  int     `json:"start_lane" yaml:"start_lane"`
	StartX     float64 `json:"start_x" yaml:"start_x"`
	StartY     float64 `json:"start_y" yaml:"start_y"`
	StartSpeed float64 `json:"start_speed" yaml:"start_speed"`
}

// Config fully describes one engine.
type Config struct {
	Bounds     track.Bounds      `json:"bounds" yaml:"bounds"`
	Vehicle    VehicleConfig     `json:"vehicle" yaml:"vehicle"`
	Speed      track.SpeedRange  `json:"speed" yaml:"speed"`
	Sensor     sensor.Config     `json:"sensor" yaml:"sensor"`
	Policy     policy.Config     `json:"policy" yaml:"policy"`
	Kinematics kinematics.Config `json:"kinematics" yaml:"kinematics"`
}

func (c Config) Geometry() sensor.Geometry { return c.Sensor.Geometry }

// DefaultConfig returns the parameters of the reference simulations: a
// 1500x900 open road with a five-ray fan, or five 160-wide lanes watched by
// five zones.
func DefaultConfig(geometry sensor.Geometry) Config {
	if geometry == sensor.GeometryZone {
		bounds := track.Bounds{Width: 800, ViewportHeight: 768, Lanes: 5, LaneWidth: 160}
		return Config{
			Bounds: bounds,
			Vehicle: VehicleConfig{
				Width:      40,
				Height:     80,
				StartLane:  bounds.CenterLane(),
				StartY:     768 - 150,
				StartSpeed: 60,
			},
			Speed:      track.SpeedRange{Min: 40, Max: 80},
			Sensor:     sensor.DefaultZoneConfig(),
			Policy:     policy.DefaultZoneConfig(),
			Kinematics: kinematics.DefaultZoneConfig(),
		}
	}
	return Config{
		Bounds: track.Bounds{Width: 1500, ViewportHeight: 900},
		Vehicle: VehicleConfig{
			Width:      30,
			Height:     60,
			StartLane:  track.NoLane,
			StartX:     1500/2 - 30/2,
			StartY:     900 - 60 - 20,
			StartSpeed: 5,
		},
		Speed:      track.SpeedRange{Min: 1, Max: 5},
		Sensor:     sensor.DefaultRayFanConfig(),
		Policy:     policy.DefaultRayFanConfig(),
		Kinematics: kinematics.DefaultRayFanConfig(),
	}
}

// Validate checks the cross-component constraints; each component checks its
// own section in its constructor.
func (c Config) Validate() error {
	if err := validate.First(
		validate.Positive("bounds.width", c.Bounds.Width),
		validate.Positive("bounds.viewport_height", c.Bounds.ViewportHeight),
		validate.Positive("vehicle.width", c.Vehicle.Width),
		validate.Positive("vehicle.height", c.Vehicle.Height),
		validate.NonNegative("speed.min", c.Speed.Min),
		validate.Positive("speed.max", c.Speed.Max),
	); err != nil {
		return err
	}
	if c.Speed.Min > c.Speed.Max {
		return validate.Fail("speed", "min %v exceeds max %v", c.Speed.Min, c.Speed.Max)
	}
	if c.Vehicle.StartSpeed < c.Speed.Min || c.Vehicle.StartSpeed > c.Speed.Max {
		return validate.Fail("vehicle.start_speed", "%v outside [%v, %v]", c.Vehicle.StartSpeed, c.Speed.Min, c.Speed.Max)
	}
	if c.Vehicle.Width > c.Bounds.Width {
		return validate.Fail("vehicle.width", "wider than the track (%v > %v)", c.Vehicle.Width, c.Bounds.Width)
	}

	if c.Geometry() == sensor.GeometryZone {
		if c.Bounds.Lanes < 1 {
			return validate.Fail("bounds.lanes", "must be at least 1, got %d", c.Bounds.Lanes)
		}
		if err := validate.Positive("bounds.lane_width", c.Bounds.LaneWidth); err != nil {
			return err
		}
		if lanes := float64(c.Bounds.Lanes) * c.Bounds.LaneWidth; lanes > c.Bounds.Width {
			return validate.Fail("bounds", "%d lanes of %v do not fit a width of %v", c.Bounds.Lanes, c.Bounds.LaneWidth, c.Bounds.Width)
		}
		if c.Vehicle.Width > c.Bounds.LaneWidth {
			return validate.Fail("vehicle.width", "%v does not fit a lane of %v", c.Vehicle.Width, c.Bounds.LaneWidth)
		}
		if c.Vehicle.StartLane < 0 || c.Vehicle.StartLane >= c.Bounds.Lanes {
			return validate.Fail("vehicle.start_lane", "%d outside [0, %d)", c.Vehicle.StartLane, c.Bounds.Lanes)
		}
	} else if c.Vehicle.StartLane == track.NoLane {
		if c.Vehicle.StartX < 0 || c.Vehicle.StartX > c.Bounds.MaxX(c.Vehicle.Width) {
			return validate.Fail("vehicle.start_x", "%v is off the track", c.Vehicle.StartX)
		}
	}
	return nil
}

// build constructs the components, prefixing validation errors with the
// section they came from.
func (c Config) build() (*sensor.Array, *policy.Policy, *kinematics.Kinematics, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, nil, err
	}
	sensors, err := sensor.New(c.Sensor, c.Bounds)
	if err != nil {
		return nil, nil, nil, validate.Prefix("sensor", err)
	}
	pol, err := policy.New(c.Policy, c.Geometry(), c.Bounds, c.Speed)
	if err != nil {
		return nil, nil, nil, validate.Prefix("policy", err)
	}
	kin, err := kinematics.New(c.Kinematics, c.Geometry(), c.Bounds, c.Speed)
	if err != nil {
		return nil, nil, nil, validate.Prefix("kinematics", err)
	}
	return sensors, pol, kin, nil
}

func (c Config) startVehicle() track.Vehicle {
	v := track.Vehicle{
		X:     c.Vehicle.StartX,
		Y:     c.Vehicle.StartY,
		W:     c.Vehicle.Width,
		H:     c.Vehicle.Height,
		Speed: c.Vehicle.StartSpeed,
		Lane:  c.Vehicle.StartLane,
		Mode:  track.ModeCruising,
	}
	if c.Vehicle.StartLane != track.NoLane && c.Bounds.LaneWidth > 0 {
		v.X = c.Bounds.LaneX(c.Vehicle.StartLane, c.Vehicle.Width)
	}
	v.TargetX = v.X
	return v
}

func (c Config) String() string {
	return fmt.Sprintf("%s %vx%v", c.Geometry(), c.Bounds.Width, c.Bounds.ViewportHeight)
}
