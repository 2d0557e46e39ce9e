package sim

import (
	"errors"

	"github.com/zeusync/roadsim/internal/core/kinematics"
	"github.com/zeusync/roadsim/internal/core/policy"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/track"
)

// ErrEpisodeOver is returned by Step after a collision until Reset.
var ErrEpisodeOver = errors.New("episode is over")

// Frame is everything a renderer or HUD needs after one tick.
type Frame struct {
	Tick     uint64         `json:"tick"`
	Vehicle  track.Vehicle  `json:"vehicle"`
	Reading  sensor.Reading `json:"reading"`
	Command  policy.Command `json:"command"`
	Collided bool           `json:"collided"`
	// Hit is the index of the first obstacle overlapping the vehicle, -1 when none.
	Hit int `json:"hit"`
}

// Engine is the simulation context: one controlled vehicle driven through
// sense, decide, move and collide once per Step. It is not safe for
// concurrent use.
type Engine struct {
	cfg        Config
	sensors    *sensor.Array
	policy     *policy.Policy
	kinematics *kinematics.Kinematics

	vehicle track.Vehicle
	tick    uint64
	over    bool
	last    Frame
}

func New(cfg Config) (*Engine, error) {
	sensors, pol, kin, err := cfg.build()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		sensors:    sensors,
		policy:     pol,
		kinematics: kin,
	}
	e.Reset()
	return e, nil
}

// Reset starts a new episode from the configured start state.
func (e *Engine) Reset() {
	e.vehicle = e.cfg.startVehicle()
	e.tick = 0
	e.over = false
	e.last = Frame{Vehicle: e.vehicle, Reading: e.sensors.Update(e.vehicle, nil), Hit: -1}
}

func (e *Engine) Config() Config            { return e.cfg }
func (e *Engine) Vehicle() track.Vehicle    { return e.vehicle }
func (e *Engine) Tick() uint64              { return e.tick }
func (e *Engine) Over() bool                { return e.over }
func (e *Engine) LastFrame() Frame          { return e.last }
func (e *Engine) Sensors() *sensor.Array    { return e.sensors }
func (e *Engine) Geometry() sensor.Geometry { return e.cfg.Geometry() }

// Step advances one tick against the obstacles supplied for it. The set is
// read, never retained.
func (e *Engine) Step(obstacles track.Set) (Frame, error) {
	if e.over {
		return e.last, ErrEpisodeOver
	}

	reading := e.sensors.Update(e.vehicle, obstacles)
	cmd := e.policy.Decide(e.vehicle, reading)
	e.vehicle = e.kinematics.Apply(e.vehicle, cmd)
	e.tick++

	hit := Collide(e.vehicle, obstacles)
	e.over = hit >= 0
	e.last = Frame{
		Tick:     e.tick,
		Vehicle:  e.vehicle,
		Reading:  reading,
		Command:  cmd,
		Collided: e.over,
		Hit:      hit,
	}
	return e.last, nil
}

// Collide returns the index of the first obstacle whose box overlaps the
// vehicle with positive area, or -1.
func Collide(v track.Vehicle, obstacles track.Set) int {
	box := v.Rect()
	for i, o := range obstacles {
		if box.Overlaps(o.Rect()) {
			return i
		}
	}
	return -1
}
