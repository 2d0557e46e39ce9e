package policy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

var (
	rayBounds  = track.Bounds{Width: 1500, ViewportHeight: 900}
	raySpeed   = track.SpeedRange{Min: 1, Max: 5}
	zoneBounds = track.Bounds{Width: 800, ViewportHeight: 768, Lanes: 5, LaneWidth: 160}
	zoneSpeed  = track.SpeedRange{Min: 40, Max: 80}
)

func rayPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := New(DefaultRayFanConfig(), sensor.GeometryRayFan, rayBounds, raySpeed)
	require.NoError(t, err)
	return p
}

func rayVehicle(speed float64) track.Vehicle {
	return track.Vehicle{X: 735, Y: 820, W: 30, H: 60, Speed: speed, Lane: track.NoLane, TargetX: 735}
}

// rayReading builds a five-probe reading with the given left/front/right.
func rayReading(left, front, right float64) sensor.Reading {
	return sensor.Reading{
		Geometry: sensor.GeometryRayFan,
		MaxRange: 200,
		Roles:    sensor.Roles{Left: 1, Front: 2, Right: 3},
		Probes: []sensor.Probe{
			{Angle: -50, Distance: 200},
			{Angle: -20, Distance: left},
			{Angle: 0, Distance: front},
			{Angle: 20, Distance: right},
			{Angle: 50, Distance: 200},
		},
	}
}

func TestRayFanDecisions(t *testing.T) {
	// safe distance 120, side margin 60, clearance 2*30 = 60
	tests := []struct {
		name      string
		reading   sensor.Reading
		speed     float64
		wantTurn  int
		wantSpeed float64
		wantMode  track.Mode
	}{
		{"blocked ahead, left freer", rayReading(61, 50, 40), 5, -1, 5, track.ModeCruising},
		{"blocked ahead, right freer", rayReading(40, 50, 61), 5, 1, 5, track.ModeCruising},
		{"blocked ahead, both sides blocked", rayReading(60, 50, 30), 5, 0, 4.5, track.ModeCautiousBrake},
		{"blocked ahead, equal sides brake", rayReading(150, 50, 150), 5, 0, 4.5, track.ModeCautiousBrake},
		{"brake floors at min speed", rayReading(10, 10, 10), 1.2, 0, 1, track.ModeCautiousBrake},
		{"front clear, left close", rayReading(59, 200, 200), 5, 1, 5, track.ModeCruising},
		{"front clear, right close", rayReading(200, 200, 59), 5, -1, 5, track.ModeCruising},
		{"all clear accelerates", rayReading(200, 200, 200), 4, 0, 4.2, track.ModeCruising},
		{"acceleration capped", rayReading(200, 200, 200), 4.9, 0, 5, track.ModeCruising},
	}
	p := rayPolicy(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := p.Decide(rayVehicle(tt.speed), tt.reading)
			assert.Equal(t, tt.wantTurn, cmd.Turn)
			assert.InDelta(t, tt.wantSpeed, cmd.Speed, 1e-9)
			assert.Equal(t, tt.wantMode, cmd.Mode)
			assert.Equal(t, 0, cmd.LaneChange)
		})
	}
}

func TestRayFanScenarioClearSidesSteers(t *testing.T) {
	p := rayPolicy(t)
	clear := 2*30.0 + 1

	cmd := p.Decide(rayVehicle(5), rayReading(clear+1, 100, clear))
	assert.Equal(t, -1, cmd.Turn)

	cmd = p.Decide(rayVehicle(5), rayReading(clear, 100, clear+1))
	assert.Equal(t, 1, cmd.Turn)
}

func TestRayFanPanicsOnNaN(t *testing.T) {
	p := rayPolicy(t)
	r := rayReading(200, 200, 200)
	r.Probes[2].Distance = math.NaN()
	assert.Panics(t, func() { p.Decide(rayVehicle(5), r) })
}

func TestDecideRejectsForeignReading(t *testing.T) {
	p := rayPolicy(t)
	assert.Panics(t, func() {
		p.Decide(rayVehicle(5), sensor.Reading{Geometry: sensor.GeometryZone})
	})
}

func zonePolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := New(DefaultZoneConfig(), sensor.GeometryZone, zoneBounds, zoneSpeed)
	require.NoError(t, err)
	return p
}

func zoneVehicle(lane int) track.Vehicle {
	x := zoneBounds.LaneX(lane, 40)
	return track.Vehicle{X: x, Y: 618, W: 40, H: 80, Speed: 60, Lane: lane, TargetX: x}
}

// zoneReading places obstacles into zones; the vehicle centre y is 658.
func zoneReading(zones map[sensor.Zone][]track.Obstacle) sensor.Reading {
	r := sensor.Reading{
		Geometry: sensor.GeometryZone,
		MaxRange: 500,
		Roles:    sensor.Roles{Left: int(sensor.ZoneLeft), Front: int(sensor.ZoneFront), Right: int(sensor.ZoneRight)},
		Probes:   make([]sensor.Probe, 5),
	}
	for i := range r.Probes {
		z := sensor.Zone(i)
		r.Probes[i] = sensor.Probe{Name: z.String(), Distance: 500, Obstacles: zones[z]}
	}
	return r
}

// ahead returns a traffic car whose centre is gap ahead of the vehicle centre.
func ahead(gap, speed float64) track.Obstacle {
	return track.Obstacle{X: 380, Y: 658 - gap - 40, W: 40, H: 80, Speed: speed}
}

func TestZoneScenarioOvertakesLeft(t *testing.T) {
	p := zonePolicy(t)
	r := zoneReading(map[sensor.Zone][]track.Obstacle{sensor.ZoneFront: {ahead(200, 3)}})

	cmd := p.Decide(zoneVehicle(2), r)
	assert.Equal(t, -1, cmd.LaneChange)
	assert.Equal(t, 1, cmd.Lane)
	assert.Equal(t, zoneBounds.LaneX(1, 40), cmd.TargetX)
	assert.Equal(t, track.ModeOvertaking, cmd.Mode)
	assert.Equal(t, 30, cmd.Cooldown)
}

func TestZoneOvertakesRightWhenLeftBusy(t *testing.T) {
	p := zonePolicy(t)
	r := zoneReading(map[sensor.Zone][]track.Obstacle{
		sensor.ZoneFront: {ahead(200, 3)},
		sensor.ZoneLeft:  {{X: 200, Y: 600, W: 40, H: 80}},
	})
	cmd := p.Decide(zoneVehicle(2), r)
	assert.Equal(t, 1, cmd.LaneChange)
	assert.Equal(t, 3, cmd.Lane)
}

func TestZoneLeftmostLaneGoesRight(t *testing.T) {
	p := zonePolicy(t)
	r := zoneReading(map[sensor.Zone][]track.Obstacle{sensor.ZoneFront: {ahead(100, 3)}})
	cmd := p.Decide(zoneVehicle(0), r)
	assert.Equal(t, 1, cmd.LaneChange)
}

func TestZoneBlockedEverywhereFollows(t *testing.T) {
	p := zonePolicy(t)
	side := []track.Obstacle{{X: 0, Y: 600, W: 40, H: 80}}
	r := zoneReading(map[sensor.Zone][]track.Obstacle{
		sensor.ZoneFront: {ahead(300, 3), ahead(100, 4)},
		sensor.ZoneLeft:  side,
		sensor.ZoneRight: side,
	})
	cmd := p.Decide(zoneVehicle(2), r)
	assert.Equal(t, 0, cmd.LaneChange)
	assert.Equal(t, 2, cmd.Lane)
	assert.Equal(t, 40.0, cmd.Speed)

	fast := zoneVehicle(2)
	fast.Speed = 45
	p2, err := New(Config{BlockedRatio: 0.5, FollowRatio: 25, AccelStep: 0.1, Cooldown: 30}, sensor.GeometryZone, zoneBounds, zoneSpeed)
	require.NoError(t, err)
	// follow speed is taken from the nearest car (speed 4 -> 100), never raises speed
	assert.Equal(t, 45.0, p2.Decide(fast, r).Speed)
}

func TestZoneDistantFrontHolds(t *testing.T) {
	p := zonePolicy(t)
	r := zoneReading(map[sensor.Zone][]track.Obstacle{sensor.ZoneFront: {ahead(260, 3)}})
	v := zoneVehicle(2)
	cmd := p.Decide(v, r)
	assert.Equal(t, hold(v), cmd)
}

func TestZoneReturnsToCenter(t *testing.T) {
	p := zonePolicy(t)

	cmd := p.Decide(zoneVehicle(0), zoneReading(nil))
	assert.Equal(t, 1, cmd.LaneChange)
	assert.Equal(t, track.ModeReturning, cmd.Mode)

	cmd = p.Decide(zoneVehicle(4), zoneReading(nil))
	assert.Equal(t, -1, cmd.LaneChange)
	assert.Equal(t, 3, cmd.Lane)

	busy := zoneReading(map[sensor.Zone][]track.Obstacle{sensor.ZoneRight: {{X: 300}}})
	cmd = p.Decide(zoneVehicle(1), busy)
	assert.Equal(t, 0, cmd.LaneChange)
	assert.InDelta(t, 60.1, cmd.Speed, 1e-9)
}

func TestZoneCenterLaneAccelerates(t *testing.T) {
	p := zonePolicy(t)
	v := zoneVehicle(2)
	v.Speed = 79.95
	cmd := p.Decide(v, zoneReading(nil))
	assert.Equal(t, 80.0, cmd.Speed)
	assert.Equal(t, track.ModeCruising, cmd.Mode)
}

func TestZoneCooldownIsExact(t *testing.T) {
	p := zonePolicy(t)
	blocked := zoneReading(map[sensor.Zone][]track.Obstacle{sensor.ZoneFront: {ahead(100, 3)}})

	v := zoneVehicle(2)
	cmd := p.Decide(v, blocked)
	require.Equal(t, -1, cmd.LaneChange)
	v.Lane, v.TargetX, v.Mode, v.Cooldown = cmd.Lane, cmd.TargetX, cmd.Mode, cmd.Cooldown

	for tick := 1; tick <= 30; tick++ {
		cmd = p.Decide(v, blocked)
		require.Equal(t, 0, cmd.LaneChange, "tick %d", tick)
		require.Equal(t, 30-tick, cmd.Cooldown)
		require.Equal(t, v.Speed, cmd.Speed)
		v.Cooldown = cmd.Cooldown
	}

	cmd = p.Decide(v, blocked)
	assert.Equal(t, -1, cmd.LaneChange)
	assert.Equal(t, 0, cmd.Lane)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{}, sensor.GeometryRayFan, rayBounds, raySpeed)
	assert.True(t, errors.Is(err, validate.ErrInvalidConfig))

	cfg := DefaultZoneConfig()
	cfg.Cooldown = -1
	_, err = New(cfg, sensor.GeometryZone, zoneBounds, zoneSpeed)
	assert.True(t, errors.Is(err, validate.ErrInvalidConfig))

	_, err = New(DefaultZoneConfig(), sensor.GeometryZone, track.Bounds{}, zoneSpeed)
	assert.True(t, errors.Is(err, validate.ErrInvalidConfig))
}
