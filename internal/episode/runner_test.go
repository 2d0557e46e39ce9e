package episode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/roadsim/internal/core/events/bus"
	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/sim"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// recorder collects every event published on the episode topic.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func record(t *testing.T, b bus.EventBus) *recorder {
	t.Helper()
	rec := &recorder{}
	_, err := b.SubscribeTopic(Topic, bus.AnyType, func(e bus.Event) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, e.(Event))
		return nil
	})
	require.NoError(t, err)
	return rec
}

func (r *recorder) of(kind string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func newRunner(t *testing.T, cfg Config, b bus.EventBus) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, b, log.NewNop())
	require.NoError(t, err)
	return r
}

// wallConfig drops a single block as wide as the road onto the vehicle.
func wallConfig() Config {
	cfg := DefaultConfig(sensor.GeometryRayFan)
	cfg.Traffic.Count = 1
	cfg.Traffic.BlockSize = cfg.Sim.Bounds.Width
	return cfg
}

func TestNewRunnerStartsFresh(t *testing.T) {
	for _, geometry := range []sensor.Geometry{sensor.GeometryRayFan, sensor.GeometryZone} {
		r := newRunner(t, DefaultConfig(geometry), nil)
		snap := r.Snapshot()
		assert.NotEmpty(t, snap.Episode)
		assert.Equal(t, uint64(1), snap.Seed)
		assert.Zero(t, snap.Tick)
		assert.Zero(t, snap.Score)
		assert.False(t, snap.Over)
		assert.Equal(t, geometry, snap.Geometry)
	}
}

func TestRayFanScoresPerTick(t *testing.T) {
	r := newRunner(t, DefaultConfig(sensor.GeometryRayFan), nil)
	// Blocks start at least 880 above the vehicle and close by at most 8 per
	// tick, so 50 ticks are collision free.
	res, err := r.Run(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), res.Ticks)
	assert.Equal(t, 50, res.Score)
	assert.False(t, res.Collided)
	assert.InDelta(t, 250, res.Distance, 1e-9)
	assert.Equal(t, 50, r.Snapshot().SpeedKmh)
}

func TestCollisionEndsRunAndPublishes(t *testing.T) {
	b := bus.New()
	rec := record(t, b)
	r := newRunner(t, wallConfig(), b)

	res, err := r.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, res.Collided)
	assert.Equal(t, int(res.Ticks)-1, res.Score)

	collisions := rec.of(EventCollision)
	require.Len(t, collisions, 1)
	assert.Equal(t, res.Ticks, collisions[0].Tick)
	assert.Equal(t, res.Score, collisions[0].Payload.(Collision).Score)
	assert.Len(t, rec.of(EventTick), int(res.Ticks))

	_, err = r.Step()
	assert.ErrorIs(t, err, sim.ErrEpisodeOver)
}

func TestResetStartsNextEpisode(t *testing.T) {
	b := bus.New()
	rec := record(t, b)
	r := newRunner(t, wallConfig(), b)
	first, err := r.Run(context.Background(), 0)
	require.NoError(t, err)

	snap := r.Reset()
	assert.NotEqual(t, first.Episode, snap.Episode)
	assert.Equal(t, uint64(2), snap.Seed)
	assert.Zero(t, snap.Tick)
	assert.Zero(t, snap.Score)
	assert.False(t, snap.Over)

	resets := rec.of(EventReset)
	require.Len(t, resets, 1)
	assert.Equal(t, Reset{Seed: 2, Previous: first.Score}, resets[0].Payload)
	assert.Equal(t, snap.Episode, resets[0].Episode)

	_, err = r.Step()
	assert.NoError(t, err)
}

func TestLaneChangeEvent(t *testing.T) {
	cfg := DefaultConfig(sensor.GeometryZone)
	cfg.Sim.Vehicle.StartLane = 0
	cfg.Traffic.SpawnChance = 0
	b := bus.New()
	rec := record(t, b)
	r := newRunner(t, cfg, b)

	_, err := r.Step()
	require.NoError(t, err)
	changes := rec.of(EventLaneChange)
	require.Len(t, changes, 1)
	assert.Equal(t, LaneChange{From: 0, To: 1, Mode: track.ModeReturning}, changes[0].Payload)
}

func TestZoneScoresPassedTraffic(t *testing.T) {
	cfg := DefaultConfig(sensor.GeometryZone)
	cfg.Traffic.SpawnChance = 0.2
	b := bus.New()
	rec := record(t, b)
	r := newRunner(t, cfg, b)

	res, err := r.Run(context.Background(), 600)
	require.NoError(t, err)
	assert.Equal(t, res.Passed*10, res.Score)

	total := 0
	for _, e := range rec.of(EventPassed) {
		total += e.Payload.(Passed).Count
	}
	assert.Equal(t, res.Passed, total)
}

func TestSameSeedSameFingerprint(t *testing.T) {
	cfg := DefaultConfig(sensor.GeometryZone)
	cfg.Traffic.SpawnChance = 0.1
	cfg.Seed = 77

	a, err := newRunner(t, cfg, nil).Run(context.Background(), 500)
	require.NoError(t, err)
	b, err := newRunner(t, cfg, bus.New()).Run(context.Background(), 500)
	require.NoError(t, err)

	assert.NotEqual(t, a.Episode, b.Episode)
	a.Episode, b.Episode = "", ""
	assert.Equal(t, a, b)
	assert.NotZero(t, a.Fingerprint)
}

func TestRunHonoursCancellation(t *testing.T) {
	r := newRunner(t, DefaultConfig(sensor.GeometryZone), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Ticks)
}

func TestPaceWithConcurrentResets(t *testing.T) {
	r := newRunner(t, wallConfig(), bus.New())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Pace(ctx, time.Millisecond) }()
	for range 10 {
		r.Reset()
		_ = r.Snapshot()
		time.Sleep(2 * time.Millisecond)
	}
	assert.ErrorIs(t, <-done, context.DeadlineExceeded)
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig(sensor.GeometryRayFan)
	cfg.Traffic.FallSpeed = 0
	_, err := NewRunner(cfg, nil, nil)
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "traffic.fall_speed", verr.Field)

	cfg = DefaultConfig(sensor.GeometryZone)
	cfg.Scoring.PerPassed = -1
	_, err = NewRunner(cfg, nil, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scoring.per_passed", verr.Field)
}

func TestEventsNeverOutliveTheirEpisode(t *testing.T) {
	b := bus.New()
	rec := record(t, b)
	r := newRunner(t, DefaultConfig(sensor.GeometryZone), b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Pace(ctx, 10*time.Microsecond) }()

	for i := 0; i < 200; i++ {
		r.Reset()
		time.Sleep(50 * time.Microsecond)
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	current := ""
	ticks, resets := 0, 0
	for _, e := range rec.events {
		if e.Kind == EventReset {
			current = e.Episode
			resets++
			continue
		}
		if e.Kind == EventTick {
			ticks++
		}
		if current != "" {
			require.Equal(t, current, e.Episode, "%s event at tick %d arrived after its episode was reset", e.Kind, e.Tick)
		}
	}
	assert.Equal(t, 200, resets)
	assert.Positive(t, ticks)
}
