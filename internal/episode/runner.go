// Package episode drives one simulation episode: traffic, engine and score,
// publishing what happens on the event bus.
package episode

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/roadsim/internal/core/events/bus"
	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/sim"
	"github.com/zeusync/roadsim/internal/core/track"
	"github.com/zeusync/roadsim/internal/core/traffic"
	"github.com/zeusync/roadsim/internal/core/validate"
)

// Snapshot is the observable state after the latest tick.
type Snapshot struct {
	Episode   string          `json:"episode"`
	Seed      uint64          `json:"seed"`
	Geometry  sensor.Geometry `json:"geometry"`
	Bounds    track.Bounds    `json:"bounds"`
	Tick      uint64          `json:"tick"`
	Score     int             `json:"score"`
	Passed    int             `json:"passed"`
	Distance  float64         `json:"distance"`
	SpeedKmh  int             `json:"speed_kmh"`
	Over      bool            `json:"over"`
	Frame     sim.Frame       `json:"frame"`
	Obstacles track.Set       `json:"obstacles"`
}

// Result summarises a finished or interrupted episode.
type Result struct {
	Episode  string  `json:"episode"`
	Seed     uint64  `json:"seed"`
	Ticks    uint64  `json:"ticks"`
	Score    int     `json:"score"`
	Passed   int     `json:"passed"`
	Distance float64 `json:"distance"`
	Collided bool    `json:"collided"`
	// Fingerprint hashes the vehicle trajectory; equal seeds and
	// configurations give equal fingerprints.
	Fingerprint uint64 `json:"fingerprint"`
}

// Runner owns one engine and its traffic. Step, Reset and the accessors are
// safe for concurrent use. Events leave in the order the state changed: a
// reset event is never followed by an event of the episode it replaced.
// Handlers run synchronously and must not call Step or Reset themselves.
type Runner struct {
	mu sync.Mutex
	// pub is taken before mu is released and held while publishing.
	pub     sync.Mutex
	cfg     Config
	engine  *sim.Engine
	traffic traffic.Generator
	bus     bus.EventBus
	logger  log.Log

	id        uuid.UUID
	seed      uint64
	resets    uint64
	score     int
	passed    int
	obstacles track.Set
	digest    *xxhash.Digest
	buf       []byte
}

// NewRunner validates cfg and prepares the first episode. A nil bus disables
// events.
func NewRunner(cfg Config, events bus.EventBus, logger log.Log) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engine, err := sim.New(cfg.Sim)
	if err != nil {
		return nil, err
	}
	gen, err := traffic.New(cfg.Traffic, cfg.Sim.Geometry(), cfg.Sim.Bounds, cfg.Seed)
	if err != nil {
		return nil, validate.Prefix("traffic", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	r := &Runner{
		cfg:     cfg,
		engine:  engine,
		traffic: gen,
		bus:     events,
		logger:  logger.Named("episode").With(log.String("geometry", cfg.Sim.Geometry().String())),
		digest:  xxhash.New(),
		buf:     make([]byte, 0, 48),
	}
	r.begin(cfg.Seed)
	return r, nil
}

func (r *Runner) begin(seed uint64) {
	r.id = uuid.New()
	r.seed = seed
	r.score = 0
	r.passed = 0
	r.engine.Reset()
	r.traffic.Reset(seed)
	r.obstacles = r.traffic.Obstacles()
	r.digest.Reset()
}

// Reset abandons the current episode and starts the next one with the next
// seed.
func (r *Runner) Reset() Snapshot {
	r.mu.Lock()
	previous := r.score
	r.resets++
	r.begin(r.cfg.Seed + r.resets)
	snap := r.snapshotLocked()
	r.pub.Lock()
	r.mu.Unlock()
	defer r.pub.Unlock()

	r.logger.Info("episode reset",
		log.String("episode", snap.Episode),
		log.Uint64("seed", snap.Seed),
		log.Int("previous_score", previous),
	)
	r.publish(r.event(snap, EventReset, Reset{Seed: snap.Seed, Previous: previous}))
	return snap
}

// Step advances traffic and the engine by one tick. After a collision it
// returns sim.ErrEpisodeOver until Reset.
func (r *Runner) Step() (Snapshot, error) {
	r.mu.Lock()
	if r.engine.Over() {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap, sim.ErrEpisodeOver
	}

	before := r.engine.Vehicle()
	obstacles, passed := r.traffic.Advance()
	frame, err := r.engine.Step(obstacles)
	if err != nil {
		r.mu.Unlock()
		return Snapshot{}, err
	}
	r.obstacles = obstacles

	r.passed += passed
	r.score += passed * r.cfg.Scoring.PerPassed
	if !frame.Collided {
		r.score += r.cfg.Scoring.PerTick
	}
	r.fingerprint(frame)
	snap := r.snapshotLocked()
	r.pub.Lock()
	r.mu.Unlock()
	defer r.pub.Unlock()

	events := make([]bus.Event, 0, 4)
	if passed > 0 {
		events = append(events, r.event(snap, EventPassed, Passed{Count: passed, Total: snap.Passed, Score: snap.Score}))
	}
	if frame.Command.LaneChange != 0 {
		change := LaneChange{From: before.Lane, To: frame.Vehicle.Lane, Mode: frame.Vehicle.Mode}
		r.logger.Debug("lane change",
			log.String("episode", snap.Episode),
			log.Uint64("tick", snap.Tick),
			log.Int("from", change.From),
			log.Int("to", change.To),
		)
		events = append(events, r.event(snap, EventLaneChange, change))
	}
	if frame.Collided {
		r.logger.Info("collision",
			log.String("episode", snap.Episode),
			log.Uint64("tick", snap.Tick),
			log.Int("score", snap.Score),
			log.Float64("distance", snap.Distance),
		)
		events = append(events, r.event(snap, EventCollision, Collision{Obstacle: obstacles[frame.Hit], Score: snap.Score}))
	}
	events = append(events, r.event(snap, EventTick, snap))
	r.publish(events...)
	return snap, nil
}

// Run steps until a collision, the tick limit or cancellation. maxTicks == 0
// means no limit. The result is valid in every case.
func (r *Runner) Run(ctx context.Context, maxTicks uint64) (Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return r.Result(), err
		}
		snap, err := r.Step()
		if errors.Is(err, sim.ErrEpisodeOver) {
			return r.Result(), nil
		}
		if err != nil {
			return r.Result(), err
		}
		if snap.Over || (maxTicks > 0 && snap.Tick >= maxTicks) {
			return r.Result(), nil
		}
	}
}

// Pace steps once per interval until ctx is done. Collisions do not stop
// it; ticks after a collision are skipped until Reset.
func (r *Runner) Pace(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Step(); err != nil && !errors.Is(err, sim.ErrEpisodeOver) {
				return err
			}
		}
	}
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runner) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.engine.Vehicle()
	return Result{
		Episode:     r.id.String(),
		Seed:        r.seed,
		Ticks:       r.engine.Tick(),
		Score:       r.score,
		Passed:      r.passed,
		Distance:    v.Odometer,
		Collided:    r.engine.Over(),
		Fingerprint: r.digest.Sum64(),
	}
}

func (r *Runner) Config() Config { return r.cfg }

func (r *Runner) snapshotLocked() Snapshot {
	frame := r.engine.LastFrame()
	return Snapshot{
		Episode:   r.id.String(),
		Seed:      r.seed,
		Geometry:  r.cfg.Sim.Geometry(),
		Bounds:    r.cfg.Sim.Bounds,
		Tick:      r.engine.Tick(),
		Score:     r.score,
		Passed:    r.passed,
		Distance:  frame.Vehicle.Odometer,
		SpeedKmh:  int(frame.Vehicle.Speed * r.cfg.Scoring.SpeedScale),
		Over:      r.engine.Over(),
		Frame:     frame,
		Obstacles: r.obstacles.Clone(),
	}
}

// fingerprint folds the tick's vehicle state into the trajectory digest.
func (r *Runner) fingerprint(f sim.Frame) {
	b := r.buf[:0]
	b = binary.LittleEndian.AppendUint64(b, f.Tick)
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f.Vehicle.X))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f.Vehicle.Y))
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f.Vehicle.Speed))
	b = binary.LittleEndian.AppendUint32(b, uint32(int32(f.Vehicle.Lane)))
	b = append(b, byte(f.Vehicle.Mode))
	if f.Collided {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	_, _ = r.digest.Write(b)
	r.buf = b
}

func (r *Runner) event(snap Snapshot, kind string, payload any) bus.Event {
	return Event{Kind: kind, Episode: snap.Episode, Tick: snap.Tick, At: time.Now(), Payload: payload}
}

func (r *Runner) publish(events ...bus.Event) {
	if r.bus == nil {
		return
	}
	for _, e := range events {
		if err := r.bus.PublishToTopic(Topic, e); err != nil {
			r.logger.Warn("event handler failed", log.String("event", e.Type()), log.Error(err))
		}
	}
}
