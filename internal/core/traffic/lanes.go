package traffic

import (
	"math/rand/v2"

	"github.com/zeusync/roadsim/internal/core/track"
)

// laneTraffic spawns slower cars at the top of random lanes. Positions are
// relative to the controlled vehicle, so slower cars drift down the screen.
type laneTraffic struct {
	cfg    Config
	bounds track.Bounds
	rng    *rand.Rand
	cars   track.Set
}

func (g *laneTraffic) Reset(seed uint64) {
	g.rng = source(seed)
	g.cars = g.cars[:0]
}

func (g *laneTraffic) spawn() {
	if len(g.cars) >= g.cfg.MaxCars || g.rng.Float64() >= g.cfg.SpawnChance {
		return
	}
	lane := g.rng.IntN(g.bounds.Lanes)
	speed := g.cfg.Speed.Min + g.rng.Float64()*(g.cfg.Speed.Max-g.cfg.Speed.Min)
	g.cars = append(g.cars, track.Obstacle{
		X:     g.bounds.LaneX(lane, g.cfg.CarWidth),
		Y:     -g.cfg.CarHeight,
		W:     g.cfg.CarWidth,
		H:     g.cfg.CarHeight,
		Lane:  lane,
		Speed: speed,
	})
}

// Advance spawns at most one car, then moves every car into a new set. Cars
// below the viewport are counted as passed; cars far above it are dropped.
func (g *laneTraffic) Advance() (track.Set, int) {
	g.spawn()

	moved := make(track.Set, len(g.cars))
	passed := 0
	for i, c := range g.cars {
		c.Y += g.cfg.BaseSpeed - c.Speed
		if c.Y > g.bounds.ViewportHeight {
			passed++
		}
		moved[i] = c
	}
	g.cars = moved.Filter(func(c track.Obstacle) bool {
		return c.Y <= g.bounds.ViewportHeight && c.Y >= -2*g.cfg.CarHeight
	})
	return g.cars.Clone(), passed
}

func (g *laneTraffic) Obstacles() track.Set { return g.cars.Clone() }
