package traffic

import (
	"math/rand/v2"

	"github.com/zeusync/roadsim/internal/core/track"
)

// fallingBlocks keeps a fixed number of square blocks falling through the
// viewport. A block that drops below the bottom edge is recycled above the
// top.
type fallingBlocks struct {
	cfg    Config
	bounds track.Bounds
	rng    *rand.Rand
	blocks track.Set
}

func (g *fallingBlocks) Reset(seed uint64) {
	g.rng = source(seed)
	g.blocks = make(track.Set, g.cfg.Count)
	for i := range g.blocks {
		g.blocks[i] = g.spawn()
	}
}

// spawn places a block at an integer position somewhere in the band one
// viewport high above the top edge.
func (g *fallingBlocks) spawn() track.Obstacle {
	size := g.cfg.BlockSize
	maxX := int(g.bounds.Width - size)
	top := int(g.bounds.ViewportHeight - size)
	return track.Obstacle{
		X:     float64(g.rng.IntN(maxX + 1)),
		Y:     -g.bounds.ViewportHeight + float64(g.rng.IntN(max(top, 0)+1)),
		W:     size,
		H:     size,
		Lane:  track.NoLane,
		Speed: g.cfg.FallSpeed,
	}
}

func (g *fallingBlocks) Advance() (track.Set, int) {
	passed := 0
	for i := range g.blocks {
		g.blocks[i].Y += g.cfg.FallSpeed
		if g.blocks[i].Y > g.bounds.ViewportHeight {
			g.blocks[i] = g.spawn()
			passed++
		}
	}
	return g.blocks.Clone(), passed
}

func (g *fallingBlocks) Obstacles() track.Set { return g.blocks.Clone() }
