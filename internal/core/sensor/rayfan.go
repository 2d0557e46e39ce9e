package sensor

import (
	"math"

	phys "github.com/zeusync/roadsim/internal/core/systems/physics"
	"github.com/zeusync/roadsim/internal/core/track"
)

// castRays fills probes with the nearest obstacle whose centre bearing lies
// within the tolerance cone of each ray. Candidates are ranked by centre
// distance; the reported value subtracts the winner's half width.
func (a *Array) castRays(v track.Vehicle, obstacles track.Set, probes []Probe) {
	origin := v.Center()

	for i := range probes {
		best := a.cfg.MaxRange
		hit := -1
		for j, o := range obstacles {
			dist, bearing := phys.Bearing(o.Center().Sub(origin))
			if dist >= best {
				continue
			}
			if math.Abs(phys.AngleDiff(bearing, probes[i].Angle)) < a.cfg.Tolerance {
				best = dist
				hit = j
			}
		}
		if hit >= 0 {
			probes[i].Distance = math.Max(0, best-obstacles[hit].HalfWidth())
		}
	}
}
