package sensor

import (
	"math"

	"github.com/zeusync/roadsim/internal/core/track"
)

// classifyZones sorts obstacles into the five zones by centre offset from
// the vehicle centre. The ahead zones are exclusive of each other; the side
// zones are decided independently. A zone's distance is the smallest
// longitudinal gap among its members.
func (a *Array) classifyZones(v track.Vehicle, obstacles track.Set, probes []Probe) {
	origin := v.Center()
	laneWidth := a.bounds.LaneWidth

	add := func(z Zone, o track.Obstacle, gap float64) {
		p := &probes[z]
		p.Obstacles = append(p.Obstacles, o)
		p.Distance = math.Min(p.Distance, gap)
	}

	for _, o := range obstacles {
		c := o.Center()
		dx := c.X - origin.X
		ahead := origin.Y - c.Y

		if ahead > 0 && ahead < a.cfg.MaxRange {
			switch {
			case math.Abs(dx) < laneWidth/2:
				add(ZoneFront, o, ahead)
			case dx < 0 && dx > -laneWidth:
				add(ZoneFrontLeft, o, ahead)
			case dx > 0 && dx < laneWidth:
				add(ZoneFrontRight, o, ahead)
			}
		}

		if gap := math.Abs(origin.Y - c.Y); gap < a.cfg.SideRange {
			switch {
			case dx < 0:
				add(ZoneLeft, o, gap)
			case dx > 0:
				add(ZoneRight, o, gap)
			}
		}
	}
}
