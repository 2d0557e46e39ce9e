package policy

import (
	"math"

	"github.com/zeusync/roadsim/internal/core/sensor"
	phys "github.com/zeusync/roadsim/internal/core/systems/physics"
	"github.com/zeusync/roadsim/internal/core/track"
)

// decideZone is the lane-discrete policy. A lane change starts the cooldown;
// while it runs the policy only counts it down.
func (p *Policy) decideZone(v track.Vehicle, r sensor.Reading) Command {
	cmd := hold(v)
	if v.Cooldown > 0 {
		cmd.Cooldown--
		return cmd
	}

	front := r.Zone(sensor.ZoneFront)
	leftFree := len(r.Zone(sensor.ZoneLeft).Obstacles) == 0
	rightFree := len(r.Zone(sensor.ZoneRight).Obstacles) == 0

	if len(front.Obstacles) > 0 {
		nearest, gap := nearestAhead(v, front.Obstacles)
		phys.MustFinite("front gap", gap)
		if gap >= p.cfg.BlockedRatio*r.MaxRange {
			return cmd
		}
		switch {
		case leftFree && v.Lane > 0:
			p.commit(&cmd, v, -1, track.ModeOvertaking)
		case rightFree && v.Lane < p.bounds.Lanes-1:
			p.commit(&cmd, v, 1, track.ModeOvertaking)
		default:
			follow := math.Max(p.cfg.FollowRatio*nearest.Speed, p.speed.Min)
			cmd.Speed = math.Min(v.Speed, follow)
		}
		return cmd
	}

	center := p.bounds.CenterLane()
	switch {
	case v.Lane < center && rightFree:
		p.commit(&cmd, v, 1, track.ModeReturning)
	case v.Lane > center && leftFree:
		p.commit(&cmd, v, -1, track.ModeReturning)
	default:
		cmd.Speed = math.Min(p.speed.Max, v.Speed+p.cfg.AccelStep)
	}
	return cmd
}

func (p *Policy) commit(cmd *Command, v track.Vehicle, dir int, mode track.Mode) {
	cmd.Lane = v.Lane + dir
	cmd.TargetX = p.bounds.LaneX(cmd.Lane, v.W)
	cmd.LaneChange = dir
	cmd.Mode = mode
	cmd.Cooldown = p.cfg.Cooldown
}

// nearestAhead picks the obstacle with the smallest forward gap.
func nearestAhead(v track.Vehicle, obstacles []track.Obstacle) (track.Obstacle, float64) {
	origin := v.Center()
	best, gap := obstacles[0], math.Inf(1)
	for _, o := range obstacles {
		if g := origin.Y - o.Center().Y; g < gap {
			best, gap = o, g
		}
	}
	return best, gap
}
