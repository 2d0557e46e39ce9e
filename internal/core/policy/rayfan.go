package policy

import (
	"math"

	"github.com/zeusync/roadsim/internal/core/sensor"
	phys "github.com/zeusync/roadsim/internal/core/systems/physics"
	"github.com/zeusync/roadsim/internal/core/track"
)

// decideRayFan steers away from a close front obstacle toward the freer
// side, brakes when neither side is clearly free, and otherwise keeps away
// from side obstacles or accelerates. Equal side distances brake.
func (p *Policy) decideRayFan(v track.Vehicle, r sensor.Reading) Command {
	front, left, right := r.Front().Distance, r.Left().Distance, r.Right().Distance
	phys.MustFinite("front", front)
	phys.MustFinite("left", left)
	phys.MustFinite("right", right)

	cmd := hold(v)
	cmd.Mode = track.ModeCruising
	cmd.TargetX = v.X

	safe := p.cfg.SafeDistanceRatio * r.MaxRange
	clearance := p.cfg.ClearanceWidths * v.W

	if front < safe {
		switch {
		case left > right && left > clearance:
			cmd.Turn = -1
		case right > left && right > clearance:
			cmd.Turn = 1
		default:
			cmd.Speed = math.Max(p.speed.Min, v.Speed-p.cfg.BrakeStep)
			cmd.Mode = track.ModeCautiousBrake
		}
		return cmd
	}

	margin := p.cfg.SideMarginRatio * safe
	switch {
	case left < margin:
		cmd.Turn = 1
	case right < margin:
		cmd.Turn = -1
	default:
		cmd.Speed = math.Min(p.speed.Max, v.Speed+p.cfg.AccelStep)
	}
	return cmd
}
