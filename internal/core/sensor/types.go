package sensor

import (
	"fmt"
	"strings"

	"github.com/zeusync/roadsim/internal/core/track"
)

// Geometry selects how the probes are laid out around the vehicle.
type Geometry uint8

const (
	// GeometryRayFan casts rays at fixed angles from the vehicle centre.
	GeometryRayFan Geometry = iota
	// GeometryZone sorts obstacles into five rectangular regions.
	GeometryZone
)

func (g Geometry) String() string {
	switch g {
	case GeometryRayFan:
		return "ray_fan"
	case GeometryZone:
		return "zone"
	default:
		return fmt.Sprintf("geometry(%d)", uint8(g))
	}
}

func ParseGeometry(s string) (Geometry, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ray_fan", "rayfan", "ray-fan":
		return GeometryRayFan, nil
	case "zone", "zones", "zone_based":
		return GeometryZone, nil
	default:
		return 0, fmt.Errorf("unknown sensor geometry %q", s)
	}
}

func (g Geometry) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Geometry) UnmarshalText(text []byte) error {
	parsed, err := ParseGeometry(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Zone indexes the probes of a zone reading.
type Zone int

const (
	ZoneFront Zone = iota
	ZoneFrontLeft
	ZoneFrontRight
	ZoneLeft
	ZoneRight
	zoneCount
)

var zoneNames = [zoneCount]string{"front", "front_left", "front_right", "left", "right"}

func (z Zone) String() string {
	if z < 0 || z >= zoneCount {
		return fmt.Sprintf("zone(%d)", int(z))
	}
	return zoneNames[z]
}

// Probe is one directional reading.
type Probe struct {
	Name string `json:"name"`
	// Angle is the emission angle in degrees relative to forward. Zone probes
	// leave it zero.
	Angle    float64 `json:"angle"`
	Distance float64 `json:"distance"`
	// Obstacles lists every member of a zone; ray probes leave it empty.
	Obstacles []track.Obstacle `json:"obstacles,omitempty"`
}

// Roles maps the probes the policy consults onto probe indices.
type Roles struct {
	Left  int `json:"left"`
	Front int `json:"front"`
	Right int `json:"right"`
}

// Reading is the output of one Array.Update.
type Reading struct {
	Geometry Geometry `json:"geometry"`
	MaxRange float64  `json:"max_range"`
	Roles    Roles    `json:"roles"`
	Probes   []Probe  `json:"probes"`
}

func (r Reading) Front() Probe { return r.Probes[r.Roles.Front] }
func (r Reading) Left() Probe  { return r.Probes[r.Roles.Left] }
func (r Reading) Right() Probe { return r.Probes[r.Roles.Right] }

// Zone returns the probe for z. It panics on a ray-fan reading.
func (r Reading) Zone(z Zone) Probe {
	if r.Geometry != GeometryZone {
		panic("sensor: Zone called on a " + r.Geometry.String() + " reading")
	}
	return r.Probes[z]
}

// Clear reports whether probe i saw nothing.
func (r Reading) Clear(i int) bool { return r.Probes[i].Distance >= r.MaxRange }
