package episode

import (
	"time"

	"github.com/zeusync/roadsim/internal/core/events/bus"
	"github.com/zeusync/roadsim/internal/core/track"
)

// Topic is the bus topic every runner publishes on.
const Topic = "episode"

const (
	EventTick       = "tick"
	EventLaneChange = "lane_change"
	EventCollision  = "collision"
	EventReset      = "reset"
	EventPassed     = "passed"
)

// Event is published on Topic. Payload holds one of the payload types below,
// or a Snapshot for EventTick.
type Event struct {
	Kind    string    `json:"type"`
	Episode string    `json:"episode"`
	Tick    uint64    `json:"tick"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

var _ bus.Event = Event{}

func (e Event) Type() string         { return e.Kind }
func (e Event) Source() string       { return e.Episode }
func (e Event) Timestamp() time.Time { return e.At }
func (e Event) Data() any            { return e.Payload }

type LaneChange struct {
	From int        `json:"from"`
	To   int        `json:"to"`
	Mode track.Mode `json:"mode"`
}

type Collision struct {
	Obstacle track.Obstacle `json:"obstacle"`
	Score    int            `json:"score"`
}

type Reset struct {
	Seed uint64 `json:"seed"`
	// Previous is the score of the abandoned episode.
	Previous int `json:"previous"`
}

type Passed struct {
	Count int `json:"count"`
	Total int `json:"total"`
	Score int `json:"score"`
}
