// Package tui draws a running episode in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/sim"
	"github.com/zeusync/roadsim/internal/episode"
)

const hudRows = 2

var (
	styleRoad     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMarking  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleVehicle  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleProbe    = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleBanner   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
)

// Viewer steps a runner at a fixed rate and redraws the screen after every
// tick. The caller owns the screen's Init and Fini.
type Viewer struct {
	screen   tcell.Screen
	runner   *episode.Runner
	interval time.Duration
	logger   log.Log
	paused   bool
}

func New(screen tcell.Screen, runner *episode.Runner, interval time.Duration, logger log.Log) *Viewer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Viewer{screen: screen, runner: runner, interval: interval, logger: logger.Named("tui")}
}

// Run returns nil when the user quits or the screen is finalised, and ctx's
// error when ctx ends first.
func (v *Viewer) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go v.screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	v.Draw(v.runner.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok || v.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			if v.paused {
				continue
			}
			snap, err := v.runner.Step()
			if err != nil && !errors.Is(err, sim.ErrEpisodeOver) {
				return err
			}
			v.Draw(snap)
		}
	}
}

// HandleEvent reacts to keys and resizes; it reports whether to quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return true
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
			return true
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			snap := v.runner.Reset()
			v.logger.Debug("restart", log.String("episode", snap.Episode))
			v.Draw(snap)
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'p':
			v.paused = !v.paused
		}
	case *tcell.EventResize:
		v.screen.Sync()
		v.Draw(v.runner.Snapshot())
	}
	return false
}

// Draw renders snap scaled onto the whole screen below the HUD.
func (v *Viewer) Draw(snap episode.Snapshot) {
	v.screen.Clear()
	cols, rows := v.screen.Size()
	p := projection{
		cols:   cols,
		rows:   rows - hudRows,
		width:  snap.Bounds.Width,
		height: snap.Bounds.ViewportHeight,
	}
	if p.rows > 0 && p.cols > 0 {
		v.drawRoad(p, snap)
		for _, o := range snap.Obstacles {
			v.fill(p, o.X, o.Y, o.W, o.H, '█', styleObstacle)
		}
		v.drawProbes(p, snap.Frame)
		car := snap.Frame.Vehicle
		v.fill(p, car.X, car.Y, car.W, car.H, '█', styleVehicle)
	}

	v.text(0, 0, fmt.Sprintf("Score: %d  Speed: %d km/h  State: %s", snap.Score, snap.SpeedKmh, snap.Frame.Vehicle.Mode), styleHUD)
	status := fmt.Sprintf("Tick: %d  Distance: %.0f  Passed: %d", snap.Tick, snap.Distance, snap.Passed)
	if v.paused {
		status += "  [paused]"
	}
	v.text(0, 1, status, styleHUD)

	if snap.Over {
		banner := fmt.Sprintf(" Game Over! Score: %d - Press SPACE to restart ", snap.Score)
		v.text(max((cols-len(banner))/2, 0), rows/2, banner, styleBanner)
	}
	v.screen.Show()
}

func (v *Viewer) drawRoad(p projection, snap episode.Snapshot) {
	b := snap.Bounds
	if snap.Geometry == sensor.GeometryZone && b.Lanes > 0 {
		for i := 0; i <= b.Lanes; i++ {
			col := p.col(b.LaneWidth * float64(i))
			style, r := styleMarking, '¦'
			if i == 0 || i == b.Lanes {
				style, r = styleRoad, '│'
			}
			for row := 0; row < p.rows; row++ {
				v.screen.SetContent(col, row+hudRows, r, nil, style)
			}
		}
		return
	}
	col := p.col(b.Width / 2)
	for row := 0; row < p.rows; row += 2 {
		v.screen.SetContent(col, row+hudRows, '┆', nil, styleRoad)
	}
}

// drawProbes marks where each ray reading ends.
func (v *Viewer) drawProbes(p projection, f sim.Frame) {
	if f.Reading.Geometry != sensor.GeometryRayFan {
		return
	}
	c := f.Vehicle.Center()
	for _, probe := range f.Reading.Probes {
		rad := probe.Angle * math.Pi / 180
		x := c.X + math.Sin(rad)*probe.Distance
		y := c.Y - math.Cos(rad)*probe.Distance
		v.set(p, x, y, '·', styleProbe)
	}
}

func (v *Viewer) fill(p projection, x, y, w, h float64, r rune, style tcell.Style) {
	c0, c1 := p.col(x), p.col(x+w)
	r0, r1 := p.row(y), p.row(y+h)
	for row := r0; row <= max(r0, r1-1); row++ {
		for col := c0; col <= max(c0, c1-1); col++ {
			v.put(p, col, row, r, style)
		}
	}
}

func (v *Viewer) set(p projection, x, y float64, r rune, style tcell.Style) {
	v.put(p, p.col(x), p.row(y), r, style)
}

func (v *Viewer) put(p projection, col, row int, r rune, style tcell.Style) {
	if col < 0 || col >= p.cols || row < 0 || row >= p.rows {
		return
	}
	v.screen.SetContent(col, row+hudRows, r, nil, style)
}

func (v *Viewer) text(col, row int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

// projection maps world coordinates onto terminal cells.
type projection struct {
	cols, rows    int
	width, height float64
}

func (p projection) col(x float64) int { return int(math.Floor(x / p.width * float64(p.cols))) }
func (p projection) row(y float64) int { return int(math.Floor(y / p.height * float64(p.rows))) }
