package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/episode"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(80, 30)
	t.Cleanup(s.Fini)
	return s
}

func newRunner(t *testing.T, cfg episode.Config) *episode.Runner {
	t.Helper()
	r, err := episode.NewRunner(cfg, nil, nil)
	require.NoError(t, err)
	return r
}

func rows(s tcell.SimulationScreen) []string {
	cells, w, h := s.GetContents()
	out := make([]string, h)
	for y := 0; y < h; y++ {
		var b strings.Builder
		for x := 0; x < w; x++ {
			runes := cells[y*w+x].Runes
			if len(runes) == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(runes[0])
		}
		out[y] = b.String()
	}
	return out
}

func contains(s tcell.SimulationScreen, r rune) bool {
	for _, row := range rows(s) {
		if strings.ContainsRune(row, r) {
			return true
		}
	}
	return false
}

func TestDrawShowsHUDAndVehicle(t *testing.T) {
	screen := newScreen(t)
	v := New(screen, newRunner(t, episode.DefaultConfig(sensor.GeometryZone)), time.Millisecond, nil)

	v.Draw(v.runner.Snapshot())
	out := rows(screen)
	assert.Contains(t, out[0], "Score: 0")
	assert.Contains(t, out[0], "Speed: 600 km/h")
	assert.Contains(t, out[0], "State: CRUISING")
	assert.Contains(t, out[1], "Tick: 0")
	assert.True(t, contains(screen, '█'))
	assert.True(t, contains(screen, '¦'), "lane markings")
}

func TestDrawRayProbes(t *testing.T) {
	screen := newScreen(t)
	runner := newRunner(t, episode.DefaultConfig(sensor.GeometryRayFan))
	snap, err := runner.Step()
	require.NoError(t, err)

	New(screen, runner, time.Millisecond, nil).Draw(snap)
	assert.True(t, contains(screen, '·'))
	assert.Contains(t, rows(screen)[1], "Tick: 1")
}

func TestDrawGameOverBanner(t *testing.T) {
	screen := newScreen(t)
	cfg := episode.DefaultConfig(sensor.GeometryRayFan)
	cfg.Traffic.Count = 1
	cfg.Traffic.BlockSize = cfg.Sim.Bounds.Width
	runner := newRunner(t, cfg)
	res, err := runner.Run(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, res.Collided)

	New(screen, runner, time.Millisecond, nil).Draw(runner.Snapshot())
	assert.Contains(t, rows(screen)[15], "Game Over!")
	assert.Contains(t, rows(screen)[15], "Press SPACE to restart")
}

func TestHandleEvent(t *testing.T) {
	screen := newScreen(t)
	runner := newRunner(t, episode.DefaultConfig(sensor.GeometryZone))
	v := New(screen, runner, time.Millisecond, nil)

	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	} {
		assert.True(t, v.HandleEvent(ev), ev.Name())
	}
	assert.False(t, v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))

	assert.False(t, v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Equal(t, uint64(2), runner.Snapshot().Seed)

	assert.False(t, v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone)))
	assert.True(t, v.paused)
	v.Draw(runner.Snapshot())
	assert.Contains(t, rows(screen)[1], "[paused]")
}

func TestRunStepsUntilQuit(t *testing.T) {
	screen := newScreen(t)
	runner := newRunner(t, episode.DefaultConfig(sensor.GeometryZone))
	v := New(screen, runner, time.Millisecond, nil)

	done := make(chan error, 1)
	go func() { done <- v.Run(context.Background()) }()

	require.Eventually(t, func() bool { return runner.Snapshot().Tick >= 3 }, 2*time.Second, 5*time.Millisecond)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("viewer did not quit")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	screen := newScreen(t)
	v := New(screen, newRunner(t, episode.DefaultConfig(sensor.GeometryRayFan)), time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, v.Run(ctx), context.DeadlineExceeded)
}
