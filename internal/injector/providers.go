package injector

import (
	"github.com/gdamore/tcell/v2"
	"github.com/google/wire"

	"github.com/zeusync/roadsim/internal/config"
	"github.com/zeusync/roadsim/internal/core/events/bus"
	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/episode"
	"github.com/zeusync/roadsim/internal/render/tui"
	"github.com/zeusync/roadsim/internal/server"
)

// CoreSet builds the logger, the event bus and the episode runner.
var CoreSet = wire.NewSet(
	ProvideLogger,
	bus.New,
	ProvideEpisodeConfig,
	episode.NewRunner,
)

func ProvideLogger(cfg *config.Config) (log.Log, func(), error) {
	logger, err := log.New(cfg.LogOptions())
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideEpisodeConfig(cfg *config.Config) episode.Config { return cfg.Episode }

func ProvideServer(cfg *config.Config, runner *episode.Runner, b bus.EventBus, logger log.Log) (*server.Server, func(), error) {
	s, err := server.New(cfg.Server, runner, b, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

func ProvideViewer(cfg *config.Config, screen tcell.Screen, runner *episode.Runner, logger log.Log) *tui.Viewer {
	return tui.New(screen, runner, cfg.Viewer.TickInterval.Std(), logger)
}
