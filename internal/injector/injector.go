//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/gdamore/tcell/v2"
	"github.com/google/wire"

	"github.com/zeusync/roadsim/internal/config"
	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/episode"
	"github.com/zeusync/roadsim/internal/render/tui"
	"github.com/zeusync/roadsim/internal/server"
)

func InitializeLogger(cfg *config.Config) (log.Log, func(), error) {
	wire.Build(ProvideLogger)
	return nil, nil, nil
}

func InitializeRunner(cfg *config.Config) (*episode.Runner, func(), error) {
	wire.Build(CoreSet)
	return nil, nil, nil
}

func InitializeServer(cfg *config.Config) (*server.Server, func(), error) {
	wire.Build(CoreSet, ProvideServer)
	return nil, nil, nil
}

func InitializeViewer(cfg *config.Config, screen tcell.Screen) (*tui.Viewer, func(), error) {
	wire.Build(CoreSet, ProvideViewer)
	return nil, nil, nil
}
