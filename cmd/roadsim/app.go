package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"

	"github.com/zeusync/roadsim/internal/config"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/episode"
	"github.com/zeusync/roadsim/internal/injector"
	"github.com/zeusync/roadsim/sdk/go/client"
)

var commonFlags = []cli.Flag{
	cli.StringFlag{Name: "config, c", Usage: "YAML or JSON configuration file"},
	cli.StringFlag{Name: "geometry, g", Value: "ray_fan", Usage: "Sensor geometry when no configuration file is given: ray_fan or zone"},
	cli.Uint64Flag{Name: "seed", Usage: "Traffic seed of the first episode"},
	cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
}

func withFlags(extra ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, commonFlags...), extra...)
}

func newApp(ctx context.Context, out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "roadsim"
	app.Usage = "Autonomous driving simulation with ray-fan and zone sensors"
	app.Writer = out
	app.ErrWriter = out

	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "Run one headless episode and print its result",
			Flags: withFlags(
				cli.Uint64Flag{Name: "ticks", Usage: "Stop after this many ticks; 0 runs until a collision"},
			),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				runner, cleanup, err := injector.InitializeRunner(cfg)
				if err != nil {
					return err
				}
				defer cleanup()

				res, err := runner.Run(ctx, c.Uint64("ticks"))
				if err != nil {
					return err
				}
				return printJSON(out, res)
			},
		},
		{
			Name:  "bench",
			Usage: "Run a batch of episodes over consecutive seeds in parallel",
			Flags: withFlags(
				cli.IntFlag{Name: "episodes, n", Usage: "Number of episodes; overrides batch.episodes"},
				cli.IntFlag{Name: "workers, w", Usage: "Parallel episodes; overrides batch.workers"},
				cli.Uint64Flag{Name: "ticks", Usage: "Tick limit per episode; overrides batch.max_ticks"},
			),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				if c.IsSet("episodes") {
					cfg.Batch.Episodes = c.Int("episodes")
				}
				if c.IsSet("workers") {
					cfg.Batch.Workers = c.Int("workers")
				}
				if c.IsSet("ticks") {
					cfg.Batch.MaxTicks = c.Uint64("ticks")
				}
				if err := cfg.Validate(); err != nil {
					return err
				}

				logger, cleanup, err := injector.InitializeLogger(cfg)
				if err != nil {
					return err
				}
				defer cleanup()

				seeds := make([]uint64, cfg.Batch.Episodes)
				for i := range seeds {
					seeds[i] = cfg.Episode.Seed + uint64(i)
				}
				results, err := episode.RunBatch(ctx, cfg.Episode, seeds, cfg.Batch.MaxTicks, cfg.Batch.Workers, logger)
				if err != nil {
					return err
				}
				return printJSON(out, summarize(results))
			},
		},
		{
			Name:  "serve",
			Usage: "Stream a live episode to websocket viewers",
			Flags: withFlags(
				cli.StringFlag{Name: "addr", Usage: "Listen address; overrides server.addr"},
			),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				if c.IsSet("addr") {
					cfg.Server.Addr = c.String("addr")
				}
				srv, cleanup, err := injector.InitializeServer(cfg)
				if err != nil {
					return err
				}
				defer cleanup()
				return ignoreCanceled(srv.Run(ctx))
			},
		},
		{
			Name:  "watch",
			Usage: "Print the live event feed of a running server",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "Server address"},
				cli.StringSliceFlag{Name: "type, t", Usage: "Only print these event types"},
				cli.BoolFlag{Name: "restart", Usage: "Request a new episode after connecting"},
			},
			Action: func(c *cli.Context) error {
				cfg := client.DefaultConfig()
				cfg.ServerURL = c.String("url")
				feed, err := client.Dial(ctx, cfg, nil)
				if err != nil {
					return err
				}
				defer func() { _ = feed.Close() }()
				if c.Bool("restart") {
					if err := feed.Restart(); err != nil {
						return err
					}
				}
				return watch(ctx, out, feed, c.StringSlice("type"))
			},
		},
		{
			Name:  "view",
			Usage: "Watch an episode in the terminal",
			Flags: withFlags(),
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				screen, err := tcell.NewScreen()
				if err != nil {
					return err
				}
				if err := screen.Init(); err != nil {
					return err
				}
				defer screen.Fini()

				viewer, cleanup, err := injector.InitializeViewer(cfg, screen)
				if err != nil {
					return err
				}
				defer cleanup()
				return ignoreCanceled(viewer.Run(ctx))
			},
		},
	}
	return app
}

// watch prints one JSON line per event until ctx ends or the feed closes.
func watch(ctx context.Context, out io.Writer, feed *client.Client, types []string) error {
	keep := make(map[string]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}
	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-feed.Events():
			if !ok {
				return feed.Err()
			}
			if len(keep) > 0 && !keep[ev.Type] {
				continue
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
	}
}

// loadConfig reads the configuration file, or the defaults of the requested
// geometry, and applies the common flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		geometry, err := sensor.ParseGeometry(c.String("geometry"))
		if err != nil {
			return nil, err
		}
		d := config.Default(geometry)
		cfg = &d
	}

	if c.IsSet("seed") {
		cfg.Episode.Seed = c.Uint64("seed")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type summary struct {
	Episodes   int              `json:"episodes"`
	Collisions int              `json:"collisions"`
	MeanScore  float64          `json:"mean_score"`
	BestScore  int              `json:"best_score"`
	MeanTicks  float64          `json:"mean_ticks"`
	Results    []episode.Result `json:"results"`
}

func summarize(results []episode.Result) summary {
	s := summary{Episodes: len(results), Results: results}
	if len(results) == 0 {
		return s
	}
	var score, ticks float64
	for i, res := range results {
		if res.Collided {
			s.Collisions++
		}
		if i == 0 || res.Score > s.BestScore {
			s.BestScore = res.Score
		}
		score += float64(res.Score)
		ticks += float64(res.Ticks)
	}
	s.MeanScore = score / float64(len(results))
	s.MeanTicks = ticks / float64(len(results))
	return s
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
