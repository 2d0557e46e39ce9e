// Package config loads the roadsim configuration from YAML or JSON. Every
// field is optional: a document overrides the defaults of its geometry.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/roadsim/internal/core/observability/log"
	"github.com/zeusync/roadsim/internal/core/sensor"
	"github.com/zeusync/roadsim/internal/core/validate"
	"github.com/zeusync/roadsim/internal/episode"
)

var ErrUnknownFormat = errors.New("config: unknown file format")

// Duration reads "250ms"-style strings in both YAML and JSON.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Geometry sensor.Geometry `json:"geometry" yaml:"geometry"`
	Episode  episode.Config  `json:"episode" yaml:"episode"`
	Log      Log             `json:"log" yaml:"log"`
	Server   Server          `json:"server" yaml:"server"`
	Viewer   Viewer          `json:"viewer" yaml:"viewer"`
	Batch    Batch           `json:"batch" yaml:"batch"`
}

type Log struct {
	Level    string   `json:"level" yaml:"level"`
	Encoding string   `json:"encoding" yaml:"encoding"`
	Output   []string `json:"output" yaml:"output"`
}

type Server struct {
	Addr         string   `json:"addr" yaml:"addr"`
	TickInterval Duration `json:"tick_interval" yaml:"tick_interval"`
	// AutoRestart starts the next episode this long after a collision; zero
	// waits for a restart request.
	AutoRestart Duration `json:"auto_restart" yaml:"auto_restart"`
}

type Viewer struct {
	TickInterval Duration `json:"tick_interval" yaml:"tick_interval"`
}

type Batch struct {
	Episodes int    `json:"episodes" yaml:"episodes"`
	Workers  int    `json:"workers" yaml:"workers"`
	MaxTicks uint64 `json:"max_ticks" yaml:"max_ticks"`
}

// Default returns the full configuration of the reference simulation for
// geometry, ticking at 60 Hz.
func Default(geometry sensor.Geometry) Config {
	frame := Duration(time.Second / 60)
	return Config{
		Geometry: geometry,
		Episode:  episode.DefaultConfig(geometry),
		Log:      Log{Level: "info", Encoding: "console", Output: []string{"stderr"}},
		Server:   Server{Addr: ":8080", TickInterval: frame},
		Viewer:   Viewer{TickInterval: frame},
		Batch:    Batch{Episodes: 16, Workers: 4, MaxTicks: 10000},
	}
}

func (c *Config) Validate() error {
	if c.Episode.Sim.Geometry() != c.Geometry {
		return validate.Fail("episode.sim.sensor.geometry", "%s does not match geometry %s", c.Episode.Sim.Geometry(), c.Geometry)
	}
	if err := c.Episode.Validate(); err != nil {
		return validate.Prefix("episode", err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return validate.Fail("log.level", "%v", err)
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return validate.Fail("log.encoding", "must be json or console, got %q", c.Log.Encoding)
	}
	if c.Server.Addr == "" {
		return validate.Fail("server.addr", "must not be empty")
	}
	if err := validate.First(
		validate.Positive("server.tick_interval", float64(c.Server.TickInterval)),
		validate.NonNegative("server.auto_restart", float64(c.Server.AutoRestart)),
		validate.Positive("viewer.tick_interval", float64(c.Viewer.TickInterval)),
	); err != nil {
		return err
	}
	if c.Batch.Episodes < 1 {
		return validate.Fail("batch.episodes", "must be at least 1, got %d", c.Batch.Episodes)
	}
	if c.Batch.Workers < 0 {
		return validate.Fail("batch.workers", "must not be negative, got %d", c.Batch.Workers)
	}
	return nil
}

// LogOptions converts the log section for log.New.
func (c *Config) LogOptions() log.Options {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.LevelInfo
	}
	return log.Options{Level: level, Encoding: c.Log.Encoding, OutputPaths: c.Log.Output}
}

type decodeFunc func(data []byte, v any) error

// LoadYAML reads a YAML document over the defaults of its geometry.
func LoadYAML(r io.Reader) (*Config, error) {
	return load(r, yaml.Unmarshal)
}

// LoadJSON reads a JSON document over the defaults of its geometry.
func LoadJSON(r io.Reader) (*Config, error) {
	return load(r, json.Unmarshal)
}

// Load picks the decoder from the file extension.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

func load(r io.Reader, decode decodeFunc) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// The geometry selects the defaults the rest of the document overrides.
	head := struct {
		Geometry sensor.Geometry `json:"geometry" yaml:"geometry"`
	}{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := decode(data, &head); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	c := Default(head.Geometry)
	if len(bytes.TrimSpace(data)) > 0 {
		if err := decode(data, &c); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	c.Geometry = head.Geometry
	c.Episode.Sim.Sensor.Geometry = head.Geometry
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
