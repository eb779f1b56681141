// Package config loads runtime settings from TOML.
//
//	[log]
//	level = "debug"
//
//	[engine]
//	workers = 4
//	link = "[eth]"
//
//	[[plugins]]
//	name = "dns"
//	path = "dns.wasm"
//	hints = ["udp"]
//
//	[options]
//	udp.ports = [53]
//
// Keys missing from the file keep the values of Default.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/dissect-runtime/dissector"
	"github.com/wippyai/dissect-runtime/errors"
	"github.com/wippyai/dissect-runtime/layer"
	"github.com/wippyai/dissect-runtime/variant"
)

// DefaultLink is the id of root layers when none is configured.
const DefaultLink = "[eth]"

// Config is the runtime configuration.
type Config struct {
	Options variant.Variant
	Log     Log
	Plugins []Plugin
	Engine  Engine
}

// Log configures the zap logger.
type Log struct {
	Level       string
	Development bool
}

// Engine configures packet dissection.
type Engine struct {
	Link        string
	Workers     int
	MaxDepth    int
	StopOnError bool
}

// Plugin describes a WebAssembly dissector.
type Plugin struct {
	Name             string
	Path             string
	Hints            []string
	MemoryLimitPages uint32
}

type fileConfig struct {
	Log struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
	} `toml:"log"`
	Engine struct {
		Link        string `toml:"link"`
		Workers     int    `toml:"workers"`
		MaxDepth    int    `toml:"max_depth"`
		StopOnError bool   `toml:"stop_on_error"`
	} `toml:"engine"`
	Plugins []struct {
		Name             string   `toml:"name"`
		Path             string   `toml:"path"`
		Hints            []string `toml:"hints"`
		MemoryLimitPages uint32   `toml:"memory_limit_pages"`
	} `toml:"plugins"`
	Options map[string]any `toml:"options"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     Log{Level: "info"},
		Engine:  Engine{Link: DefaultLink, Workers: 1, MaxDepth: layer.MaxDepth},
		Options: variant.Map(nil),
	}
}

// Load reads a TOML file.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Config("load "+path, err)
	}
	return build(raw, meta)
}

// Parse reads TOML from a string.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, errors.Config("parse config", err)
	}
	return build(raw, meta)
}

func build(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			if len(k) > 0 && k[0] == "options" {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return Config{}, errors.Config("unknown keys: "+strings.Join(keys, ", "), nil)
		}
	}

	cfg := Default()

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "development") {
		cfg.Log.Development = raw.Log.Development
	}

	if meta.IsDefined("engine", "link") {
		cfg.Engine.Link = strings.TrimSpace(raw.Engine.Link)
	}
	if meta.IsDefined("engine", "workers") {
		cfg.Engine.Workers = raw.Engine.Workers
	}
	if meta.IsDefined("engine", "max_depth") {
		cfg.Engine.MaxDepth = raw.Engine.MaxDepth
	}
	if meta.IsDefined("engine", "stop_on_error") {
		cfg.Engine.StopOnError = raw.Engine.StopOnError
	}

	for _, p := range raw.Plugins {
		cfg.Plugins = append(cfg.Plugins, Plugin{
			Name:             strings.TrimSpace(p.Name),
			Path:             strings.TrimSpace(p.Path),
			Hints:            p.Hints,
			MemoryLimitPages: p.MemoryLimitPages,
		})
	}

	if raw.Options != nil {
		v, ok := variant.From(raw.Options)
		if !ok {
			return Config{}, errors.Config("options hold values with no variant form", nil)
		}
		cfg.Options = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and plugin entries.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Config("log.level", err)
	}
	switch {
	case c.Engine.Link == "":
		return errors.Config("engine.link must not be empty", nil)
	case c.Engine.Workers < 1:
		return errors.Config(fmt.Sprintf("engine.workers must be positive, got %d", c.Engine.Workers), nil)
	case c.Engine.MaxDepth < 1:
		return errors.Config(fmt.Sprintf("engine.max_depth must be positive, got %d", c.Engine.MaxDepth), nil)
	}

	seen := make(map[string]bool, len(c.Plugins))
	for i, p := range c.Plugins {
		switch {
		case p.Name == "":
			return errors.Config(fmt.Sprintf("plugins[%d].name is required", i), nil)
		case p.Path == "":
			return errors.Config(fmt.Sprintf("plugin %s: path is required", p.Name), nil)
		case len(p.Hints) == 0:
			return errors.Config(fmt.Sprintf("plugin %s: hints are required", p.Name), nil)
		case seen[p.Name]:
			return errors.Config(fmt.Sprintf("plugin %s declared twice", p.Name), nil)
		}
		seen[p.Name] = true
	}
	return nil
}

// Dissector returns the engine settings.
func (c Config) Dissector() dissector.Config {
	return dissector.Config{
		Options:     c.Options,
		Workers:     c.Engine.Workers,
		MaxDepth:    c.Engine.MaxDepth,
		StopOnError: c.Engine.StopOnError,
	}
}

// Build creates the logger described by l.
func (l Log) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Config("log.level", err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
