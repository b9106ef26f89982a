// Package config loads the optional funcmap CLI configuration file.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds CLI settings. Zero values mean "use the default".
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Render   RenderConfig   `toml:"render"`
}

// AnalysisConfig controls recovery.
type AnalysisConfig struct {
	MaxFuncs int      `toml:"max_funcs"` // cap on explored functions; 0 = all
	Jobs     int      `toml:"jobs"`      // batch parallelism; 0 = GOMAXPROCS
	Entries  []string `toml:"entries"`   // extra entry points, hex addresses
}

// RenderConfig controls DOT output.
type RenderConfig struct {
	Dir   string `toml:"dir"`
	Title string `toml:"title"`
	SVG   bool   `toml:"svg"` // also run graphviz dot
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Render: RenderConfig{Dir: "render", Title: "funcmap"},
	}
}

// Load reads a TOML config file, layered over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown key %q", path, undec[0].String())
	}
	if cfg.Analysis.MaxFuncs < 0 {
		return Config{}, fmt.Errorf("config: %s: max_funcs must be >= 0", path)
	}
	if cfg.Analysis.Jobs < 0 {
		return Config{}, fmt.Errorf("config: %s: jobs must be >= 0", path)
	}
	return cfg, nil
}
