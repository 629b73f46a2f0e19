// Package config loads greeble settings: defaults, then a YAML file, then
// GREEBLE_* environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("greeble.yaml").
//	    Load()
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chazu/greeble/pkg/engine"
	"github.com/chazu/greeble/pkg/feature"
	"github.com/chazu/greeble/pkg/kernel/sdfx"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/scene"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full set of greeble settings.
type Config struct {
	Log    LogConfig    `yaml:"log" json:"log" env:"LOG"`
	Engine EngineConfig `yaml:"engine" json:"engine" env:"ENGINE"`
	Scene  SceneConfig  `yaml:"scene" json:"scene" env:"SCENE"`
	Export ExportConfig `yaml:"export" json:"export" env:"EXPORT"`

	// Features holds starting parameter values per kind, e.g.
	// features: {dial: {needlePos: 0.3}}.
	Features map[string]map[string]float64 `yaml:"features" json:"features"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	// debug, info, warn or error
	Level string `yaml:"level" json:"level" env:"LEVEL"`
	// json or console
	Format      string   `yaml:"format" json:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" json:"output_paths" env:"OUTPUT_PATHS"`
}

// EngineConfig tunes script evaluation.
type EngineConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
}

// SceneConfig sets what new hole panels are filled with.
type SceneConfig struct {
	HoleKind string `yaml:"hole_kind" json:"hole_kind" env:"HOLE_KIND"`
}

// ExportConfig sets where and how meshes are written.
type ExportConfig struct {
	Format string `yaml:"format" json:"format" env:"FORMAT"`
	Dir    string `yaml:"dir" json:"dir" env:"DIR"`
	// xy, xz or zy; DXF only
	Plane string `yaml:"plane" json:"plane" env:"PLANE"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Engine: EngineConfig{Timeout: engine.EvalTimeout},
		Scene:  SceneConfig{HoleKind: panel.KindBevel.String()},
		Export: ExportConfig{Format: string(sdfx.FormatSTL), Dir: ".", Plane: "xy"},
	}
}

var planes = map[string]sdfx.Plane{
	"xy": sdfx.PlaneXY,
	"xz": sdfx.PlaneXZ,
	"zy": sdfx.PlaneZY,
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("%w: engine timeout %s", ErrInvalid, c.Engine.Timeout)
	}
	if _, err := panel.ParseKind(c.Scene.HoleKind); err != nil {
		return fmt.Errorf("%w: scene hole kind: %v", ErrInvalid, err)
	}
	if _, err := sdfx.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("%w: export format: %v", ErrInvalid, err)
	}
	if _, ok := planes[c.Export.Plane]; !ok {
		return fmt.Errorf("%w: export plane %q", ErrInvalid, c.Export.Plane)
	}
	_, err := c.featureParams()
	return err
}

// featureParams checks Features against the generators' declarations.
func (c *Config) featureParams() (map[panel.Kind]map[string]float64, error) {
	out := make(map[panel.Kind]map[string]float64, len(c.Features))
	for name, vals := range c.Features {
		k, err := panel.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: features: %v", ErrInvalid, err)
		}
		list, err := feature.Params(k)
		if err != nil {
			return nil, fmt.Errorf("%w: features: %v", ErrInvalid, err)
		}
		for p := range vals {
			if _, ok := list.Lookup(p); !ok {
				return nil, fmt.Errorf("%w: features: %s has no parameter %q (have %s)",
					ErrInvalid, k, p, strings.Join(list.Names(), ", "))
			}
		}
		out[k] = vals
	}
	return out, nil
}

// FeatureOptions turns Scene and Features into generator options.
func (c *Config) FeatureOptions() ([]feature.Option, error) {
	k, err := panel.ParseKind(c.Scene.HoleKind)
	if err != nil {
		return nil, fmt.Errorf("%w: scene hole kind: %v", ErrInvalid, err)
	}
	byKind, err := c.featureParams()
	if err != nil {
		return nil, err
	}
	opts := []feature.Option{feature.WithHoleKind(k)}

	kinds := make([]panel.Kind, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		opts = append(opts, feature.WithParams(k, byKind[k]))
	}
	return opts, nil
}

// EngineOptions builds the engine options for c, logging through log.
func (c *Config) EngineOptions(log *zap.Logger) ([]engine.Option, error) {
	fopts, err := c.FeatureOptions()
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithLogger(log),
		engine.WithTimeout(c.Engine.Timeout),
		engine.WithSceneOptions(scene.WithFeatureOptions(fopts...)),
	}, nil
}

// ParsedFormat returns the export format.
func (e ExportConfig) ParsedFormat() (sdfx.Format, error) {
	return sdfx.ParseFormat(e.Format)
}

// ParsedPlane returns the DXF layout plane, PlaneXY if unset.
func (e ExportConfig) ParsedPlane() sdfx.Plane {
	return planes[e.Plane]
}

// Build constructs the logger described by l.
func (l LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %v", ErrInvalid, err)
	}

	var enc zapcore.EncoderConfig
	if l.Format == "console" {
		enc = zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		enc = zap.NewProductionEncoderConfig()
		enc.TimeKey = "timestamp"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	paths := l.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      l.Format == "console",
		Encoding:         l.Format,
		EncoderConfig:    enc,
		OutputPaths:      paths,
		ErrorOutputPaths: []string{"stderr"},
	}
	return zc.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}
