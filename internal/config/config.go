// Package config loads runtime configuration for the orb engine from a YAML
// file, ORBS_* environment variables and compiled defaults, in increasing
// order of priority.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/signalsfoundry/memory-orbs/core"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
	"github.com/signalsfoundry/memory-orbs/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
	// AllowedOrigins lists CORS origins; empty disables CORS.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

// ViewportConfig is the initial viewport used before a renderer reports
// its real size.
type ViewportConfig struct {
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`
}

// CaptionConfig tunes the captioning pipeline.
type CaptionConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// MaxFailures consecutive failures open the circuit breaker.
	MaxFailures uint32        `yaml:"max_failures" validate:"gt=0"`
	OpenTimeout time.Duration `yaml:"open_timeout" validate:"gt=0"`
	// Delay simulates remote latency in the built-in phrase captioner.
	Delay time.Duration `yaml:"delay" validate:"gte=0"`
}

// Config is the full runtime configuration.
type Config struct {
	Layout    core.Tuning                 `yaml:"layout"`
	Server    ServerConfig                `yaml:"server"`
	Viewport  ViewportConfig              `yaml:"viewport"`
	Caption   CaptionConfig               `yaml:"caption"`
	Tracing   observability.TracingConfig `yaml:"tracing"`
	FrameTick time.Duration               `yaml:"frame_tick" validate:"gt=0"`
	StartMode string                      `yaml:"start_mode" validate:"oneof=sphere gallery"`
	Gravity   bool                        `yaml:"gravity"`
	Seed      bool                        `yaml:"seed"`
}

// Default returns the compiled defaults.
func Default() *Config {
	return &Config{
		Layout: core.DefaultTuning(),
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Viewport: ViewportConfig{Width: 1280, Height: 800},
		Caption: CaptionConfig{
			Timeout:     8 * time.Second,
			MaxFailures: 3,
			OpenTimeout: 30 * time.Second,
			Delay:       1500 * time.Millisecond,
		},
		Tracing:   observability.DefaultTracingConfig(),
		FrameTick: 16 * time.Millisecond,
		StartMode: model.ViewSphere.String(),
		Gravity:   false,
		Seed:      true,
	}
}

// Tuning returns the layout constants handed to the scene.
func (c *Config) Tuning() core.Tuning {
	return c.Layout
}

// Mode returns the configured start mode.
func (c *Config) Mode() model.ViewMode {
	m, ok := model.ParseViewMode(c.StartMode)
	if !ok {
		return model.ViewSphere
	}
	return m
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Load builds a Config from defaults, the optional YAML file at path and
// the environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config %q: %w", path, err)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// applyEnv overlays ORBS_* variables. Unparseable values are errors rather
// than silently ignored.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}
	flt := func(key string, dst *float64) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
		return nil
	}
	boolean := func(key string, dst *bool) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("ORBS_SERVER_ADDR", &cfg.Server.Addr)
	str("ORBS_START_MODE", &cfg.StartMode)
	str("ORBS_TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)
	str("ORBS_TRACING_EXPORTER", &cfg.Tracing.Exporter)
	str("ORBS_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)

	return errors.Join(
		dur("ORBS_FRAME_TICK", &cfg.FrameTick),
		dur("ORBS_CAPTION_TIMEOUT", &cfg.Caption.Timeout),
		dur("ORBS_CAPTION_DELAY", &cfg.Caption.Delay),
		flt("ORBS_DRAG_SENSITIVITY", &cfg.Layout.DragSensitivity),
		flt("ORBS_ZOOM_MIN", &cfg.Layout.ZoomMin),
		flt("ORBS_ZOOM_MAX", &cfg.Layout.ZoomMax),
		boolean("ORBS_GRAVITY", &cfg.Gravity),
		boolean("ORBS_SEED", &cfg.Seed),
		boolean("ORBS_TRACING_ENABLED", &cfg.Tracing.Enabled),
		flt("ORBS_TRACING_SAMPLE_RATIO", &cfg.Tracing.SampleRatio),
	)
}
