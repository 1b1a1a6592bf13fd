// Package config loads runner settings from the environment and builds the
// process logger from them.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/marshal"
)

// Runner configures a scene run. Command-line flags override these values.
type Runner struct {
	LogLevel  string `env:"SCRIPTLIB_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SCRIPTLIB_LOG_FORMAT" envDefault:"console"`

	// Frames is the number of frames a headless run simulates.
	Frames int `env:"SCRIPTLIB_FRAMES" envDefault:"600"`

	// Timestep is the fixed frame time.
	Timestep time.Duration `env:"SCRIPTLIB_TIMESTEP" envDefault:"16ms"`

	WasmMemoryPages uint32 `env:"SCRIPTLIB_WASM_MEMORY_PAGES" envDefault:"256"`
	StringEncoding  string `env:"SCRIPTLIB_STRING_ENCODING" envDefault:"utf-8"`

	// Trace prints a span summary for every frame.
	Trace bool `env:"SCRIPTLIB_TRACE"`
}

// Load parses the environment into a Runner and validates it.
func Load() (Runner, error) {
	var cfg Runner
	if err := env.Parse(&cfg); err != nil {
		return Runner{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Runner{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Runner) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidEnum, err, "log level")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return errors.InvalidEnum(errors.PhaseConfig, c.LogFormat, "log format")
	}
	if c.Frames < 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("frames must not be negative, got %d", c.Frames))
	}
	if c.Timestep <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("timestep must be positive, got %s", c.Timestep))
	}
	if _, err := marshal.ParseEncoding(c.StringEncoding); err != nil {
		return err
	}
	return nil
}

// Encoding returns the configured guest string encoding.
func (c Runner) Encoding() marshal.Encoding {
	enc, err := marshal.ParseEncoding(c.StringEncoding)
	if err != nil {
		return marshal.UTF8
	}
	return enc
}

// DT returns the timestep in seconds.
func (c Runner) DT() float32 {
	return float32(c.Timestep.Seconds())
}

// NewLogger builds a zap logger writing to stderr at the configured level and
// format.
func NewLogger(c Runner) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidEnum, err, "log level")
	}

	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return l, nil
}
