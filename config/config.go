// Package config reads testbench settings from .env files and the
// environment.
//
// The recognized variables are:
//
//	TB_LOG_LEVEL     debug, info, warning, error or fatal (default warning)
//	TB_SEED          seed of the random sources (default: time based)
//	TB_RECORD        path of a SQLite trace file, or "1" for a generated name
//	TB_MONITOR_PORT  port of the HTTP monitor, 0 disables it
//	TB_OPEN_BROWSER  open the monitor in a browser when set to true
//
// Values in the environment override values from files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sarchlab/tbsync/logging"
)

// The environment variable names.
const (
	EnvLogLevel    = "TB_LOG_LEVEL"
	EnvSeed        = "TB_SEED"
	EnvRecord      = "TB_RECORD"
	EnvMonitorPort = "TB_MONITOR_PORT"
	EnvOpenBrowser = "TB_OPEN_BROWSER"
)

// ErrInvalidValue is returned when a variable cannot be parsed.
var ErrInvalidValue = errors.New("invalid configuration value")

// Config holds the testbench settings.
type Config struct {
	LogLevel slog.Level

	Seed    int64
	HasSeed bool

	// Record is the trace file path. It is empty when recording is off and
	// AutoRecordName when a generated name is wanted.
	Record string

	MonitorPort int
	OpenBrowser bool
}

// AutoRecordName asks the recorder to generate a file name.
const AutoRecordName = "auto"

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{LogLevel: logging.DefaultLevel}
}

// Load reads the given .env files, skipping the ones that do not exist, and
// then the process environment.
func Load(files ...string) (Config, error) {
	fileValues := map[string]string{}

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}

		values, err := godotenv.Read(f)
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}

		for k, v := range values {
			fileValues[k] = v
		}
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := fileValues[key]

		return v, ok
	})
}

// FromLookup builds a Config from a variable lookup function.
func FromLookup(lookup func(key string) (string, bool)) (Config, error) {
	c := Default()

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		level, known := logging.ParseLevel(v)
		if !known {
			return c, fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvLogLevel, v)
		}

		c.LogLevel = level
	}

	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c, fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvSeed, v)
		}

		c.Seed = seed
		c.HasSeed = true
	}

	if v, ok := lookup(EnvRecord); ok {
		c.Record = parseRecord(v)
	}

	if v, ok := lookup(EnvMonitorPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return c, fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvMonitorPort, v)
		}

		c.MonitorPort = port
	}

	if v, ok := lookup(EnvOpenBrowser); ok && v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvOpenBrowser, v)
		}

		c.OpenBrowser = open
	}

	return c, nil
}

func parseRecord(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return ""
	case "1", "true", "yes", "on", AutoRecordName:
		return AutoRecordName
	default:
		return v
	}
}
