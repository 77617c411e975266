// Package config loads server settings from traffic.cfg.json and TRAFFIC_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/cxd309/traffic-sim/internal/journal"
	"github.com/cxd309/traffic-sim/internal/mapgen"
	"github.com/cxd309/traffic-sim/internal/vehicle"
)

const (
	// FileName is the config file looked up in the config directory.
	FileName  = "traffic.cfg.json"
	envPrefix = "TRAFFIC"
)

// ErrInvalid reports a configuration value out of range.
var ErrInvalid = errors.New("invalid configuration")

// SimConfig holds world and loop settings.
type SimConfig struct {
	TickInterval time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	SpawnDelay   int           `json:"spawnDelay" mapstructure:"spawnDelay"`
	MaxVehicles  int           `json:"maxVehicles" mapstructure:"maxVehicles"`
	Seed         uint64        `json:"seed" mapstructure:"seed"`
	TimeOfDay    int           `json:"timeOfDay" mapstructure:"timeOfDay"`
	Weather      string        `json:"weather" mapstructure:"weather"`
}

// StreamConfig holds the presentation feed settings.
type StreamConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	Addr          string        `json:"addr" mapstructure:"addr"`
	FrameInterval time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
}

// JournalConfig holds trip journal settings.
type JournalConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Driver    string `json:"driver" mapstructure:"driver"`
	DSN       string `json:"dsn" mapstructure:"dsn"`
	BatchSize int    `json:"batchSize" mapstructure:"batchSize"`
}

// Config is the complete server configuration.
type Config struct {
	LogLevel string        `json:"logLevel" mapstructure:"logLevel"`
	LogsDir  string        `json:"logsDir" mapstructure:"logsDir"`
	Sim      SimConfig     `json:"sim" mapstructure:"sim"`
	Map      mapgen.Params `json:"map" mapstructure:"map"`
	Stream   StreamConfig  `json:"stream" mapstructure:"stream"`
	Journal  JournalConfig `json:"journal" mapstructure:"journal"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "./logs")

	v.SetDefault("sim.tickInterval", "20ms")
	v.SetDefault("sim.spawnDelay", 5)
	v.SetDefault("sim.maxVehicles", 500)
	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.timeOfDay", vehicle.DefaultTimeOfDay)
	v.SetDefault("sim.weather", "sunshine")

	v.SetDefault("map.width", mapgen.DefaultParams.Width)
	v.SetDefault("map.height", mapgen.DefaultParams.Height)
	v.SetDefault("map.density", mapgen.DefaultParams.Density)
	v.SetDefault("map.maxLength", mapgen.DefaultParams.MaxLength)
	v.SetDefault("map.passes", mapgen.DefaultParams.Passes)

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.addr", ":8080")
	v.SetDefault("stream.frameInterval", "50ms")

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.driver", journal.DriverSQLite)
	v.SetDefault("journal.dsn", "file::memory:?cache=shared")
	v.SetDefault("journal.batchSize", 100)
}

// Load reads configuration from FileName in configDir, applies environment
// overrides and validates the result. A missing file leaves the defaults.
func Load(configDir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("logLevel %q: %w", c.LogLevel, ErrInvalid)
	}
	if c.Sim.TickInterval <= 0 {
		return fmt.Errorf("sim.tickInterval %s: %w", c.Sim.TickInterval, ErrInvalid)
	}
	if c.Sim.SpawnDelay < 0 {
		return fmt.Errorf("sim.spawnDelay %d: %w", c.Sim.SpawnDelay, ErrInvalid)
	}
	if c.Sim.MaxVehicles < 0 {
		return fmt.Errorf("sim.maxVehicles %d: %w", c.Sim.MaxVehicles, ErrInvalid)
	}
	if c.Sim.TimeOfDay < 0 || c.Sim.TimeOfDay > 23 {
		return fmt.Errorf("sim.timeOfDay %d: %w", c.Sim.TimeOfDay, ErrInvalid)
	}
	if _, err := vehicle.ParseWeather(c.Sim.Weather); err != nil {
		return fmt.Errorf("sim.weather %q: %w", c.Sim.Weather, ErrInvalid)
	}
	if err := c.Map.Validate(); err != nil {
		return fmt.Errorf("map: %w: %w", err, ErrInvalid)
	}
	if c.Stream.Enabled && c.Stream.FrameInterval <= 0 {
		return fmt.Errorf("stream.frameInterval %s: %w", c.Stream.FrameInterval, ErrInvalid)
	}
	if c.Journal.Enabled {
		switch c.Journal.Driver {
		case journal.DriverSQLite, journal.DriverPostgres:
		default:
			return fmt.Errorf("journal.driver %q: %w", c.Journal.Driver, ErrInvalid)
		}
		if c.Journal.BatchSize <= 0 {
			return fmt.Errorf("journal.batchSize %d: %w", c.Journal.BatchSize, ErrInvalid)
		}
	}
	return nil
}

// ParsedWeather returns the starting weather, sunshine if unparseable.
func (c SimConfig) ParsedWeather() vehicle.Weather {
	w, err := vehicle.ParseWeather(c.Weather)
	if err != nil {
		return vehicle.Sunshine
	}
	return w
}
