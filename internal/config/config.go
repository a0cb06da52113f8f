// Package config loads fleetcore settings from an optional YAML file,
// a .env file, and FLEETCORE_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type SimulatorConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`
	FlipProbability float64       `mapstructure:"flipProbability"`
	AnomalyChance   float64       `mapstructure:"anomalyChance"`
	Seed            int64         `mapstructure:"seed"`
}

type DashboardConfig struct {
	// Interval between dashboard rollup log lines emitted by `fleetd run`.
	Interval time.Duration `mapstructure:"interval"`
}

type MetricsConfig struct {
	// Addr is the listen address for the prometheus endpoint. Empty
	// disables the listener.
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads configuration with precedence env > config file > defaults.
// A missing .env or config file is not an error; explicit paths are.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("simulator.enabled", true)
	v.SetDefault("simulator.interval", 30*time.Second)
	v.SetDefault("simulator.flipProbability", 0.10)
	v.SetDefault("simulator.anomalyChance", 0.20)
	v.SetDefault("simulator.seed", 0)
	v.SetDefault("dashboard.interval", 15*time.Second)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix("FLEETCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	} else {
		v.SetConfigName("fleetcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
