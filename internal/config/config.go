// Package config loads server configuration via viper, binding
// FIGGIE_-prefixed environment variables over the defaults in spec.md §6.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable constant the engine, round controller, and
// transport layer need at startup.
type Config struct {
	HTTPAddr string
	WSAddr   string

	StartingBalance int
	Ante            int
	PotSeed         int

	RoundDuration time.Duration
	RoundsPerGame int
	PauseDuration time.Duration

	RateLimitPerSecond int
}

// Load reads defaults, then a config file named "figgie" (if present on
// the search path), then FIGGIE_-prefixed environment variables, in
// increasing priority.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", "0.0.0.0:8080")
	v.SetDefault("ws_addr", "0.0.0.0:8081")
	v.SetDefault("starting_balance", 500)
	v.SetDefault("ante", 50)
	v.SetDefault("pot_seed", 200)
	v.SetDefault("round_duration_seconds", 180)
	v.SetDefault("rounds_per_game", 4)
	v.SetDefault("pause_seconds", 15)
	v.SetDefault("rate_limit_per_second", 10)

	v.SetConfigName("figgie")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/figgie")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("FIGGIE")
	v.AutomaticEnv()

	return Config{
		HTTPAddr:           v.GetString("http_addr"),
		WSAddr:             v.GetString("ws_addr"),
		StartingBalance:    v.GetInt("starting_balance"),
		Ante:               v.GetInt("ante"),
		PotSeed:            v.GetInt("pot_seed"),
		RoundDuration:      time.Duration(v.GetInt("round_duration_seconds")) * time.Second,
		RoundsPerGame:      v.GetInt("rounds_per_game"),
		PauseDuration:      time.Duration(v.GetInt("pause_seconds")) * time.Second,
		RateLimitPerSecond: v.GetInt("rate_limit_per_second"),
	}, nil
}
