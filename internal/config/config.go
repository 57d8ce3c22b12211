// Package config provides configuration loading and management for costplan.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. COSTPLAN_SEARCH_WORKERS.
const EnvPrefix = "COSTPLAN"

// Config is the root configuration.
type Config struct {
	Search  Search  `json:"search"  mapstructure:"search"`
	History History `json:"history" mapstructure:"history"`
}

// Search tunes the planner.
type Search struct {
	Heuristic       string        `json:"heuristic"               mapstructure:"heuristic"`
	SwitchThreshold int           `json:"switch_threshold"        mapstructure:"switch_threshold"`
	PruneThreshold  int           `json:"prune_threshold"         mapstructure:"prune_threshold"`
	Workers         int           `json:"workers"                 mapstructure:"workers"`
	MaxSteps        int           `json:"max_steps,omitempty"     mapstructure:"max_steps"`
	StepFactor      float64       `json:"step_factor,omitempty"   mapstructure:"step_factor"`
	Timeout         time.Duration `json:"timeout,omitempty"       mapstructure:"timeout"`
}

// History controls the persisted plan history.
type History struct {
	Enabled  bool `json:"enabled"             mapstructure:"enabled"`
	KeepLast int  `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int  `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Search: Search{
			Heuristic:       "switching",
			SwitchThreshold: 20,
			PruneThreshold:  50,
			Workers:         1,
			StepFactor:      2,
		},
		History: History{Enabled: true},
	}
}

// Load reads the config file at path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := ValidateSettings(settings(v)); err != nil {
		return Config{}, err
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("search.heuristic", d.Search.Heuristic)
	v.SetDefault("search.switch_threshold", d.Search.SwitchThreshold)
	v.SetDefault("search.prune_threshold", d.Search.PruneThreshold)
	v.SetDefault("search.workers", d.Search.Workers)
	v.SetDefault("search.max_steps", d.Search.MaxSteps)
	v.SetDefault("search.step_factor", d.Search.StepFactor)
	v.SetDefault("search.timeout", d.Search.Timeout.String())
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.keep_last", d.History.KeepLast)
	v.SetDefault("history.keep_days", d.History.KeepDays)
}

// settings collects every known key, so environment overrides are
// validated together with the file.
func settings(v *viper.Viper) map[string]any {
	search := map[string]any{
		"heuristic":        v.GetString("search.heuristic"),
		"switch_threshold": v.GetInt("search.switch_threshold"),
		"prune_threshold":  v.GetInt("search.prune_threshold"),
		"workers":          v.GetInt("search.workers"),
		"max_steps":        v.GetInt("search.max_steps"),
		"step_factor":      v.GetFloat64("search.step_factor"),
		"timeout":          v.GetString("search.timeout"),
	}
	history := map[string]any{
		"enabled":   v.GetBool("history.enabled"),
		"keep_last": v.GetInt("history.keep_last"),
		"keep_days": v.GetInt("history.keep_days"),
	}
	return map[string]any{"search": search, "history": history}
}
