// Package config provides Viper-based configuration loading for the combat
// simulator.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/conquest/internal/simulation"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds the Monte Carlo run settings.
type SimulationConfig struct {
	// Iterations is the number of trials per run.
	Iterations int `mapstructure:"iterations"`
	// Seed selects the reproducible dice source; nil draws unseeded dice.
	Seed *uint32 `mapstructure:"seed"`
	// RecordPhaseDetails enables the per-phase breakdown in results.
	RecordPhaseDetails bool `mapstructure:"record_phase_details"`
	// Parallelism caps the number of scenarios run concurrently.
	Parallelism int `mapstructure:"parallelism"`
}

// Simulation returns the orchestrator configuration for these settings.
func (s SimulationConfig) Simulation() simulation.Config {
	cfg := simulation.Config{
		Iterations:         s.Iterations,
		RecordPhaseDetails: s.RecordPhaseDetails,
	}
	if s.Seed != nil {
		seed := *s.Seed
		cfg.Seed = &seed
	}
	return cfg
}

// ScriptingConfig holds Lua rule script settings.
type ScriptingConfig struct {
	// RuleDir is the directory of *.lua rule scripts; empty disables scripting.
	RuleDir string `mapstructure:"rule_dir"`
	// InstructionLimit caps the opcodes per script load or hook call; 0 uses
	// the scripting package default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// UnitsConfig locates the YAML unit profiles.
type UnitsConfig struct {
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls how results are rendered.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Units      UnitsConfig      `mapstructure:"units"`
	Output     OutputConfig     `mapstructure:"output"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if c.Units.Dir == "" {
		errs = append(errs, "units.dir must not be empty")
	}
	validOutput := map[string]bool{"text": true, "json": true}
	if !validOutput[c.Output.Format] {
		errs = append(errs, fmt.Sprintf("output.format must be one of [text, json], got %q", c.Output.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Iterations < simulation.MinIterations {
		errs = append(errs, fmt.Sprintf("simulation.iterations must be at least %d, got %d", simulation.MinIterations, s.Iterations))
	}
	if s.Iterations > simulation.MaxIterations {
		errs = append(errs, fmt.Sprintf("simulation.iterations cannot exceed %d, got %d", simulation.MaxIterations, s.Iterations))
	}
	if s.Parallelism < 1 {
		errs = append(errs, fmt.Sprintf("simulation.parallelism must be >= 1, got %d", s.Parallelism))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// New returns a Viper instance with defaults and CONQUEST_ environment
// overrides applied but no file read.
func New() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with CONQUEST_ prefix
	v.SetEnvPrefix("CONQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// seed has no default, so it must be bound explicitly to be visible to Unmarshal.
	_ = v.BindEnv("simulation.seed")

	setDefaults(v)
	return v
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and
// environment only.
//
// Precondition: path must be empty or a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("simulation.iterations", simulation.DefaultIterations)
	v.SetDefault("simulation.record_phase_details", false)
	v.SetDefault("simulation.parallelism", 4)

	v.SetDefault("scripting.rule_dir", "")
	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("units.dir", "content/units")

	v.SetDefault("output.format", "text")
}
