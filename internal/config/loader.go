package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Positional arguments become ad-hoc units named after their command;
// explicitly-set flags override config file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		WarmupTime:  50 * time.Millisecond,
		MaxUnitTime: 5 * time.Second,
		Runs:        10,
		Shell:       "/bin/sh",
		Tolerance:   5.0,
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:  configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	for _, arg := range flagSet.Args() {
		command := strings.TrimSpace(arg)
		if command == "" {
			continue
		}
		cfg.Units = append(cfg.Units, UnitConfig{Name: command, Command: command})
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "warmup_time", "warmup-time"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("warmup_time: %w", err)
		}
		cfg.WarmupTime = val
	}

	if raw, ok := lookupSetting(settings, "max_unit_time", "max-unit-time"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("max_unit_time: %w", err)
		}
		cfg.MaxUnitTime = val
	}

	if raw, ok := lookupSetting(settings, "runs"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		cfg.Runs = val
	}

	if raw, ok := lookupSetting(settings, "shell"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("shell: %w", err)
		}
		if val != "" {
			cfg.Shell = val
		}
	}

	if raw, ok := lookupSetting(settings, "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "yaml_output", "yaml-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("yaml_output: %w", err)
		}
		cfg.YAMLOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "baseline"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		cfg.BaselineFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "save_baseline", "save-baseline"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("save_baseline: %w", err)
		}
		cfg.SaveBaseline = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "tolerance"); ok {
		val, err := asFloat(raw)
		if err != nil {
			return fmt.Errorf("tolerance: %w", err)
		}
		cfg.Tolerance = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "units"); ok {
		units, err := parseUnits(raw)
		if err != nil {
			return fmt.Errorf("units: %w", err)
		}
		cfg.Units = units
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := parseTracing(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func parseUnits(raw interface{}) ([]UnitConfig, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	units := make([]UnitConfig, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unit[%d]: expected a mapping, got %T", i, item)
		}
		var u UnitConfig
		if raw, ok := lookupSetting(entry, "name"); ok {
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("unit[%d] name: %w", i, err)
			}
			u.Name = val
		}
		if raw, ok := lookupSetting(entry, "command"); ok {
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("unit[%d] command: %w", i, err)
			}
			u.Command = val
		}
		if raw, ok := lookupSetting(entry, "prepare"); ok {
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("unit[%d] prepare: %w", i, err)
			}
			u.Prepare = val
		}
		if raw, ok := lookupSetting(entry, "teardown"); ok {
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("unit[%d] teardown: %w", i, err)
			}
			u.Teardown = val
		}
		if u.Name == "" {
			u.Name = u.Command
		}
		units = append(units, u)
	}
	return units, nil
}

func parseTracing(tc *TracingConfig, raw interface{}) error {
	entry, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected a mapping, got %T", raw)
	}
	if raw, ok := lookupSetting(entry, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("enabled: %w", err)
		}
		tc.Enabled = val
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			tc.Protocol = val
		}
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := lookupSetting(entry, "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		tc.ServiceName = val
	}
	if raw, ok := lookupSetting(entry, "sample_rate", "sample-rate"); ok {
		val, err := asFloat(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	return nil
}

// applyFlagOverrides applies explicitly-set flags over file settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	assign := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	assign("warmup-time", func() error {
		d, e := flags.GetDuration("warmup-time")
		cfg.WarmupTime = d
		return e
	})
	assign("max-unit-time", func() error {
		d, e := flags.GetDuration("max-unit-time")
		cfg.MaxUnitTime = d
		return e
	})
	assign("runs", func() error {
		n, e := flags.GetInt("runs")
		cfg.Runs = n
		return e
	})
	assign("shell", func() error {
		s, e := flags.GetString("shell")
		cfg.Shell = s
		return e
	})
	assign("json-output", func() error {
		b, e := flags.GetBool("json-output")
		cfg.JSONOutput = b
		return e
	})
	assign("yaml-output", func() error {
		b, e := flags.GetBool("yaml-output")
		cfg.YAMLOutput = b
		return e
	})
	assign("dashboard", func() error {
		b, e := flags.GetBool("dashboard")
		cfg.Dashboard = b
		return e
	})
	assign("baseline", func() error {
		s, e := flags.GetString("baseline")
		cfg.BaselineFile = s
		return e
	})
	assign("save-baseline", func() error {
		s, e := flags.GetString("save-baseline")
		cfg.SaveBaseline = s
		return e
	})
	assign("tolerance", func() error {
		f, e := flags.GetFloat64("tolerance")
		cfg.Tolerance = f
		return e
	})
	assign("threshold", func() error {
		ts, e := flags.GetStringSlice("threshold")
		cfg.Thresholds = ts
		return e
	})
	assign("trace", func() error {
		b, e := flags.GetBool("trace")
		cfg.Tracing.Enabled = b
		return e
	})
	assign("trace-endpoint", func() error {
		s, e := flags.GetString("trace-endpoint")
		cfg.Tracing.Endpoint = s
		return e
	})
	assign("trace-protocol", func() error {
		s, e := flags.GetString("trace-protocol")
		cfg.Tracing.Protocol = s
		return e
	})
	assign("trace-insecure", func() error {
		b, e := flags.GetBool("trace-insecure")
		cfg.Tracing.Insecure = b
		return e
	})
	assign("trace-service-name", func() error {
		s, e := flags.GetString("trace-service-name")
		cfg.Tracing.ServiceName = s
		return e
	})
	assign("trace-sample-rate", func() error {
		f, e := flags.GetFloat64("trace-sample-rate")
		cfg.Tracing.SampleRate = f
		return e
	})

	return err
}
