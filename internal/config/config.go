package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the fully-resolved CLI configuration: sampling parameters, the
// benchmarked commands, and output/reporting options.
type Config struct {
	Units       []UnitConfig  `mapstructure:"units"`
	WarmupTime  time.Duration `mapstructure:"warmup_time"`
	MaxUnitTime time.Duration `mapstructure:"max_unit_time"`
	Runs        int           `mapstructure:"runs"`
	Shell       string        `mapstructure:"shell"`

	JSONOutput bool `mapstructure:"json_output"`
	YAMLOutput bool `mapstructure:"yaml_output"`
	Dashboard  bool `mapstructure:"dashboard"`

	BaselineFile string  `mapstructure:"baseline"`
	SaveBaseline string  `mapstructure:"save_baseline"`
	Tolerance    float64 `mapstructure:"tolerance"`

	Thresholds []string `mapstructure:"thresholds"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// UnitConfig describes one benchmarked command. Prepare and Teardown run
// once around the unit's sampling phase and are not timed.
type UnitConfig struct {
	Name     string `mapstructure:"name"`
	Command  string `mapstructure:"command"`
	Prepare  string `mapstructure:"prepare"`
	Teardown string `mapstructure:"teardown"`
}

// TracingConfig controls OTLP span export for benchmark runs.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Validate checks the configuration for consistency before a run.
func (c *Config) Validate() error {
	if len(c.Units) == 0 {
		return fmt.Errorf("no units configured: pass commands as arguments or configure a units list")
	}
	seen := make(map[string]struct{}, len(c.Units))
	for i, u := range c.Units {
		if strings.TrimSpace(u.Command) == "" {
			return fmt.Errorf("unit[%d] (%s): command must not be empty", i, u.Name)
		}
		if u.Name == "" {
			return fmt.Errorf("unit[%d]: name must not be empty", i)
		}
		seen[u.Name] = struct{}{}
	}
	_ = seen // names need not be unique; they identify units only in reports

	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Runs)
	}
	if c.MaxUnitTime <= 0 {
		return fmt.Errorf("max-unit-time must be positive, got %s", c.MaxUnitTime)
	}
	if c.WarmupTime < 0 {
		return fmt.Errorf("warmup-time must not be negative, got %s", c.WarmupTime)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", c.Tolerance)
	}
	if c.JSONOutput && c.YAMLOutput {
		return fmt.Errorf("json-output and yaml-output are mutually exclusive")
	}
	if c.Dashboard && (c.JSONOutput || c.YAMLOutput) {
		return fmt.Errorf("dashboard cannot be combined with machine-readable output")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate)
	}
	if p := strings.ToLower(c.Tracing.Protocol); p != "" && p != "grpc" && p != "http" {
		return fmt.Errorf("tracing protocol must be \"grpc\" or \"http\", got %q", c.Tracing.Protocol)
	}
	return nil
}
