package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "microburn [flags] [command ...]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Sampling flags
	flags.DurationP("warmup-time", "w", 50*time.Millisecond, "Warmup window per unit (0 disables warmup)")
	flags.DurationP("max-unit-time", "m", 5*time.Second, "Measured time budget per unit")
	flags.IntP("runs", "r", 10, "Sample windows per unit")
	flags.String("shell", "/bin/sh", "Shell used to run benchmarked commands")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted report")
	flags.Bool("yaml-output", false, "Emit YAML formatted report")
	flags.Bool("dashboard", false, "Show live terminal dashboard during the run")

	// Baseline flags
	flags.String("baseline", "", "Path to a saved report to compare this run against")
	flags.String("save-baseline", "", "Path to save this run's report as a baseline")
	flags.Float64("tolerance", 5.0, "Allowed per-unit rate regression against the baseline, in percent")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance assertion, e.g. 'rate:avg >= 1000' (repeatable)")

	// Tracing flags
	flags.Bool("trace", false, "Export OTLP spans for the run")
	flags.String("trace-endpoint", "", "OTLP endpoint (falls back to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Disable TLS for OTLP export")
	flags.String("trace-service-name", "", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// displayHelp prints usage information for the command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "microburn - micro-benchmark runner for commands")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  microburn [flags] [command ...]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Each positional argument is benchmarked as one unit. Units with prepare")
	fmt.Fprintln(out, "and teardown steps are configured through a config file units list.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fmt.Fprint(out, cmd.Flags().FlagUsages())
}
