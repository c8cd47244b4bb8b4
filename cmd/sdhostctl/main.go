// sdhostctl runs an SD host device against a card-event controller and
// drives it from the command line.
//
// Usage:
//
//	sdhostctl run --config sdhost.yaml
//	sdhostctl insert --fifo /tmp/sdhost/card
//	sdhostctl remove --fifo /tmp/sdhost/card
//	sdhostctl power-states
//	sdhostctl config --config sdhost.yaml
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/sdhost/host/hal/fifo"
	"github.com/ardnew/sdhost/host/power"
	"github.com/ardnew/sdhost/pkg"
	"github.com/ardnew/sdhost/pkg/config"
)

// Exit codes following CLI conventions.
const (
	exitOK           = 0
	exitRuntimeError = 1
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitRuntimeError)
	}
}

// rootCmd builds the top-level cobra command tree.
func rootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "sdhostctl",
		Short:         "SD host device controller",
		Long:          "Runs an SD host device bound to a card-event controller and power tree, and injects card events into a running instance.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := pkg.ParseLogLevel(logLevel)
			if err != nil {
				return err
			}
			format, err := pkg.ParseLogFormat(logFormat)
			if err != nil {
				return err
			}
			pkg.SetLogLevel(lvl)
			pkg.SetLogOutput(cmd.ErrOrStderr())
			pkg.SetLogFormat(format)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newSignalCmd("insert", "Signal a card insertion to a running fifo controller", true),
		newSignalCmd("remove", "Signal a card removal to a running fifo controller", false),
		newPowerStatesCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// ──────────────────────────────────────────────
//  insert / remove
// ──────────────────────────────────────────────

func newSignalCmd(use, short string, inserted bool) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fifo.Signal(path, inserted); err != nil {
				if errors.Is(err, fifo.ErrNoReader) {
					return fmt.Errorf("no controller is reading %s; start one with 'sdhostctl run': %w", path, err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "card %s signalled on %s\n", use, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "fifo", config.DefaultFIFOPath, "Path of the controller FIFO")

	return cmd
}

// ──────────────────────────────────────────────
//  power-states
// ──────────────────────────────────────────────

func newPowerStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "power-states",
		Short: "Print the power state table registered by every host device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPowerStates(cmd.OutOrStdout())
		},
	}
}

// printPowerStates renders the power state table.
func printPowerStates(w io.Writer) error {
	table := tablewriter.NewTable(w)
	table.Header("ORDINAL", "POSTURE", "VERSION", "CAPABILITIES", "OUTPUT", "INPUT")
	for i, s := range power.Table() {
		posture, _ := power.PostureOf(i)
		if err := table.Append(
			fmt.Sprint(i),
			posture.String(),
			fmt.Sprint(s.Version),
			capabilityNames(s.Capabilities),
			capabilityNames(s.OutputCharacter),
			capabilityNames(s.InputRequirement),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// capabilityNames formats a capability set, "-" when empty.
func capabilityNames(c power.Capability) string {
	var names []string
	if c.Has(power.CapPowerOn) {
		names = append(names, "power-on")
	}
	if c.Has(power.CapDeviceUsable) {
		names = append(names, "usable")
	}
	if c.Has(power.CapInitialDeviceState) {
		names = append(names, "initial")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// ──────────────────────────────────────────────
//  config
// ──────────────────────────────────────────────

func newConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "Configuration file (defaults when omitted)")

	return cmd
}

// loadConfig loads path, or the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// ──────────────────────────────────────────────
//  version
// ──────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sdhostctl %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
