package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/host/hal/fifo"
	"github.com/ardnew/sdhost/host/power"
	"github.com/ardnew/sdhost/pkg/config"
)

// ──────────────────────────────────────────────
//  rootCmd structure
// ──────────────────────────────────────────────

func TestRootCmd_HasAllSubcommands(t *testing.T) {
	root := rootCmd()

	expected := map[string]bool{
		"run":          false,
		"insert":       false,
		"remove":       false,
		"power-states": false,
		"config":       false,
		"version":      false,
	}

	for _, sub := range root.Commands() {
		if _, ok := expected[sub.Name()]; ok {
			expected[sub.Name()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	root := rootCmd()
	root.SetArgs([]string{"--log-level", "loud", "version"})
	root.SetOut(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

// ──────────────────────────────────────────────
//  flags
// ──────────────────────────────────────────────

func TestSignalCmd_DefaultValues(t *testing.T) {
	for _, use := range []string{"insert", "remove"} {
		cmd := newSignalCmd(use, "", true)
		f := cmd.Flags().Lookup("fifo")
		if f == nil {
			t.Fatalf("%s command missing flag: --fifo", use)
		}
		if f.DefValue != config.DefaultFIFOPath {
			t.Errorf("%s --fifo default = %q, want %q", use, f.DefValue, config.DefaultFIFOPath)
		}
	}
}

func TestRunCmd_Flags(t *testing.T) {
	cmd := newRunCmd()
	if cmd.Flags().Lookup("config") == nil {
		t.Error("run command missing flag: --config")
	}
}

// ──────────────────────────────────────────────
//  output
// ──────────────────────────────────────────────

func TestVersionCmd_Output(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.HasPrefix(buf.String(), "sdhostctl dev") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestPrintPowerStates(t *testing.T) {
	var buf bytes.Buffer
	if err := printPowerStates(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ORDINAL", "off", "on", "power-on,usable,initial"} {
		if !strings.Contains(out, want) {
			t.Errorf("power-states output missing %q:\n%s", want, out)
		}
	}
}

func TestCapabilityNames(t *testing.T) {
	tests := []struct {
		name string
		caps power.Capability
		want string
	}{
		{"empty", 0, "-"},
		{"power_on", power.CapPowerOn, "power-on"},
		{"usable_initial", power.CapDeviceUsable | power.CapInitialDeviceState, "usable,initial"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := capabilityNames(tc.caps); got != tc.want {
				t.Errorf("capabilityNames(%#x) = %q, want %q", tc.caps, got, tc.want)
			}
		})
	}
}

func TestConfigCmd_Defaults(t *testing.T) {
	cmd := newConfigCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("config output does not parse: %v", err)
	}
	if cfg.Device.Name != config.DefaultDeviceName {
		t.Errorf("device.name = %q, want %q", cfg.Device.Name, config.DefaultDeviceName)
	}
}

func TestSignalCmd_NoReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card")
	require.NoError(t, fifo.Create(path))

	cmd := newSignalCmd("insert", "", true)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--fifo", path})

	err := cmd.Execute()
	assert.ErrorIs(t, err, fifo.ErrNoReader)
}

// ──────────────────────────────────────────────
//  instance
// ──────────────────────────────────────────────

func TestNewDevice_Variants(t *testing.T) {
	for _, variant := range []string{config.VariantBase, config.VariantPCIe, config.VariantUSB} {
		t.Run(variant, func(t *testing.T) {
			cfg := config.Default()
			cfg.Device.Variant = variant
			dev, err := newDevice(cfg, newCardDriver())
			require.NoError(t, err)
			assert.Equal(t, cfg.Device.Name, dev.Name())
		})
	}

	cfg := config.Default()
	cfg.Device.Variant = "sdio"
	_, err := newDevice(cfg, newCardDriver())
	assert.Error(t, err)
}

func TestNewController_Kinds(t *testing.T) {
	cfg := config.Default()
	ctrl, err := newController(cfg)
	require.NoError(t, err)
	assert.IsType(t, &fifo.Controller{}, ctrl)

	cfg.Controller.Kind = config.ControllerLinux
	ctrl, err = newController(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sdhost-slot", ctrl.Name())
}

func TestInstance_RunProbesInsertedCard(t *testing.T) {
	for _, variant := range []string{config.VariantBase, config.VariantPCIe, config.VariantUSB} {
		t.Run(variant, func(t *testing.T) {
			cfg := config.Default()
			cfg.Device.Variant = variant
			cfg.Controller.FIFO = filepath.Join(t.TempDir(), "card")
			cfg.Metrics.Listen = ""

			inst, err := newInstance(cfg)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- inst.run(ctx) }()

			require.Eventually(t, func() bool {
				return fifo.Signal(cfg.Controller.FIFO, true) == nil
			}, 5*time.Second, 20*time.Millisecond)

			require.Eventually(t, func() bool {
				return inst.driver.Probes() == 1
			}, 5*time.Second, 10*time.Millisecond)
			assert.True(t, inst.dev.CardPresent())
			assert.Equal(t, power.On, inst.dev.Posture())

			require.NoError(t, fifo.Signal(cfg.Controller.FIFO, false))
			require.Eventually(t, func() bool {
				return inst.dev.Presence() == host.Absent
			}, 5*time.Second, 10*time.Millisecond)

			cancel()
			require.NoError(t, <-done)

			assert.Equal(t, power.Off, inst.dev.Posture())
			assert.False(t, inst.dev.PowerRegistered())
			_, registered := inst.tree.Registered(cfg.Device.Name)
			assert.False(t, registered)
		})
	}
}

func TestRunCmd_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdhost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  variant: floppy\n"), 0o600))

	root := rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--config", path})
	assert.ErrorContains(t, root.Execute(), "floppy")
}
