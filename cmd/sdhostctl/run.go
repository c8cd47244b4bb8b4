package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/host/gate"
	"github.com/ardnew/sdhost/host/hal"
	"github.com/ardnew/sdhost/host/hal/fifo"
	"github.com/ardnew/sdhost/host/hal/linux"
	"github.com/ardnew/sdhost/host/metrics"
	"github.com/ardnew/sdhost/host/pcie"
	"github.com/ardnew/sdhost/host/power"
	"github.com/ardnew/sdhost/host/usb"
	"github.com/ardnew/sdhost/pkg"
	"github.com/ardnew/sdhost/pkg/config"
)

// ──────────────────────────────────────────────
//  run
// ──────────────────────────────────────────────

func newRunCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a host device until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			// Command-line logging flags win over the file.
			if path != "" && !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-format") {
				if err := cfg.ApplyLogging(); err != nil {
					return err
				}
			}

			pkg.LogDebug(pkg.ComponentCLI, "configuration loaded",
				"path", path,
				"variant", cfg.Device.Variant,
				"controller", cfg.Controller.Kind)

			inst, err := newInstance(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) on %s controller %s\n",
				cfg.Device.Name, cfg.Device.Variant, cfg.Controller.Kind, inst.ctrl.Name())
			return inst.run(ctx)
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "Configuration file (defaults when omitted)")

	return cmd
}

// instance is one host device wired to its controller, power tree,
// driver and metrics.
type instance struct {
	cfg      *config.Config
	ctrl     hal.Controller
	dev      *host.BaseDevice
	tree     *power.Tree
	driver   *cardDriver
	registry *prometheus.Registry
}

func newInstance(cfg *config.Config) (*instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctrl, err := newController(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Device.Name)
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tree := power.NewTree()
	driver := newCardDriver()
	dev, err := newDevice(cfg, driver,
		host.WithPowerManager(tree),
		host.WithObserver(collector),
	)
	if err != nil {
		return nil, err
	}
	driver.dev = dev

	return &instance{
		cfg:      cfg,
		ctrl:     ctrl,
		dev:      dev,
		tree:     tree,
		driver:   driver,
		registry: registry,
	}, nil
}

// newController builds the card-event source named by the configuration.
func newController(cfg *config.Config) (hal.Controller, error) {
	name := cfg.Device.Name + "-slot"
	switch cfg.Controller.Kind {
	case config.ControllerFIFO:
		var opts []gate.Option
		if cfg.Controller.StrictGate {
			opts = append(opts, gate.WithStrict())
		}
		return fifo.New(name, cfg.Controller.FIFO, opts...), nil
	case config.ControllerLinux:
		var opts []linux.Option
		if cfg.Controller.StrictGate {
			opts = append(opts, linux.WithStrictGate())
		}
		return linux.New(name, opts...), nil
	default:
		return nil, fmt.Errorf("%w: controller %q", pkg.ErrInvalidConfig, cfg.Controller.Kind)
	}
}

// newDevice builds the device variant named by the configuration.
func newDevice(cfg *config.Config, driver host.Driver, opts ...host.Option) (*host.BaseDevice, error) {
	name := cfg.Device.Name
	switch cfg.Device.Variant {
	case config.VariantBase:
		return host.New(name, driver, opts...), nil
	case config.VariantPCIe:
		w := pcie.NewWindow(cfg.DMA.Base, cfg.DMA.Size)
		return pcie.NewDevice(name, driver, w, cfg.DMA.MaxSegments, opts...), nil
	case config.VariantUSB:
		pool := usb.NewPool(cfg.Bounce.Buffers, cfg.Bounce.Size)
		return usb.NewDevice(name, driver, pool, opts...), nil
	default:
		return nil, fmt.Errorf("%w: variant %q", pkg.ErrInvalidConfig, cfg.Device.Variant)
	}
}

// run starts the device, powers it on and serves until ctx is done. The
// device is powered off and stopped before run returns.
func (in *instance) run(ctx context.Context) error {
	if err := in.dev.Initialize(in.cfg); err != nil {
		return err
	}
	if err := in.dev.Start(ctx, in.ctrl); err != nil {
		return err
	}

	name := in.dev.Name()
	if _, err := in.tree.PowerOn(ctx, name); err != nil {
		if serr := in.dev.Stop(context.Background(), in.ctrl); serr != nil {
			pkg.LogWarn(pkg.ComponentHost, "stop after failed power on", "device", name, "error", serr)
		}
		return fmt.Errorf("power on %s: %w", name, err)
	}
	pkg.LogInfo(pkg.ComponentHost, "device running",
		"device", name,
		"controller", in.ctrl.Name(),
		"posture", in.dev.Posture())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return in.ctrl.Run(gctx) })
	g.Go(func() error { return in.driver.serve(gctx) })
	if addr := in.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error { return metrics.Serve(gctx, addr, in.registry) })
	}
	err := g.Wait()

	shutdown := context.Background()
	if _, perr := in.tree.PowerOff(shutdown, name); perr != nil && err == nil {
		err = fmt.Errorf("power off %s: %w", name, perr)
	}
	if serr := in.dev.Stop(shutdown, in.ctrl); serr != nil && err == nil {
		err = serr
	}
	pkg.LogInfo(pkg.ComponentHost, "device stopped", "device", name)
	return err
}
