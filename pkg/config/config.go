// Package config loads the sdhost configuration from YAML.
//
// A configuration selects the controller that produces card events, the
// device variant that supplies the request hooks, and the resource limits
// those hooks work within:
//
//	device:
//	  name: rtsx-sd
//	  variant: pcie
//	controller:
//	  kind: fifo
//	  fifo: /tmp/sdhost/card
//	  strict_gate: true
//	dma:
//	  base: 0x80000000
//	  size: 16777216
//	  max_segments: 384
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  listen: 127.0.0.1:9360
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/sdhost/pkg"
)

// Device variants.
const (
	VariantBase = "base"
	VariantPCIe = "pcie"
	VariantUSB  = "usb"
)

// Controller kinds.
const (
	ControllerFIFO  = "fifo"
	ControllerLinux = "linux"
)

// Defaults.
const (
	DefaultDeviceName    = "sdhost"
	DefaultFIFOPath      = "/tmp/sdhost/card"
	DefaultDMABase       = 0x8000_0000
	DefaultDMASize       = 16 << 20
	DefaultMaxSegments   = 384 // Host scatter-gather table entries
	DefaultBounceBuffers = 4
	DefaultBounceSize    = 64 << 10
	DefaultMetricsListen = "127.0.0.1:9360"
)

// Config is the top-level configuration.
type Config struct {
	Device     Device     `yaml:"device"`
	Controller Controller `yaml:"controller"`
	DMA        DMA        `yaml:"dma"`
	Bounce     Bounce     `yaml:"bounce"`
	Log        Log        `yaml:"log"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Device selects the host device variant.
type Device struct {
	Name    string `yaml:"name"`
	Variant string `yaml:"variant"`
}

// Controller selects the source of card events.
type Controller struct {
	Kind       string `yaml:"kind"`
	FIFO       string `yaml:"fifo"`
	StrictGate bool   `yaml:"strict_gate"`
}

// DMA bounds the scatter-gather mappings of the PCIe variant.
type DMA struct {
	Base        uint64 `yaml:"base"`
	Size        uint64 `yaml:"size"`
	MaxSegments int    `yaml:"max_segments"`
}

// Bounce sizes the staging pool of the USB variant.
type Bounce struct {
	Buffers int `yaml:"buffers"`
	Size    int `yaml:"size"`
}

// Log configures the package logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Listen disables it.
type Metrics struct {
	Listen string `yaml:"listen"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Device: Device{
			Name:    DefaultDeviceName,
			Variant: VariantBase,
		},
		Controller: Controller{
			Kind: ControllerFIFO,
			FIFO: DefaultFIFOPath,
		},
		DMA: DMA{
			Base:        DefaultDMABase,
			Size:        DefaultDMASize,
			MaxSegments: DefaultMaxSegments,
		},
		Bounce: Bounce{
			Buffers: DefaultBounceBuffers,
			Size:    DefaultBounceSize,
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
		Metrics: Metrics{
			Listen: DefaultMetricsListen,
		},
	}
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil configuration", pkg.ErrInvalidConfig)
	}
	if c.Device.Name == "" {
		return fmt.Errorf("%w: device.name is empty", pkg.ErrInvalidConfig)
	}
	switch c.Device.Variant {
	case VariantBase, VariantPCIe, VariantUSB:
	default:
		return fmt.Errorf("%w: device.variant %q", pkg.ErrInvalidConfig, c.Device.Variant)
	}
	switch c.Controller.Kind {
	case ControllerFIFO:
		if c.Controller.FIFO == "" {
			return fmt.Errorf("%w: controller.fifo is empty", pkg.ErrInvalidConfig)
		}
	case ControllerLinux:
	default:
		return fmt.Errorf("%w: controller.kind %q", pkg.ErrInvalidConfig, c.Controller.Kind)
	}
	if c.Device.Variant == VariantPCIe {
		if c.DMA.Size == 0 {
			return fmt.Errorf("%w: dma.size is zero", pkg.ErrInvalidConfig)
		}
		if c.DMA.MaxSegments <= 0 {
			return fmt.Errorf("%w: dma.max_segments must be positive", pkg.ErrInvalidConfig)
		}
	}
	if c.Device.Variant == VariantUSB {
		if c.Bounce.Buffers <= 0 || c.Bounce.Size <= 0 {
			return fmt.Errorf("%w: bounce buffers and size must be positive", pkg.ErrInvalidConfig)
		}
	}
	if _, err := pkg.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := pkg.ParseLogFormat(c.Log.Format); err != nil {
		return err
	}
	return nil
}

// ApplyLogging configures the package logger from the Log section.
func (c *Config) ApplyLogging() error {
	level, err := pkg.ParseLogLevel(c.Log.Level)
	if err != nil {
		return err
	}
	format, err := pkg.ParseLogFormat(c.Log.Format)
	if err != nil {
		return err
	}
	pkg.SetLogLevel(level)
	pkg.SetLogFormat(format)
	return nil
}
