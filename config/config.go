package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/lvdlvd/srecloader/an3155"
	"github.com/lvdlvd/srecloader/log"
	"github.com/lvdlvd/srecloader/transport"
)

// Config represents a srecloader.yaml file. Every value is a default for
// the matching command line flag; flags always win.
type Config struct {
	Port   PortConfig   `yaml:"port"`
	Target TargetConfig `yaml:"target"`
	Loader LoaderConfig `yaml:"loader"`
	Log    LogConfig    `yaml:"log"`
}

// PortConfig describes the serial link to the bootloader.
type PortConfig struct {
	Device         string   `yaml:"device"`
	Baud           int      `yaml:"baud"`
	Parity         string   `yaml:"parity"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	ConnectRetries int      `yaml:"connect_retries"`
}

// TargetConfig holds what to do with the device once connected.
type TargetConfig struct {
	Verify   bool `yaml:"verify"`
	Go       bool `yaml:"go"`
	PageSize int  `yaml:"page_size"`
}

// LoaderConfig holds S-record decoding options.
type LoaderConfig struct {
	CountCheck bool `yaml:"count_check"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "500ms").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "500ms" or "2s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration in time.Duration.String form.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Default returns the configuration used when no file is given: an 8E1
// link at 115200 baud on /dev/ttyUSB0.
func Default() *Config {
	return &Config{
		Port: PortConfig{
			Device:         "/dev/ttyUSB0",
			Baud:           115200,
			Parity:         transport.ParityEven,
			ReadTimeout:    Duration{500 * time.Millisecond},
			ConnectRetries: 20,
		},
		Target: TargetConfig{
			PageSize: an3155.MaxTransfer,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: log.EncodingConsole,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port.Device == "" {
		errs = append(errs, errors.New("port.device is empty"))
	}
	if c.Port.Baud <= 0 {
		errs = append(errs, fmt.Errorf("port.baud must be positive, got %d", c.Port.Baud))
	}
	switch strings.ToLower(c.Port.Parity) {
	case "", transport.ParityNone, transport.ParityEven, transport.ParityOdd:
	default:
		errs = append(errs, fmt.Errorf("port.parity must be none, even or odd, got %q", c.Port.Parity))
	}
	if c.Port.ReadTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("port.read_timeout is negative"))
	}
	if c.Port.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("port.connect_retries is negative"))
	}
	if p := c.Target.PageSize; p != 0 && (p < 4 || p > an3155.MaxTransfer || p%4 != 0) {
		errs = append(errs, fmt.Errorf("target.page_size must be a multiple of 4 between 4 and %d, got %d", an3155.MaxTransfer, p))
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	switch c.Log.Encoding {
	case "", log.EncodingConsole, log.EncodingJSON:
	default:
		errs = append(errs, fmt.Errorf("log.encoding must be console or json, got %q", c.Log.Encoding))
	}
	return errors.Join(errs...)
}

// Serial returns the transport settings.
func (c *Config) Serial() transport.SerialConfig {
	return transport.SerialConfig{
		Device:      c.Port.Device,
		Baud:        c.Port.Baud,
		Parity:      c.Port.Parity,
		ReadTimeout: c.Port.ReadTimeout.Duration,
	}
}

// LogOptions returns the logger settings.
func (c *Config) LogOptions() log.Options {
	return log.Options{Level: c.Log.Level, Encoding: c.Log.Encoding}
}
