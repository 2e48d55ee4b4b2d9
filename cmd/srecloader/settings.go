package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lvdlvd/srecloader/config"
	"github.com/lvdlvd/srecloader/log"
)

// Image formats accepted by --input-format.
const (
	formatSRec = "srec"
	formatIHex = "ihex"
)

// defaultEntry is where STM32 flash starts and where go jumps when the
// image names no entry point.
const defaultEntry = 0x08000000

// loadConfig reads --config, or the defaults, and applies the flags set on
// the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if c.IsSet("port") {
		cfg.Port.Device = c.String("port")
	}
	if c.IsSet("baud") {
		cfg.Port.Baud = c.Int("baud")
	}
	if c.IsSet("parity") {
		cfg.Port.Parity = c.String("parity")
	}
	if c.IsSet("timeout") {
		cfg.Port.ReadTimeout.Duration = c.Duration("timeout")
	}
	if c.IsSet("verify") {
		cfg.Target.Verify = c.Bool("verify")
	}
	if c.IsSet("go") {
		cfg.Target.Go = c.Bool("go")
	}
	if c.IsSet("page-size") {
		cfg.Target.PageSize = c.Int("page-size")
	}
	if c.IsSet("count-check") {
		cfg.Loader.CountCheck = c.Bool("count-check")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-encoding") {
		cfg.Log.Encoding = c.String("log-encoding")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger for a command.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	lg, err := log.New(cfg.LogOptions())
	if err != nil {
		return nil, nil, err
	}
	return cfg, lg, nil
}

// inputFormat picks the image format from flag, or from the extension of
// path when flag is empty.
func inputFormat(path, flag string) (string, error) {
	switch strings.ToLower(flag) {
	case formatSRec, "s19", "s28", "s37":
		return formatSRec, nil
	case formatIHex, "hex":
		return formatIHex, nil
	case "":
	default:
		return "", fmt.Errorf("invalid input format %q (must be srec or ihex)", flag)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		return formatIHex, nil
	}
	return formatSRec, nil
}

// parseAddress accepts decimal, 0x hex, 0o octal and 0b binary.
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(v), nil
}
