package main

import "github.com/urfave/cli/v2"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "YAML config file",
			EnvVars: []string{"SRECLOADER_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "log-encoding",
			Usage: "console or json",
		},
	}
}

// portFlags configure the serial link; they override port.* config keys.
func portFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "serial port connected to the STM32",
		},
		&cli.IntFlag{
			Name:    "baud",
			Aliases: []string{"b"},
			Usage:   "baud rate",
		},
		&cli.StringFlag{
			Name:  "parity",
			Usage: "none, even or odd",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "wait for each reply byte",
		},
	}
}

// outputFlags select how summaries are printed.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, yaml",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

// inputFlag selects the image format when the extension does not.
var inputFlag = &cli.StringFlag{
	Name:    "input-format",
	Aliases: []string{"i"},
	Usage:   "srec or ihex (default from the file extension)",
}

var countCheckFlag = &cli.BoolFlag{
	Name:  "count-check",
	Usage: "fail when an S5/S6 count record disagrees with the data records",
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
