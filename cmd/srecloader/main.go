// Command srecloader downloads Motorola S-record and Intel HEX images into
// STM32 parts through the system memory bootloader.
//
// Usage:
//
//	srecloader [--config FILE] <command> [options]
//
// Commands:
//   - flash FILE: write an image, optionally verify it and jump to it
//   - info FILE: decode an image and print its summary, no device needed
//   - convert FILE: rewrite an image as S-records or Intel HEX
//   - probe: connect and print what the bootloader reports
//   - read ADDR [LEN]: hexdump target memory
//   - go [ADDR]: jump to ADDR
//
// Every command exits 1 on failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		// ExitErrHandler has already exited for errors raised by actions.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "srecloader",
		Usage:          "Program STM32 flash over the UART bootloader",
		Version:        version,
		Flags:          globalFlags(),
		ExitErrHandler: exitErrHandler,
		After: func(*cli.Context) error {
			return ports.Close()
		},
		Commands: []*cli.Command{
			flashCommand(),
			infoCommand(),
			convertCommand(),
			probeCommand(),
			readCommand(),
			goCommand(),
		},
	}
}

// exitErrHandler prints err and exits, preserving codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
