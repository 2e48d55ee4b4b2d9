package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/lvdlvd/srecloader/an3155"
	"github.com/lvdlvd/srecloader/log"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Connect and print the bootloader version, commands and product ID",
		Flags: concat(portFlags(), outputFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "option-bytes",
				Usage: "also dump 0x30 option bytes at this address (e.g. 0x1FFF7800)",
			},
		}),
		Action: probeAction,
	}
}

func probeAction(c *cli.Context) error {
	cfg, lg, err := setup(c)
	if err != nil {
		return err
	}
	defer lg.Sync()

	r, err := NewRenderer(c)
	if err != nil {
		return err
	}

	t, err := connect(c.Context, cfg, lg)
	if err != nil {
		return err
	}
	defer t.Close()

	id, err := t.GetID()
	if err != nil {
		return fmt.Errorf("cmd GETID: %w", err)
	}
	v := t.Version()
	info := &ProbeInfo{
		Port:      t.port,
		Version:   fmt.Sprintf("%d.%d", v>>4, v&0xf),
		Commands:  fmt.Sprintf("% x", t.Commands()),
		ProductID: fmt.Sprintf("%04x", id),
	}

	if t.Supports(an3155.CmdGetV) {
		buf, err := t.GetVersion()
		if err != nil {
			return fmt.Errorf("cmd GETV: %w", err)
		}
		info.ReadProtection = fmt.Sprintf("% x", buf[1:])
	}

	if s := c.String("option-bytes"); s != "" {
		addr, err := parseAddress(s)
		if err != nil {
			return err
		}
		buf, err := t.ReadMemory(addr, 0x30)
		if err != nil {
			return fmt.Errorf("cmd READ option bytes: %w", err)
		}
		info.OptionBytes = hexdump(addr, buf)
	}
	return r.Render(info)
}

func readCommand() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Hexdump target memory",
		ArgsUsage: "ADDR [LEN]",
		Flags:     concat(portFlags(), outputFlags()),
		Action:    readAction,
	}
}

func readAction(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("read needs ADDR and an optional LEN", 1)
	}
	addr, err := parseAddress(c.Args().Get(0))
	if err != nil {
		return err
	}
	size := 256
	if c.NArg() == 2 {
		n, err := strconv.ParseUint(c.Args().Get(1), 0, 24)
		if err != nil || n == 0 {
			return fmt.Errorf("invalid length %q", c.Args().Get(1))
		}
		size = int(n)
	}

	cfg, lg, err := setup(c)
	if err != nil {
		return err
	}
	defer lg.Sync()

	r, err := NewRenderer(c)
	if err != nil {
		return err
	}

	t, err := connect(c.Context, cfg, lg)
	if err != nil {
		return err
	}
	defer t.Close()

	buf, err := t.ReadMemory(addr, size)
	if err != nil {
		return err
	}
	return r.Render(&Dump{Address: hex32(addr), Lines: hexdump(addr, buf)})
}

func goCommand() *cli.Command {
	return &cli.Command{
		Name:      "go",
		Usage:     "Jump to ADDR (default 0x08000000)",
		ArgsUsage: "[ADDR]",
		Flags:     portFlags(),
		Action:    goAction,
	}
}

func goAction(c *cli.Context) error {
	addr := uint32(defaultEntry)
	if c.NArg() > 0 {
		var err error
		if addr, err = parseAddress(c.Args().First()); err != nil {
			return err
		}
	}

	cfg, lg, err := setup(c)
	if err != nil {
		return err
	}
	defer lg.Sync()

	t, err := connect(c.Context, cfg, lg)
	if err != nil {
		return err
	}
	defer t.Close()

	lg.Info("go", log.Hex("address", addr))
	return t.Go(addr)
}
