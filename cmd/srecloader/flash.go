package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lvdlvd/srecloader/an3155"
	"github.com/lvdlvd/srecloader/loader"
	"github.com/lvdlvd/srecloader/log"
	"github.com/lvdlvd/srecloader/memimage"
)

func flashCommand() *cli.Command {
	return &cli.Command{
		Name:      "flash",
		Usage:     "Write an S-record or Intel HEX image to the target",
		ArgsUsage: "FILE",
		Flags: concat(portFlags(), outputFlags(), []cli.Flag{
			inputFlag,
			countCheckFlag,
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "read every page back after writing it",
			},
			&cli.BoolFlag{
				Name:    "compare",
				Aliases: []string{"n"},
				Usage:   "don't write, only compare the image with the target",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "bytes per write command, a multiple of 4 up to 256",
			},
			&cli.BoolFlag{
				Name:    "go",
				Aliases: []string{"g"},
				Usage:   "jump to the entry address afterwards",
			},
			&cli.StringFlag{
				Name:  "go-address",
				Usage: "override the entry address (implies --go)",
			},
			&cli.BoolFlag{
				Name:    "monitor",
				Aliases: []string{"c"},
				Usage:   "copy the port to stdout after all commands",
			},
		}),
		Action: flashAction,
	}
}

func flashAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("flash needs exactly one FILE", 1)
	}
	path := c.Args().First()

	cfg, lg, err := setup(c)
	if err != nil {
		return err
	}
	defer lg.Sync()

	r, err := NewRenderer(c)
	if err != nil {
		return err
	}
	format, err := inputFormat(path, c.String("input-format"))
	if err != nil {
		return err
	}
	var entry uint32
	haveEntry := c.IsSet("go-address")
	if haveEntry {
		if entry, err = parseAddress(c.String("go-address")); err != nil {
			return err
		}
	}

	t, err := connect(c.Context, cfg, lg)
	if err != nil {
		return err
	}
	defer t.Close()

	compare := c.Bool("compare")
	if err := t.Require(pageCommands(cfg.Target.Verify, compare)...); err != nil {
		return err
	}
	pw := an3155.NewPageWriter(t.Client,
		an3155.WithPageSize(cfg.Target.PageSize),
		an3155.WithVerify(cfg.Target.Verify),
		an3155.WithCompareOnly(compare))

	res, err := download(c.Context, newLoader(cfg.Loader.CountCheck, lg), path, format, pw)
	if err != nil {
		return err
	}

	sum := newSummary(path, format, res)
	sum.Port = t.port
	sum.Pages = pw.Pages()
	sum.Verified = cfg.Target.Verify || compare

	if cfg.Target.Go || haveEntry {
		if !haveEntry {
			entry = res.EntryAddress
			if entry == 0 {
				entry = defaultEntry
			}
		}
		lg.Info("go", log.Hex("address", entry))
		if err := t.Go(entry); err != nil {
			return fmt.Errorf("cmd GO: %w", err)
		}
		sum.Started = hex32(entry)
	}

	if err := r.Render(sum); err != nil {
		return err
	}
	if compare {
		r.Success("compared " + res.String())
	} else {
		r.Success("wrote " + res.String())
	}

	if c.Bool("monitor") {
		return monitor(c.Context, t.link, os.Stdout)
	}
	return nil
}

// pageCommands lists the bootloader commands a PageWriter will issue.
func pageCommands(verify, compare bool) []byte {
	switch {
	case compare:
		return []byte{an3155.CmdRead}
	case verify:
		return []byte{an3155.CmdWrite, an3155.CmdRead}
	}
	return []byte{an3155.CmdWrite}
}

// newLoader returns a loader that reports progress on a terminal stderr.
func newLoader(countCheck bool, lg *zap.Logger) *loader.Loader {
	opts := []loader.Option{
		loader.WithLogger(lg),
		loader.WithRecordCountCheck(countCheck),
	}
	if isTerminal(os.Stderr) {
		opts = append(opts, loader.WithProgress(func(p loader.Progress) {
			fmt.Fprintf(os.Stderr, "\r%d bytes, %d records, at 0x%08x", p.BytesWritten, p.Records, p.Address)
		}))
	}
	return loader.New(opts...)
}

// download feeds the image at path into w.
func download(ctx context.Context, l *loader.Loader, path, format string, w loader.Writer) (loader.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return loader.Result{}, err
	}
	defer f.Close()

	var res loader.Result
	if format == formatIHex {
		var img loader.Image
		if img, err = memimage.ReadIntelHex(f); err != nil {
			return loader.Result{}, fmt.Errorf("%s: %w", path, err)
		}
		res, err = l.Program(ctx, img, w)
	} else {
		res, err = l.Run(ctx, bufio.NewReader(f), w)
	}
	if isTerminal(os.Stderr) {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
