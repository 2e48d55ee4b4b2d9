package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lvdlvd/srecloader/memimage"
)

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Rewrite an image as S-records or Intel HEX",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			inputFlag,
			countCheckFlag,
			&cli.StringFlag{
				Name:     "to",
				Usage:    "srec or ihex",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (default stdout)",
			},
			&cli.IntFlag{
				Name:  "line-size",
				Usage: "data bytes per output record",
				Value: 16,
			},
			&cli.StringFlag{
				Name:  "header",
				Usage: "S0 header text (default the input file name)",
			},
		},
		Action: convertAction,
	}
}

func convertAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("convert needs exactly one FILE", 1)
	}
	path := c.Args().First()

	cfg, lg, err := setup(c)
	if err != nil {
		return err
	}
	defer lg.Sync()

	in, err := inputFormat(path, c.String("input-format"))
	if err != nil {
		return err
	}
	out, err := inputFormat("", c.String("to"))
	if err != nil || c.String("to") == "" {
		return fmt.Errorf("invalid --to %q (must be srec or ihex)", c.String("to"))
	}

	mem := memimage.New()
	res, err := download(c.Context, newLoader(cfg.Loader.CountCheck, lg), path, in, mem)
	if err != nil {
		return err
	}
	mem.SetEntry(res.EntryAddress)

	var w io.Writer = os.Stdout
	if name := c.String("output"); name != "" && name != "-" {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if out == formatIHex {
		return mem.WriteIntelHex(w, c.Int("line-size"))
	}
	header := c.String("header")
	if !c.IsSet("header") {
		header = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return mem.WriteSRecords(w, header, c.Int("line-size"))
}
