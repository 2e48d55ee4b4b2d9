package main

import (
	"github.com/urfave/cli/v2"

	"github.com/lvdlvd/srecloader/memimage"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Decode an image and print its address range, without a device",
		ArgsUsage: "FILE",
		Flags:     concat(outputFlags(), []cli.Flag{inputFlag, countCheckFlag}),
		Action:    infoAction,
	}
}

func infoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("info needs exactly one FILE", 1)
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

	mem := memimage.New()
	res, err := download(c.Context, newLoader(cfg.Loader.CountCheck, lg), path, format, mem)
	if err != nil {
		return err
	}

	sum := newSummary(path, format, res)
	for _, seg := range mem.Segments() {
		sum.Segments = append(sum.Segments, Segment{Address: hex32(seg.Address), Size: len(seg.Data)})
	}
	return r.Render(sum)
}
