package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lvdlvd/srecloader/an3155"
	"github.com/lvdlvd/srecloader/config"
	"github.com/lvdlvd/srecloader/transport"
)

// ports holds every serial port opened by this process, one lock per
// device path. newApp closes them when the command returns.
var ports = transport.NewPool()

// target is a connected bootloader holding its port exclusively.
type target struct {
	*an3155.Client
	port    string
	link    transport.Transport
	release func()
}

// acquire takes the port for sc.Device, waiting for another holder if
// there is one, and discards stale input.
func acquire(ctx context.Context, sc transport.SerialConfig, lg *zap.Logger) (transport.Transport, func(), error) {
	ex, err := ports.Link(sc.Device, func() (transport.Transport, error) {
		return transport.OpenSerial(sc)
	})
	if err != nil {
		return nil, nil, err
	}
	link, release, ok := ex.TryAcquire()
	if !ok {
		lg.Info("waiting for port", zap.String("port", sc.Device))
		if link, release, err = ex.Acquire(ctx); err != nil {
			return nil, nil, err
		}
	}
	if d, ok := link.(interface{ Drain() error }); ok {
		if err := d.Drain(); err != nil {
			lg.Warn("discarding stale input", zap.String("port", sc.Device), zap.Error(err))
		}
	}
	return link, release, nil
}

// connect takes the configured port and connects to the bootloader. Close
// releases the port on every path.
func connect(ctx context.Context, cfg *config.Config, lg *zap.Logger) (*target, error) {
	sc := cfg.Serial()
	link, release, err := acquire(ctx, sc, lg)
	if err != nil {
		return nil, err
	}
	t := &target{port: sc.Device, link: link, release: release}

	lg.Info("connecting", zap.String("port", sc.Device), zap.Int("baud", sc.Baud))
	t.Client = an3155.NewClient(link,
		an3155.WithTimeout(sc.ReadTimeout),
		an3155.WithConnectRetries(cfg.Port.ConnectRetries),
		an3155.WithLogger(lg))
	if err := t.Connect(); err != nil {
		t.Close()
		return nil, fmt.Errorf("connecting on %s: %w", sc.Device, err)
	}
	return t, nil
}

func (t *target) Close() { t.release() }

// monitor copies everything the target sends to w until ctx is done.
func monitor(ctx context.Context, link transport.Transport, w io.Writer) error {
	var buf [1024]byte
	for ctx.Err() == nil {
		n, err := link.Receive(buf[:], 0)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
