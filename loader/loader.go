// Package loader drives decoded S-records into a target writer and reports
// the programmed range.
//
// A run is all or nothing: the first decode, framing or write error ends it
// and no partial Result is returned.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lvdlvd/srecloader/log"
	"github.com/lvdlvd/srecloader/srec"
)

// Writer stores one byte at an address on the target.
// Calls may block; timeouts belong to the implementation.
type Writer interface {
	Write(address uint32, b byte) error
}

// Flusher is implemented by writers that buffer. Flush is called once
// after the last byte of a successful run.
type Flusher interface {
	Flush() error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(address uint32, b byte) error

// Write calls f(address, b).
func (f WriterFunc) Write(address uint32, b byte) error { return f(address, b) }

// Result summarises a completed run.
type Result struct {
	// MinAddress and MaxAddress bracket the written bytes. They are only
	// meaningful when BytesWritten > 0.
	MinAddress uint32
	MaxAddress uint32

	BytesWritten int

	// Terminated is true when a matching terminator ended the run.
	Terminated bool

	// Records is the number of data records written.
	Records int

	// Family is the address family of the first data record.
	Family srec.Family

	// MixedFamilies is set when later data records use another family.
	// The terminator is still checked against Family.
	MixedFamilies bool

	// EntryAddress is the address carried by the terminator.
	EntryAddress uint32

	// Header is the text of the S0 record, if any.
	Header string
}

func (r Result) String() string {
	if r.BytesWritten == 0 {
		return "0 bytes"
	}
	return fmt.Sprintf("0x%08x-0x%08x, %d bytes", r.MinAddress, r.MaxAddress, r.BytesWritten)
}

// Segment is a contiguous run of bytes starting at Address.
type Segment struct {
	Address uint32
	Data    []byte
}

// Image is a set of segments plus an entry address, as read from a file
// format without terminator records.
type Image struct {
	Segments []Segment
	Entry    uint32
}

// Loader runs downloads. A Loader holds only configuration, so one Loader
// may serve concurrent runs as long as each run has its own source and
// writer.
type Loader struct {
	config Config
	log    *zap.Logger
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{config: cfg, log: log.OrNop(cfg.Logger)}
}

// tally accumulates the statistics of one run.
type tally struct {
	res Result
}

func (t *tally) add(addr uint32) {
	if t.res.BytesWritten == 0 || addr < t.res.MinAddress {
		t.res.MinAddress = addr
	}
	if t.res.BytesWritten == 0 || addr > t.res.MaxAddress {
		t.res.MaxAddress = addr
	}
	t.res.BytesWritten++
}

// Run decodes src and writes every data byte to w until a terminator
// record of the same family as the data records ends the stream.
//
// The context is checked between records; a cancelled context stops the
// run with ErrAborted. Errors are *DownloadError values and classify with
// errors.Is against the sentinels of this package.
func (l *Loader) Run(ctx context.Context, src io.ByteReader, w Writer) (Result, error) {
	r := srec.NewReader(src)
	var t tally

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, l.fail(&DownloadError{Kind: ErrAborted, Offset: r.Offset(), Line: r.Line(), Err: err})
		}

		rec, err := r.Next()
		if err == io.EOF {
			return Result{}, l.fail(&DownloadError{Kind: ErrUnexpectedEOF, Offset: r.Offset(), Line: r.Line(),
				Err: fmt.Errorf("no terminator after %d data records", t.res.Records)})
		}
		if err != nil {
			return Result{}, l.fail(fromReader(err))
		}

		switch rec.Category() {
		case srec.HeaderRecord:
			t.res.Header = string(bytes.TrimRight(rec.Data, "\x00"))
			l.log.Debug("header", zap.String("text", t.res.Header))

		case srec.DataRecord:
			switch f := rec.Type.Family(); {
			case t.res.Family == srec.NoFamily:
				t.res.Family = f
			case f != t.res.Family && !t.res.MixedFamilies:
				t.res.MixedFamilies = true
				l.log.Warn("mixed address families",
					zap.Stringer("family", t.res.Family), zap.Stringer("record", rec.Type),
					zap.Int("line", r.Line()))
			}
			for i, b := range rec.Data {
				addr := rec.Address + uint32(i)
				if err := w.Write(addr, b); err != nil {
					return Result{}, l.fail(&DownloadError{Kind: ErrTargetWriteFailed, Offset: r.Offset(), Line: r.Line(),
						Err: fmt.Errorf("write 0x%08x: %w", addr, err)})
				}
				t.add(addr)
			}
			t.res.Records++
			if l.config.Progress != nil && len(rec.Data) > 0 {
				l.config.Progress(Progress{
					Records:      t.res.Records,
					BytesWritten: t.res.BytesWritten,
					Address:      rec.Address + uint32(len(rec.Data)-1),
				})
			}

		case srec.CountRecord:
			l.log.Debug("count record", zap.Uint32("count", rec.Address), zap.Int("records", t.res.Records))
			if l.config.CountCheck && int(rec.Address) != t.res.Records {
				return Result{}, l.fail(&DownloadError{Kind: ErrCountMismatch, Offset: r.Offset(), Line: r.Line(),
					Err: fmt.Errorf("%v says %d, decoded %d", rec.Type, rec.Address, t.res.Records)})
			}

		case srec.TerminatorRecord:
			if t.res.Family != srec.NoFamily && rec.Type.Family() != t.res.Family {
				return Result{}, l.fail(&DownloadError{Kind: ErrTerminatorMismatch, Offset: r.Offset(), Line: r.Line(),
					Err: fmt.Errorf("%v after %v data records", rec.Type, t.res.Family.DataType())})
			}
			if t.res.Family == srec.NoFamily {
				t.res.Family = rec.Type.Family()
			}
			if err := flush(w); err != nil {
				return Result{}, l.fail(&DownloadError{Kind: ErrTargetWriteFailed, Offset: r.Offset(), Line: r.Line(), Err: err})
			}
			t.res.Terminated = true
			t.res.EntryAddress = rec.Address
			l.done(t.res)
			return t.res, nil
		}
	}
}

// Program writes every segment of img to w. It gathers the same
// statistics as Run; the result counts each segment as one record.
func (l *Loader) Program(ctx context.Context, img Image, w Writer) (Result, error) {
	var t tally
	for _, seg := range img.Segments {
		if err := ctx.Err(); err != nil {
			return Result{}, l.fail(&DownloadError{Kind: ErrAborted, Err: err})
		}
		for i, b := range seg.Data {
			addr := seg.Address + uint32(i)
			if err := w.Write(addr, b); err != nil {
				return Result{}, l.fail(&DownloadError{Kind: ErrTargetWriteFailed,
					Err: fmt.Errorf("write 0x%08x: %w", addr, err)})
			}
			t.add(addr)
		}
		t.res.Records++
		if l.config.Progress != nil && len(seg.Data) > 0 {
			l.config.Progress(Progress{
				Records:      t.res.Records,
				BytesWritten: t.res.BytesWritten,
				Address:      seg.Address + uint32(len(seg.Data)-1),
			})
		}
	}
	if err := flush(w); err != nil {
		return Result{}, l.fail(&DownloadError{Kind: ErrTargetWriteFailed, Err: err})
	}
	t.res.Terminated = true
	t.res.EntryAddress = img.Entry
	t.res.Family = srec.FamilyFor(uint64(t.res.MaxAddress) + 1)
	l.done(t.res)
	return t.res, nil
}

func flush(w Writer) error {
	if f, ok := w.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

func (l *Loader) done(res Result) {
	l.log.Info("download complete",
		log.Hex("min_address", res.MinAddress),
		log.Hex("max_address", res.MaxAddress),
		zap.Int("bytes", res.BytesWritten),
		zap.Int("records", res.Records),
		log.Hex("entry", res.EntryAddress),
	)
}

func (l *Loader) fail(err *DownloadError) error {
	l.log.Error("download failed",
		zap.Int("line", err.Line),
		zap.Int64("offset", err.Offset),
		zap.Error(err),
	)
	return err
}
