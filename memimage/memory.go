// Package memimage keeps a sparse target memory image in host memory.
//
// It is the dry-run target of the loader and the bridge to Intel HEX: an
// image read from either format can be written back out in the other.
package memimage

import (
	"fmt"
	"io"
	"sort"

	"github.com/marcinbor85/gohex"

	"github.com/lvdlvd/srecloader/loader"
	"github.com/lvdlvd/srecloader/srec"
)

// Memory is a sparse byte image. It implements loader.Writer and
// loader.Flusher; bytes written since the last Flush are only visible
// after it.
type Memory struct {
	mem *gohex.Memory

	base    uint32
	pending []byte
}

var (
	_ loader.Writer  = (*Memory)(nil)
	_ loader.Flusher = (*Memory)(nil)
)

// New returns an empty image.
func New() *Memory {
	return &Memory{mem: gohex.NewMemory()}
}

// FromImage returns a Memory holding the segments of img.
func FromImage(img loader.Image) (*Memory, error) {
	m := New()
	for _, seg := range img.Segments {
		if err := m.mem.AddBinary(seg.Address, append([]byte(nil), seg.Data...)); err != nil {
			return nil, fmt.Errorf("segment at 0x%08x: %w", seg.Address, err)
		}
	}
	m.mem.SetStartAddress(img.Entry)
	return m, nil
}

// ReadIntelHex parses an Intel HEX file into an image.
func ReadIntelHex(r io.Reader) (loader.Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return loader.Image{}, err
	}
	m := &Memory{mem: mem}
	return m.Image(), nil
}

// Write stores b at addr.
func (m *Memory) Write(addr uint32, b byte) error {
	if len(m.pending) > 0 && addr != m.base+uint32(len(m.pending)) {
		if err := m.Flush(); err != nil {
			return err
		}
	}
	if len(m.pending) == 0 {
		m.base = addr
	}
	m.pending = append(m.pending, b)
	return nil
}

// Flush commits the pending run. Writing a byte twice is reported here.
func (m *Memory) Flush() error {
	if len(m.pending) == 0 {
		return nil
	}
	run := m.pending
	m.pending = nil
	if err := m.mem.AddBinary(m.base, run); err != nil {
		return fmt.Errorf("0x%08x+%d: %w", m.base, len(run), err)
	}
	return nil
}

// SetEntry records the start address carried into Intel HEX output.
func (m *Memory) SetEntry(addr uint32) { m.mem.SetStartAddress(addr) }

// Entry returns the start address, if one was set.
func (m *Memory) Entry() (uint32, bool) { return m.mem.GetStartAddress() }

// Segments returns the committed data in address order.
func (m *Memory) Segments() []loader.Segment {
	var segs []loader.Segment
	for _, s := range m.mem.GetDataSegments() {
		segs = append(segs, loader.Segment{Address: s.Address, Data: s.Data})
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].Address < segs[j].Address })
	return segs
}

// Image returns the committed data and entry address.
func (m *Memory) Image() loader.Image {
	entry, _ := m.mem.GetStartAddress()
	return loader.Image{Segments: m.Segments(), Entry: entry}
}

// Size returns the number of committed bytes.
func (m *Memory) Size() int {
	n := 0
	for _, s := range m.mem.GetDataSegments() {
		n += len(s.Data)
	}
	return n
}

// WriteIntelHex writes the image as Intel HEX with lineLen data bytes per
// record.
func (m *Memory) WriteIntelHex(w io.Writer, lineLen int) error {
	if lineLen <= 0 || lineLen > 255 {
		lineLen = srec.DefaultLineSize
	}
	return m.mem.DumpIntelHex(w, byte(lineLen))
}

// WriteSRecords writes the image as S-records in the narrowest family that
// covers it, followed by a count record and a terminator carrying the
// entry address.
func (m *Memory) WriteSRecords(w io.Writer, header string, lineLen int) error {
	segs := m.Segments()
	var end uint64
	for _, s := range segs {
		if e := uint64(s.Address) + uint64(len(s.Data)); e > end {
			end = e
		}
	}
	entry, _ := m.mem.GetStartAddress()
	if uint64(entry) >= end {
		end = uint64(entry) + 1
	}

	enc := srec.NewEncoder(w, srec.FamilyFor(end), lineLen)
	if header != "" {
		if err := enc.WriteHeader(header); err != nil {
			return err
		}
	}
	for _, s := range segs {
		if err := enc.WriteData(s.Address, s.Data); err != nil {
			return err
		}
	}
	if err := enc.WriteCount(); err != nil {
		return err
	}
	return enc.Close(entry)
}
