package srec

import (
	"bufio"
	"fmt"
	"io"
)

// DefaultLineSize is the number of data bytes per record written by an
// Encoder unless configured otherwise.
const DefaultLineSize = 16

// An Encoder writes S-records in one address family.
type Encoder struct {
	w        *bufio.Writer
	family   Family
	lineSize int
	records  int // data records written, for the count record
}

// NewEncoder returns an encoder writing family records to w.
// lineSize is the number of data bytes per data record; values outside
// 1..(255 - address width - 1) select DefaultLineSize.
func NewEncoder(w io.Writer, family Family, lineSize int) *Encoder {
	if family == NoFamily {
		family = Family32
	}
	if lineSize <= 0 || lineSize > 255-int(family)-1 {
		lineSize = DefaultLineSize
	}
	return &Encoder{w: bufio.NewWriter(w), family: family, lineSize: lineSize}
}

// FamilyFor returns the narrowest family able to address every byte of a
// span ending just before end.
func FamilyFor(end uint64) Family {
	switch {
	case end <= 1<<16:
		return Family16
	case end <= 1<<24:
		return Family24
	}
	return Family32
}

// WriteRecord writes one record, computing its length and checksum.
func (e *Encoder) WriteRecord(t Type, address uint32, data []byte) error {
	w := t.AddressWidth()
	if w == 0 {
		return &DecodeError{Kind: ErrUnknownType, Char: '0' + byte(t)}
	}
	if w+len(data)+1 > 255 {
		return fmt.Errorf("%v record at 0x%X: %d data bytes do not fit", t, address, len(data))
	}
	length := byte(w + len(data) + 1)
	ab := addressBytes(address, w)

	fmt.Fprintf(e.w, "S%d%02X", byte(t), length)
	for _, b := range ab {
		fmt.Fprintf(e.w, "%02X", b)
	}
	for _, b := range data {
		fmt.Fprintf(e.w, "%02X", b)
	}
	_, err := fmt.Fprintf(e.w, "%02X\n", Checksum(length, ab, data))
	return err
}

// WriteHeader writes an S0 record carrying text.
func (e *Encoder) WriteHeader(text string) error {
	return e.WriteRecord(Header, 0, []byte(text))
}

// WriteData writes data starting at address as a run of data records.
func (e *Encoder) WriteData(address uint32, data []byte) error {
	t := e.family.DataType()
	for len(data) > 0 {
		n := e.lineSize
		if n > len(data) {
			n = len(data)
		}
		if err := e.WriteRecord(t, address, data[:n]); err != nil {
			return err
		}
		e.records++
		address += uint32(n)
		data = data[n:]
	}
	return nil
}

// WriteCount writes an S5 (or S6 past 0xFFFF) record holding the number
// of data records written so far.
func (e *Encoder) WriteCount() error {
	t := Count16
	if e.records > 0xffff {
		t = Count24
	}
	return e.WriteRecord(t, uint32(e.records), nil)
}

// Close writes the terminator with the given entry address and flushes.
func (e *Encoder) Close(entry uint32) error {
	if err := e.WriteRecord(e.family.TermType(), entry, nil); err != nil {
		return err
	}
	return e.w.Flush()
}
