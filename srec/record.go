/*
Package srec decodes and encodes Motorola S-record streams.

	S<type><length><address><data><checksum>

Every field after the type digit is hex encoded. The length counts the
address, data and checksum bytes; the checksum is the one's complement of
the low byte of the sum of length, address and data bytes.

	S0   header      16 bit address
	S1   data        16 bit address
	S2   data        24 bit address
	S3   data        32 bit address
	S5   count       16 bit record count
	S6   count       24 bit record count
	S7   terminator  32 bit entry address (pairs with S3)
	S8   terminator  24 bit entry address (pairs with S2)
	S9   terminator  16 bit entry address (pairs with S1)
*/
package srec

import "fmt"

// Type is the record type digit following the 'S'.
type Type byte

const (
	Header  Type = 0
	Data16  Type = 1
	Data24  Type = 2
	Data32  Type = 3
	Count16 Type = 5
	Count24 Type = 6
	Term32  Type = 7
	Term24  Type = 8
	Term16  Type = 9
)

// Category groups record types by what they mean to a loader.
type Category int

const (
	Unknown Category = iota
	HeaderRecord
	DataRecord
	CountRecord
	TerminatorRecord
)

func (c Category) String() string {
	switch c {
	case HeaderRecord:
		return "header"
	case DataRecord:
		return "data"
	case CountRecord:
		return "count"
	case TerminatorRecord:
		return "terminator"
	}
	return "unknown"
}

// Family is the address width family shared by a data type and its
// terminator: S1/S9, S2/S8 and S3/S7.
type Family int

const (
	NoFamily Family = 0
	Family16 Family = 2
	Family24 Family = 3
	Family32 Family = 4
)

func (f Family) String() string {
	switch f {
	case Family16:
		return "S1/S9"
	case Family24:
		return "S2/S8"
	case Family32:
		return "S3/S7"
	}
	return "none"
}

// DataType returns the data record type of the family.
func (f Family) DataType() Type {
	switch f {
	case Family24:
		return Data24
	case Family32:
		return Data32
	}
	return Data16
}

// TermType returns the terminator record type of the family.
func (f Family) TermType() Type {
	switch f {
	case Family24:
		return Term24
	case Family32:
		return Term32
	}
	return Term16
}

type typeInfo struct {
	category Category
	width    int
}

var typeTable = [10]typeInfo{
	Header:  {HeaderRecord, 2},
	Data16:  {DataRecord, 2},
	Data24:  {DataRecord, 3},
	Data32:  {DataRecord, 4},
	4:       {Unknown, 0},
	Count16: {CountRecord, 2},
	Count24: {CountRecord, 3},
	Term32:  {TerminatorRecord, 4},
	Term24:  {TerminatorRecord, 3},
	Term16:  {TerminatorRecord, 2},
}

// Info returns the category and address width in bytes of t.
// Unsupported types report Unknown and a zero width.
func (t Type) Info() (Category, int) {
	if int(t) >= len(typeTable) {
		return Unknown, 0
	}
	ti := typeTable[t]
	return ti.category, ti.width
}

// Category returns the record category of t.
func (t Type) Category() Category {
	c, _ := t.Info()
	return c
}

// AddressWidth returns the number of address bytes for t.
func (t Type) AddressWidth() int {
	_, w := t.Info()
	return w
}

// Valid reports whether t is a type the decoder accepts.
func (t Type) Valid() bool { return t.Category() != Unknown }

// Family returns the width family of a data or terminator type.
func (t Type) Family() Family {
	switch t.Category() {
	case DataRecord, TerminatorRecord:
		return Family(t.AddressWidth())
	}
	return NoFamily
}

func (t Type) String() string { return fmt.Sprintf("S%d", byte(t)) }

// Record is one decoded S-record line.
type Record struct {
	Type     Type
	Length   byte   // declared count of address, data and checksum bytes
	Address  uint32 // big endian, Type.AddressWidth() bytes wide
	Data     []byte
	Checksum byte // as transmitted
}

// Category is a shorthand for r.Type.Category().
func (r *Record) Category() Category { return r.Type.Category() }

// AddressBytes returns the address field as transmitted, most significant
// byte first.
func (r *Record) AddressBytes() []byte {
	return addressBytes(r.Address, r.Type.AddressWidth())
}

// Valid reports whether the declared length matches the fields and the
// checksum verifies.
func (r *Record) Valid() bool {
	w := r.Type.AddressWidth()
	if w == 0 || int(r.Length) != w+len(r.Data)+1 {
		return false
	}
	return Verify(r.Length, r.AddressBytes(), r.Data, r.Checksum)
}

func addressBytes(addr uint32, width int) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(addr)
		addr >>= 8
	}
	return b
}
