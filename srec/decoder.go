package srec

type mode int

const (
	idle mode = iota
	typeField
	lengthField
	addressField
	dataField
	checksumField
)

func (m mode) String() string {
	switch m {
	case typeField:
		return "type"
	case lengthField:
		return "length"
	case addressField:
		return "address"
	case dataField:
		return "data"
	case checksumField:
		return "checksum"
	}
	return "idle"
}

// Control bytes that cancel a decode when they arrive between records.
const (
	etx = 0x03
	can = 0x18
	esc = 0x1b
)

// A Decoder is a byte at a time S-record state machine.
// A Decoder must not be used from more than one goroutine at a time.
// The zero value is ready to use.
type Decoder struct {
	mode   mode
	nibble bool // high nibble of the current byte is in acc
	acc    byte

	typ       Type
	width     int
	length    byte
	addrLeft  int
	remaining int
	address   uint32
	data      []byte
	sum       byte

	err error
}

// NewDecoder returns a decoder in the idle state.
func NewDecoder() *Decoder { return &Decoder{} }

// Reset discards any partial record and a previous error.
func (d *Decoder) Reset() { *d = Decoder{} }

// InRecord reports whether the decoder has seen the start of a record
// that is not yet complete.
func (d *Decoder) InRecord() bool { return d.mode != idle }

// Err returns the error that stopped the decoder, if any.
func (d *Decoder) Err() error { return d.err }

// Feed consumes one input byte.
//
// It returns (nil, nil) while a record is incomplete, the record once its
// checksum verifies, or a *DecodeError. After an error every call returns
// the same error until Reset.
//
// Outside a record all bytes other than 'S' are skipped, except the control
// bytes ETX, CAN and ESC which abort. Inside a record CR, LF, tab and space
// are skipped when they fall between two hex bytes.
func (d *Decoder) Feed(c byte) (*Record, error) {
	if d.err != nil {
		return nil, d.err
	}

	if d.mode == idle {
		switch c {
		case 'S':
			d.mode = typeField
		case etx, can, esc:
			return nil, d.fail(&DecodeError{Kind: ErrAborted, Char: c})
		}
		return nil, nil
	}

	if isSpace(c) {
		if d.nibble {
			return nil, d.fail(&DecodeError{Kind: ErrMalformedDigit, Char: c, Type: d.typ})
		}
		return nil, nil
	}

	v, ok := unhex(c)
	if !ok {
		return nil, d.fail(&DecodeError{Kind: ErrMalformedDigit, Char: c, Type: d.typ})
	}

	if d.mode == typeField {
		t := Type(v)
		if !t.Valid() {
			return nil, d.fail(&DecodeError{Kind: ErrUnknownType, Char: c})
		}
		d.typ = t
		d.width = t.AddressWidth()
		d.mode = lengthField
		return nil, nil
	}

	if !d.nibble {
		d.acc = v << 4
		d.nibble = true
		return nil, nil
	}
	d.nibble = false
	return d.byteDone(d.acc | v)
}

func (d *Decoder) byteDone(b byte) (*Record, error) {
	switch d.mode {
	case lengthField:
		if int(b) < d.width+1 {
			return nil, d.fail(&DecodeError{Kind: ErrLengthTooShort, Char: b, Type: d.typ})
		}
		d.length = b
		d.sum = b
		d.remaining = int(b) - d.width - 1
		d.addrLeft = d.width
		d.mode = addressField

	case addressField:
		d.address = d.address<<8 | uint32(b)
		d.sum += b
		d.addrLeft--
		if d.addrLeft > 0 {
			break
		}
		d.data = make([]byte, 0, d.remaining)
		if d.remaining > 0 {
			d.mode = dataField
		} else {
			d.mode = checksumField
		}

	case dataField:
		d.data = append(d.data, b)
		d.sum += b
		if len(d.data) == d.remaining {
			d.mode = checksumField
		}

	case checksumField:
		if computed := d.sum ^ 0xff; computed != b {
			return nil, d.fail(&DecodeError{Kind: ErrChecksumMismatch, Type: d.typ, Computed: computed, Expected: b})
		}
		rec := &Record{
			Type:     d.typ,
			Length:   d.length,
			Address:  d.address,
			Data:     d.data,
			Checksum: b,
		}
		d.Reset()
		return rec, nil
	}
	return nil, nil
}

func (d *Decoder) fail(err *DecodeError) error {
	d.err = err
	return err
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
