package srec

import (
	"fmt"
	"io"
)

// PositionError wraps an error from a Reader with the input position it
// occurred at.
type PositionError struct {
	Offset int64 // zero based offset of the offending byte
	Line   int   // one based line number
	Err    error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("line %d (offset %d): %v", e.Line, e.Offset, e.Err)
}

func (e *PositionError) Unwrap() error { return e.Err }

// Reader pulls records from a byte source through a Decoder.
type Reader struct {
	src    io.ByteReader
	dec    Decoder
	offset int64
	line   int
}

// NewReader returns a Reader decoding src.
func NewReader(src io.ByteReader) *Reader {
	return &Reader{src: src, line: 1}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.offset }

// Line returns the current one based line number.
func (r *Reader) Line() int { return r.line }

// Next returns the next record.
//
// At the end of input Next returns io.EOF if no record was in progress and
// io.ErrUnexpectedEOF otherwise. Decode and source errors are returned as
// a *PositionError.
func (r *Reader) Next() (*Record, error) {
	for {
		c, err := r.src.ReadByte()
		if err == io.EOF {
			if r.dec.InRecord() {
				return nil, &PositionError{Offset: r.offset, Line: r.line,
					Err: fmt.Errorf("in %v field: %w", r.dec.mode, io.ErrUnexpectedEOF)}
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, &PositionError{Offset: r.offset, Line: r.line, Err: err}
		}

		rec, err := r.dec.Feed(c)
		if err != nil {
			return nil, &PositionError{Offset: r.offset, Line: r.line, Err: err}
		}
		r.offset++
		if c == '\n' {
			r.line++
		}
		if rec != nil {
			return rec, nil
		}
	}
}

// ReadAll decodes every record in src up to the end of input.
func ReadAll(src io.ByteReader) ([]*Record, error) {
	r := NewReader(src)
	var recs []*Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
