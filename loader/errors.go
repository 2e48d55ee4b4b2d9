package loader

import (
	"errors"
	"fmt"
	"io"

	"github.com/lvdlvd/srecloader/srec"
)

// Sentinel errors classifying a failed run.
// Use errors.Is(err, ErrXxx) on the error returned by Run.
var (
	// Decode failures, shared with package srec.
	ErrMalformedDigit   = srec.ErrMalformedDigit
	ErrUnknownType      = srec.ErrUnknownType
	ErrLengthTooShort   = srec.ErrLengthTooShort
	ErrChecksumMismatch = srec.ErrChecksumMismatch

	// ErrAborted indicates the host cancelled the run, either with a control
	// byte in the stream or through the context.
	ErrAborted = srec.ErrAborted

	// ErrTerminatorMismatch indicates a terminator whose address width does
	// not pair with the data records (S1/S9, S2/S8, S3/S7).
	ErrTerminatorMismatch = errors.New("terminator does not match data records")

	// ErrUnexpectedEOF indicates the stream ended inside a record or
	// before a terminator.
	ErrUnexpectedEOF = errors.New("unexpected end of stream")

	// ErrTargetWriteFailed indicates the writer rejected a byte.
	ErrTargetWriteFailed = errors.New("target write failed")

	// ErrCountMismatch indicates an S5/S6 record disagreed with the number
	// of data records, when count checking is enabled.
	ErrCountMismatch = errors.New("record count mismatch")

	// ErrSourceFailed indicates the byte source returned an error other
	// than end of stream.
	ErrSourceFailed = errors.New("reading source failed")
)

// DownloadError reports why a run stopped and where in the input.
type DownloadError struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Offset is the byte offset into the source.
	Offset int64
	// Line is the one based line number in the source.
	Line int
	// Err is the underlying cause, if any.
	Err error
}

func (e *DownloadError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("line %d (offset %d): %v: %v", e.Line, e.Offset, e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("line %d (offset %d): %v", e.Line, e.Offset, e.Err)
	}
	return fmt.Sprintf("line %d (offset %d): %v", e.Line, e.Offset, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *DownloadError) Unwrap() error { return e.Err }

// Is reports whether the error matches the target sentinel.
func (e *DownloadError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// fromReader classifies an error returned by srec.Reader.Next.
func fromReader(err error) *DownloadError {
	de := &DownloadError{Kind: ErrSourceFailed, Err: err}
	var pe *srec.PositionError
	if errors.As(err, &pe) {
		de.Offset, de.Line, de.Err = pe.Offset, pe.Line, pe.Err
	}

	var decErr *srec.DecodeError
	switch {
	case errors.As(err, &decErr):
		de.Kind = decErr.Kind
	case errors.Is(err, io.ErrUnexpectedEOF):
		de.Kind = ErrUnexpectedEOF
	}
	return de
}
