package srec

import (
	"errors"
	"fmt"
)

// Sentinel errors for decode failures.
// Use errors.Is(err, ErrXxx) to classify a *DecodeError.
var (
	// ErrMalformedDigit indicates a non-hex character where a hex digit was expected.
	ErrMalformedDigit = errors.New("malformed hex digit")

	// ErrUnknownType indicates an unsupported record type digit.
	ErrUnknownType = errors.New("unknown record type")

	// ErrLengthTooShort indicates a length field too small to hold the
	// address and checksum of the record type.
	ErrLengthTooShort = errors.New("record length too short")

	// ErrChecksumMismatch indicates a record failed its integrity check.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrAborted indicates a control byte requested cancellation.
	ErrAborted = errors.New("aborted")
)

// DecodeError describes why the decoder rejected its input.
type DecodeError struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Char is the offending input byte.
	Char byte

	// Type is the record type, when it was already known.
	Type Type

	// Computed and Expected are set for ErrChecksumMismatch.
	Computed byte
	Expected byte
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrChecksumMismatch:
		return fmt.Sprintf("%v in %v record: computed 0x%02X, expected 0x%02X", e.Kind, e.Type, e.Computed, e.Expected)
	case ErrUnknownType:
		return fmt.Sprintf("%v S%c", e.Kind, e.Char)
	case ErrLengthTooShort:
		return fmt.Sprintf("%v for %v record: 0x%02X", e.Kind, e.Type, e.Char)
	case ErrMalformedDigit:
		return fmt.Sprintf("%v %q", e.Kind, e.Char)
	}
	return fmt.Sprintf("%v (0x%02X)", e.Kind, e.Char)
}

// Is reports whether the error matches the target sentinel.
func (e *DecodeError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}
