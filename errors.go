package pcapng

import (
	"errors"
	"fmt"
)

// Sentinel errors matching the error taxonomy in §7: probe result,
// I/O truncation, structural violation, and writer-side refusals.
var (
	// ErrNotPcapng is returned by a Reader when the stream does not
	// begin with a recognizable Section Header Block magic number.
	// Probe reports the same condition as a false result.
	ErrNotPcapng = errors.New("pcapng: not a pcapng stream")

	// ErrShortRead marks an I/O truncation encountered mid-block, as
	// opposed to a clean end-of-file at a block boundary.
	ErrShortRead = errors.New("pcapng: short read")

	// ErrBadFile marks a structural violation: mismatched trailer
	// length, unsupported version, bad option framing, an interface id
	// out of range, a name record missing its terminating NUL, a
	// record too large for its block, or a block outside the accepted
	// size bounds.
	ErrBadFile = errors.New("pcapng: malformed block")

	// ErrUnsupportedEncap is returned by AddInterface when a writer
	// EncapLimiter is configured and has no snap length on record for
	// the requested link type.
	ErrUnsupportedEncap = errors.New("pcapng: unsupported link type")

	// ErrPacketTooLarge is returned by the writer when a record is
	// larger than would be accepted back on read.
	ErrPacketTooLarge = errors.New("pcapng: packet exceeds size ceiling")

	// ErrUnwritableRecordType is returned when no writer is registered
	// for the block kind a caller asked to emit.
	ErrUnwritableRecordType = errors.New("pcapng: no writer registered for record type")
)

// FormatError decorates ErrBadFile (or another sentinel) with a
// human-readable description and the stream offset the caller was at
// when the problem surfaced, per the recovery policy in §7: never
// silently correct, always surface a description.
type FormatError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("pcapng: %s (offset %d): %v", e.Reason, e.Offset, e.Err)
	}
	return fmt.Sprintf("pcapng: %s: %v", e.Reason, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func badFile(offset int64, reason string) error {
	return &FormatError{Offset: offset, Reason: reason, Err: ErrBadFile}
}

func badFilef(offset int64, format string, args ...interface{}) error {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...), Err: ErrBadFile}
}
