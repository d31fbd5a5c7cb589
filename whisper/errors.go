package whisper

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the deterministic, non-I/O error conditions the
// engine can return. Every operation on a whisper file that fails for a
// reason other than the underlying filesystem returns an error wrapping
// one of these; the string parsers (ParseAggregationMethod,
// ParseDuration, ParseRetentionDef, ParseRetentionDefs) return plain
// errors.
type ErrorKind int

const (
	// ErrInvalidFormat means the on-disk header could not be parsed or
	// failed validation on open (bad aggregation code, bad xff, zero
	// archives, truncated header).
	ErrInvalidFormat ErrorKind = iota + 1
	// ErrInvalidXFilesFactor means a requested x-files-factor was
	// outside [0, 1].
	ErrInvalidXFilesFactor
	// ErrInvalidRetentionSet means a requested archive list violates one
	// of the builder's ordering/consolidation invariants.
	ErrInvalidRetentionSet
	// ErrTimestampOutOfRange means an update's timestamp is in the
	// future or older than the file's max retention.
	ErrTimestampOutOfRange
	// ErrArchiveNotFound means no archive in the file has the requested
	// step.
	ErrArchiveNotFound
	// ErrNoCoveringArchive means no archive's retention covers the
	// requested interval.
	ErrNoCoveringArchive
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidFormat:
		return "invalid format"
	case ErrInvalidXFilesFactor:
		return "invalid x-files-factor"
	case ErrInvalidRetentionSet:
		return "invalid retention set"
	case ErrTimestampOutOfRange:
		return "timestamp out of range"
	case ErrArchiveNotFound:
		return "archive not found"
	case ErrNoCoveringArchive:
		return "no covering archive"
	default:
		return "unknown error"
	}
}

// Error is the deterministic, kind-tagged error returned by every engine
// operation that fails for a reason other than the filesystem. It
// satisfies errors.Is against its Kind via Unwrap-free comparison: callers
// compare with errors.Is(err, whisper.ErrNoSuchArchive) etc., which works
// because each sentinel below is itself an *Error with a distinct Kind.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is implements the errors.Is protocol so that whisper.newKindError(K, ...)
// compares equal to the sentinel whisper.ErrXxx of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newKindError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinels usable with errors.Is(err, whisper.ErrXxx).
var (
	ErrBadFormat           = &Error{Kind: ErrInvalidFormat}
	ErrBadXFilesFactor     = &Error{Kind: ErrInvalidXFilesFactor}
	ErrBadRetentionSet     = &Error{Kind: ErrInvalidRetentionSet}
	ErrOutOfRange          = &Error{Kind: ErrTimestampOutOfRange}
	ErrNoSuchArchive       = &Error{Kind: ErrArchiveNotFound}
	ErrNothingCoversWindow = &Error{Kind: ErrNoCoveringArchive}
)

// wrapIO annotates a filesystem error with the offending path and
// operation (§7). The engine's file-level helpers call it where the error
// occurs, so an I/O error that reaches a composite operation (merge,
// fill, resize, diff) already names its file; those operations return it
// unchanged.
func wrapIO(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "whisper: %s %s", op, path)
}
