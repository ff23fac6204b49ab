package lsmtable

import (
	"github.com/cockroachdb/errors"
)

const (
	sizeofU16 = 2
	sizeofU32 = 4

	maxKeyLen   = 1<<16 - 1
	maxValueLen = 1<<16 - 1
)

// ErrNotFound is returned by the table when a key cannot be found.
var ErrNotFound = errors.New("lsmtable: not found")

// ErrCorruption marks errors caused by malformed on-disk data. Test with
// errors.Is(err, ErrCorruption).
var ErrCorruption = errors.New("lsmtable: corruption")

// ErrEmptyTable is returned when building a table without any entries.
var ErrEmptyTable = errors.New("lsmtable: cannot build an empty table")

// ErrInvalidIterator is returned when advancing an iterator that is no
// longer valid.
var ErrInvalidIterator = errors.New("lsmtable: iterator is not valid")

// ErrKeyTooLarge is returned when a key or value exceeds the 16-bit length
// limit of the block format.
var ErrKeyTooLarge = errors.New("lsmtable: key or value too large")

var (
	errClosed   = errors.New("lsmtable: is closed")
	errEmptyKey = errors.New("lsmtable: empty key")
)

func corruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

func invalidIteratorError(kind string) error {
	return errors.Mark(errors.Newf("lsmtable: %s advanced past the end", kind), ErrInvalidIterator)
}

// --------------------------------------------------------------------

// Compression is the block compression codec.
type Compression byte

func (c Compression) isValid() bool {
	return c < unknownCompression
}

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	case ZstdCompression:
		return "zstd"
	case MinLZCompression:
		return "minlz"
	}
	return "unknown"
}

// ParseCompression parses a codec name as returned by Compression.String.
func ParseCompression(s string) (Compression, error) {
	for c := NoCompression; c < unknownCompression; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return unknownCompression, errors.Newf("lsmtable: unknown compression %q", s)
}

// Supported compression codecs. NoCompression stores blocks in their
// plain encoded form.
const (
	NoCompression Compression = iota
	SnappyCompression
	ZstdCompression
	MinLZCompression
	unknownCompression
)
