package lsmtable

import (
	"fmt"
	"log"

	"github.com/cockroachdb/pebble/vfs"
)

// Options define table builder and reader options.
type Options struct {
	// BlockSize is the target size in bytes of each encoded table block.
	// A single entry larger than BlockSize is still accepted into an empty
	// block. Values above 65535 are capped as block offsets are 16 bits.
	// Default: 4KiB.
	BlockSize int

	// The compression codec to use for blocks.
	// Default: NoCompression.
	Compression Compression

	// FS is used to persist and open table files.
	// Default: vfs.Default.
	FS vfs.FS

	// Logger receives informational and error messages.
	// Default: DefaultLogger.
	Logger Logger
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.BlockSize < 1 {
		oo.BlockSize = 1 << 12
	}
	if oo.BlockSize > maxBlockSize {
		oo.BlockSize = maxBlockSize
	}
	if !oo.Compression.isValid() {
		oo.Compression = NoCompression
	}
	if oo.FS == nil {
		oo.FS = vfs.Default
	}
	if oo.Logger == nil {
		oo.Logger = DefaultLogger{}
	}

	return &oo
}

// --------------------------------------------------------------------

// Logger defines an interface for writing log messages.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements the Logger.Infof interface.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

// Errorf implements the Logger.Errorf interface.
func (DefaultLogger) Errorf(format string, args ...interface{}) {
	_ = log.Output(2, "ERROR: "+fmt.Sprintf(format, args...))
}

// NoopLogger discards all messages.
type NoopLogger struct{}

// Infof implements the Logger.Infof interface.
func (NoopLogger) Infof(string, ...interface{}) {}

// Errorf implements the Logger.Errorf interface.
func (NoopLogger) Errorf(string, ...interface{}) {}
