package loader

import "go.uber.org/zap"

// Progress is passed to a ProgressFunc after every data record.
type Progress struct {
	// Records is the number of data records written so far.
	Records int

	// BytesWritten is the number of bytes handed to the writer so far.
	BytesWritten int

	// Address is the address of the last byte written.
	Address uint32
}

// ProgressFunc receives progress updates. It runs on the goroutine
// driving the run and should return quickly.
type ProgressFunc func(Progress)

// Config holds the loader configuration.
type Config struct {
	// Logger receives run diagnostics (optional).
	Logger *zap.Logger

	// Progress is called after every data record (optional).
	Progress ProgressFunc

	// CountCheck makes S5/S6 records fail the run unless they match the
	// number of data records seen so far.
	CountCheck bool
}

// Option is a functional option for configuring a Loader.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithProgress sets a progress callback.
//
// Example:
//
//	l := loader.New(loader.WithProgress(func(p loader.Progress) {
//	    fmt.Fprintf(os.Stderr, "\r%d bytes", p.BytesWritten)
//	}))
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

// WithRecordCountCheck enables or disables checking S5/S6 count records.
func WithRecordCountCheck(enabled bool) Option {
	return func(c *Config) {
		c.CountCheck = enabled
	}
}
