package transport

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/term"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Parity settings accepted by SerialConfig.
const (
	ParityNone = "none"
	ParityEven = "even"
	ParityOdd  = "odd"
)

// SerialConfig describes a tty link.
type SerialConfig struct {
	Device      string
	Baud        int
	Parity      string        // none, even or odd
	ReadTimeout time.Duration // default Receive timeout
}

// Serial is a Transport over a raw tty.
type Serial struct {
	dev     *term.Term
	name    string
	timeout time.Duration // currently programmed read timeout
	def     time.Duration
}

var _ Transport = (*Serial)(nil)

// parityAttr returns the termios edit selecting parity p.
func parityAttr(p string) (func(attr *unix.Termios) uintptr, error) {
	switch strings.ToLower(p) {
	case ParityNone, "":
		return func(attr *unix.Termios) uintptr {
			attr.Cflag &^= unix.PARENB | unix.PARODD
			return termios.TCSAFLUSH
		}, nil
	case ParityEven:
		return func(attr *unix.Termios) uintptr {
			attr.Cflag |= unix.PARENB
			attr.Cflag &^= unix.PARODD
			return termios.TCSAFLUSH
		}, nil
	case ParityOdd:
		return func(attr *unix.Termios) uintptr {
			attr.Cflag |= unix.PARENB | unix.PARODD
			return termios.TCSAFLUSH
		}, nil
	}
	return nil, fmt.Errorf("invalid parity %q", p)
}

// OpenSerial opens and configures the tty named by cfg.Device.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	attr, err := parityAttr(cfg.Parity)
	if err != nil {
		return nil, err
	}

	dev, err := term.Open(cfg.Device,
		term.RawMode,
		term.Speed(cfg.Baud),
		term.ReadTimeout(cfg.ReadTimeout),
		term.SetAttr(attr))
	if err != nil {
		return nil, fmt.Errorf("opening term(%s): %w", cfg.Device, err)
	}

	return &Serial{dev: dev, name: cfg.Device, timeout: cfg.ReadTimeout, def: cfg.ReadTimeout}, nil
}

// Name returns the device path.
func (s *Serial) Name() string { return s.name }

// Send writes p to the tty.
func (s *Serial) Send(p []byte) (int, error) {
	return s.dev.Write(p)
}

// Receive reads into p, waiting at most timeout (the configured default if
// zero). A quiet line returns (0, nil).
func (s *Serial) Receive(p []byte, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = s.def
	}
	if timeout != s.timeout {
		if err := s.dev.SetReadTimeout(timeout); err != nil {
			return 0, err
		}
		s.timeout = timeout
	}
	n, err := s.dev.Read(p)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

// Drain discards anything pending in the input buffer.
func (s *Serial) Drain() error {
	return s.dev.Flush()
}

// Close releases the tty.
func (s *Serial) Close() error {
	return s.dev.Close()
}
