package an3155

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lvdlvd/srecloader/log"
	"github.com/lvdlvd/srecloader/transport"
)

// Client issues bootloader commands over a transport. A Client is not safe
// for concurrent use; hold the transport exclusively while using it.
type Client struct {
	t        transport.Transport
	timeout  time.Duration
	retries  int
	log      *zap.Logger
	version  byte
	commands []byte
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the wait for each reply byte.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithConnectRetries sets how many times Connect pokes the device.
func WithConnectRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = log.OrNop(l)
	}
}

// NewClient returns a client on t. Call Connect before anything else.
func NewClient(t transport.Transport, opts ...ClientOption) *Client {
	c := &Client{
		t:       t,
		timeout: 500 * time.Millisecond,
		retries: 20, // 20 * 500ms, so 10s.
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect sends 0x7f until the bootloader answers, then fetches the
// supported command list.
func (c *Client) Connect() error {
	connected := false
	for i := 0; i < c.retries && !connected; i++ {
		if _, err := c.t.Send([]byte{poke}); err != nil {
			return fmt.Errorf("poking bootloader: %w", err)
		}
		v, err := getChar(c.t, c.timeout)
		if err != nil {
			return err
		}
		switch v {
		case nak:
			c.log.Debug("already connected")
			connected = true
		case ack:
			connected = true
		}
	}
	if !connected {
		return ErrTimeout
	}

	cmds, err := c.Get()
	if err != nil {
		return fmt.Errorf("cmd GET: %w", err)
	}
	if len(cmds) < 1 {
		return fmt.Errorf("cmd GET: empty reply")
	}
	c.version = cmds[0]
	c.commands = cmds[1:]
	c.log.Info("connected",
		zap.String("version", fmt.Sprintf("%d.%d", c.version>>4, c.version&0xf)),
		zap.String("commands", fmt.Sprintf("% x", c.commands)))
	return nil
}

// Version returns the bootloader version byte reported by Connect.
func (c *Client) Version() byte { return c.version }

// Commands returns the opcodes reported by Connect.
func (c *Client) Commands() []byte { return c.commands }

// Supports reports whether the bootloader listed opcode. Before Connect
// every opcode is assumed supported.
func (c *Client) Supports(opcode byte) bool {
	if c.commands == nil {
		return true
	}
	for _, v := range c.commands {
		if v == opcode {
			return true
		}
	}
	return false
}

// Require returns ErrUnsupported naming the first opcode the bootloader
// did not list.
func (c *Client) Require(opcodes ...byte) error {
	for _, op := range opcodes {
		if !c.Supports(op) {
			return fmt.Errorf("command 0x%02x: %w", op, ErrUnsupported)
		}
	}
	return nil
}

// readBlock reads a length prefixed reply followed by ACK.
func (c *Client) readBlock() ([]byte, error) {
	sz, err := getChar(c.t, c.timeout)
	if err != nil {
		return nil, err
	}
	if sz < 0 {
		return nil, ErrTimeout
	}

	buf := make([]byte, sz+1)
	if n, err := transport.ReadFull(c.t, buf, c.timeout); err != nil {
		return buf[:n], err
	}
	return buf, getAck(c.t, c.timeout)
}

// Get returns the version byte followed by the supported opcodes.
func (c *Client) Get() ([]byte, error) {
	if err := sendCmd(c.t, c.timeout, CmdGet); err != nil {
		return nil, err
	}
	return c.readBlock()
}

// GetVersion returns the version byte and the two option bytes.
func (c *Client) GetVersion() ([]byte, error) {
	if err := sendCmd(c.t, c.timeout, CmdGetV); err != nil {
		return nil, err
	}

	buf := make([]byte, 3)
	if n, err := transport.ReadFull(c.t, buf, c.timeout); err != nil {
		return buf[:n], err
	}
	return buf, getAck(c.t, c.timeout)
}

// GetID returns the product ID.
func (c *Client) GetID() (uint16, error) {
	if err := sendCmd(c.t, c.timeout, CmdGetID); err != nil {
		return 0, err
	}
	buf, err := c.readBlock()
	if err != nil {
		return 0, err
	}
	if len(buf) < 2 {
		return 0, fmt.Errorf("short product ID % x", buf)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (c *Client) read(addr uint32, sz int) ([]byte, error) {
	if sz < 1 || sz > MaxTransfer {
		return nil, ErrBadReq
	}

	if err := sendCmd(c.t, c.timeout, CmdRead); err != nil {
		return nil, fmt.Errorf("send cmd: %w", err)
	}
	if err := sendData(c.t, c.timeout, addrBytes(addr)...); err != nil {
		return nil, fmt.Errorf("send addr: %w", err)
	}
	if err := sendCmd(c.t, c.timeout, byte(sz-1)); err != nil {
		return nil, fmt.Errorf("send size: %w", err)
	}

	buf := make([]byte, sz)
	n, err := transport.ReadFull(c.t, buf, c.timeout)
	if err != nil {
		return buf[:n], fmt.Errorf("read: %w", err)
	}
	return buf, nil
}

func (c *Client) write(addr uint32, buf []byte) error {
	sz := len(buf)
	if sz < 1 || sz > MaxTransfer || sz%4 != 0 {
		return ErrBadReq
	}

	if err := sendCmd(c.t, c.timeout, CmdWrite); err != nil {
		return fmt.Errorf("send cmd: %w", err)
	}
	if err := sendData(c.t, c.timeout, addrBytes(addr)...); err != nil {
		return fmt.Errorf("send addr: %w", err)
	}

	frame := make([]byte, 0, sz+1)
	frame = append(frame, byte(sz-1))
	frame = append(frame, buf...)
	if err := sendData(c.t, c.timeout, frame...); err != nil {
		return fmt.Errorf("send data: %w", err)
	}
	return nil
}

// ReadMemory reads sz bytes starting at addr, MaxTransfer at a time.
func (c *Client) ReadMemory(addr uint32, sz int) ([]byte, error) {
	buf := make([]byte, 0, sz)
	for len(buf) < sz {
		n := sz - len(buf)
		if n > MaxTransfer {
			n = MaxTransfer
		}
		at := addr + uint32(len(buf))
		b, err := c.read(at, n)
		buf = append(buf, b...)
		if err != nil {
			return buf, fmt.Errorf("reading %d bytes at 0x%08x: %w", n, at, err)
		}
	}
	return buf, nil
}

// WriteMemory writes buf at addr, MaxTransfer at a time. len(buf) must be
// a multiple of 4.
func (c *Client) WriteMemory(addr uint32, buf []byte) error {
	for len(buf) > 0 {
		n := len(buf)
		if n > MaxTransfer {
			n = MaxTransfer
		}
		if err := c.write(addr, buf[:n]); err != nil {
			return fmt.Errorf("writing %d bytes at 0x%08x: %w", n, addr, err)
		}
		c.log.Debug("wrote", log.Hex("address", addr), zap.Int("bytes", n))
		buf = buf[n:]
		addr += uint32(n)
	}
	return nil
}

// Go jumps to addr. The bootloader stops answering once it has acked the
// address.
func (c *Client) Go(addr uint32) error {
	if err := sendCmd(c.t, c.timeout, CmdGo); err != nil {
		return err
	}
	return sendData(c.t, c.timeout, addrBytes(addr)...)
}
