/*
Package an3155 talks to the STM32 system memory bootloader over a UART.

See
	AN2606 Application note STM32 microcontroller system memory boot mode
	AN3155 Application note USART protocol used in the STM32 bootloader

Every command is the opcode followed by its complement; every data frame
ends with the XOR of its bytes. The device answers each frame with ACK or
NAK. The link must run 8E1.
*/
package an3155

import (
	"errors"
	"fmt"
	"time"

	"github.com/lvdlvd/srecloader/transport"
)

const (
	ack  = 0x79
	nak  = 0x1f
	poke = 0x7f
)

// Command opcodes.
const (
	CmdGet   = 0x00
	CmdGetV  = 0x01
	CmdGetID = 0x02
	CmdRead  = 0x11
	CmdGo    = 0x21
	CmdWrite = 0x31
)

// MaxTransfer is the largest read or write a single command moves.
const MaxTransfer = 256

var (
	ErrNAK     = errors.New("NAK")
	ErrTimeout = transport.ErrTimeout
	ErrBadReq  = errors.New("bad request")

	// ErrUnsupported is returned by Require for commands missing from the
	// GET reply.
	ErrUnsupported = errors.New("not supported by bootloader")
)

// getChar returns the next byte, or -1 on timeout.
func getChar(t transport.Transport, timeout time.Duration) (int, error) {
	var buf [1]byte
	n, err := t.Receive(buf[:], timeout)
	if err != nil {
		return -1, err
	}
	if n == 1 {
		return int(buf[0]), nil
	}
	return -1, nil
}

func getAck(t transport.Transport, timeout time.Duration) error {
	v, err := getChar(t, timeout)
	if err != nil {
		return err
	}
	switch v {
	case ack:
		return nil
	case nak:
		return ErrNAK
	case -1:
		return ErrTimeout
	}
	return fmt.Errorf("expected ACK, got 0x%x", v)
}

func sendBytes(t transport.Transport, timeout time.Duration, chk byte, cmd ...byte) error {
	for _, v := range cmd {
		chk ^= v
	}
	frame := append(cmd[:len(cmd):len(cmd)], chk)
	if _, err := t.Send(frame); err != nil {
		return err
	}

	return getAck(t, timeout)
}

// sendCmd sends a single byte followed by its complement.
func sendCmd(t transport.Transport, timeout time.Duration, cmd ...byte) error {
	return sendBytes(t, timeout, 0xff, cmd...)
}

// sendData sends bytes followed by their XOR.
func sendData(t transport.Transport, timeout time.Duration, data ...byte) error {
	return sendBytes(t, timeout, 0x00, data...)
}

func addrBytes(addr uint32) []byte {
	return []byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
}
