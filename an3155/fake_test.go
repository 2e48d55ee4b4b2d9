package an3155

import (
	"time"
)

type fakeState int

const (
	waitCmd fakeState = iota
	readAddr
	readLen
	goAddr
	writeAddr
	writeData
)

type writeOp struct {
	addr uint32
	n    int
}

// fakeBootloader answers AN3155 frames from an in-memory flash. Every Send
// is taken as one complete frame.
type fakeBootloader struct {
	state fakeState
	addr  uint32
	out   []byte

	mem    map[uint32]byte
	stuck  map[uint32]byte // addresses that always read back as this value
	writes []writeOp
	jumped []uint32

	mute      bool // never answer
	connected bool // answer the poke with NAK
	nakWrite  bool
	version   byte
	commands  []byte
}

func newFake() *fakeBootloader {
	return &fakeBootloader{
		mem:      map[uint32]byte{},
		stuck:    map[uint32]byte{},
		version:  0x31,
		commands: []byte{CmdGet, CmdGetV, CmdGetID, CmdRead, CmdGo, CmdWrite},
	}
}

func (f *fakeBootloader) reply(b ...byte) { f.out = append(f.out, b...) }

func xor(p []byte) byte {
	var x byte
	for _, v := range p {
		x ^= v
	}
	return x
}

func (f *fakeBootloader) Send(p []byte) (int, error) {
	if f.mute {
		return len(p), nil
	}
	frame := append([]byte(nil), p...)

	switch f.state {
	case waitCmd:
		if len(frame) == 1 && frame[0] == poke {
			if f.connected {
				f.reply(nak)
			} else {
				f.reply(ack)
			}
			return len(p), nil
		}
		if len(frame) != 2 || frame[0]^frame[1] != 0xff {
			f.reply(nak)
			return len(p), nil
		}
		switch frame[0] {
		case CmdGet:
			f.reply(ack, byte(len(f.commands)), f.version)
			f.reply(f.commands...)
			f.reply(ack)
		case CmdGetV:
			f.reply(ack, f.version, 0, 0, ack)
		case CmdGetID:
			f.reply(ack, 1, 0x04, 0x13, ack)
		case CmdRead:
			f.reply(ack)
			f.state = readAddr
		case CmdGo:
			f.reply(ack)
			f.state = goAddr
		case CmdWrite:
			f.reply(ack)
			f.state = writeAddr
		default:
			f.reply(nak)
		}

	case readAddr, goAddr, writeAddr:
		if len(frame) != 5 || xor(frame) != 0 {
			f.reply(nak)
			f.state = waitCmd
			return len(p), nil
		}
		f.addr = uint32(frame[0])<<24 | uint32(frame[1])<<16 | uint32(frame[2])<<8 | uint32(frame[3])
		f.reply(ack)
		switch f.state {
		case readAddr:
			f.state = readLen
		case goAddr:
			f.jumped = append(f.jumped, f.addr)
			f.state = waitCmd
		case writeAddr:
			f.state = writeData
		}

	case readLen:
		f.state = waitCmd
		if len(frame) != 2 || frame[0]^frame[1] != 0xff {
			f.reply(nak)
			return len(p), nil
		}
		f.reply(ack)
		for i := 0; i <= int(frame[0]); i++ {
			f.reply(f.peek(f.addr + uint32(i)))
		}

	case writeData:
		f.state = waitCmd
		if f.nakWrite || len(frame) < 3 || xor(frame) != 0 || int(frame[0])+3 != len(frame) {
			f.reply(nak)
			return len(p), nil
		}
		data := frame[1 : len(frame)-1]
		for i, v := range data {
			f.mem[f.addr+uint32(i)] = v
		}
		f.writes = append(f.writes, writeOp{addr: f.addr, n: len(data)})
		f.reply(ack)
	}
	return len(p), nil
}

func (f *fakeBootloader) Receive(p []byte, _ time.Duration) (int, error) {
	if len(f.out) == 0 {
		return 0, nil
	}
	n := copy(p, f.out)
	f.out = f.out[n:]
	return n, nil
}

func (f *fakeBootloader) peek(addr uint32) byte {
	if v, ok := f.stuck[addr]; ok {
		return v
	}
	if v, ok := f.mem[addr]; ok {
		return v
	}
	return 0xff
}
