package an3155

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lvdlvd/srecloader/loader"
)

func TestPageWriterCoalesces(t *testing.T) {
	f := newFake()
	w := NewPageWriter(connected(t, f))

	for i := 0; i < 10; i++ {
		if err := w.Write(0x100+uint32(i), byte(i)); err != nil {
			t.Fatal(err)
		}
	}
	if len(f.writes) != 0 {
		t.Fatalf("wrote before Flush: %v", f.writes)
	}
	if err := w.Write(0x200, 0xaa); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := []writeOp{{0x100, 12}, {0x200, 4}}
	if len(f.writes) != len(want) || f.writes[0] != want[0] || f.writes[1] != want[1] {
		t.Fatalf("writes = %v, want %v", f.writes, want)
	}
	if w.Pages() != 2 {
		t.Errorf("Pages() = %d, want 2", w.Pages())
	}
	for _, a := range []uint32{0x10a, 0x10b, 0x201, 0x202, 0x203} {
		if f.mem[a] != 0xff {
			t.Errorf("padding at %#x = %#x, want 0xff", a, f.mem[a])
		}
	}
	if f.mem[0x109] != 9 || f.mem[0x200] != 0xaa {
		t.Error("data bytes not written")
	}
}

func TestPageWriterPageSize(t *testing.T) {
	tests := []struct {
		size  int
		bytes int
		want  []int
	}{
		{size: 8, bytes: 20, want: []int{8, 8, 4}},
		{size: 10, bytes: 20, want: []int{8, 8, 4}},
		{size: 1, bytes: 6, want: []int{4, 4}},
		{size: 4096, bytes: 300, want: []int{256, 44}},
	}
	for _, tt := range tests {
		f := newFake()
		w := NewPageWriter(connected(t, f), WithPageSize(tt.size))
		for i := 0; i < tt.bytes; i++ {
			if err := w.Write(uint32(i), byte(i)); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Flush(); err != nil {
			t.Fatal(err)
		}
		var got []int
		for _, op := range f.writes {
			got = append(got, op.n)
		}
		if len(got) != len(tt.want) {
			t.Errorf("size %d: writes %v, want %v", tt.size, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("size %d: writes %v, want %v", tt.size, got, tt.want)
				break
			}
		}
	}
}

func TestPageWriterVerify(t *testing.T) {
	f := newFake()
	f.stuck[0x0802] = 0x00
	w := NewPageWriter(connected(t, f), WithVerify(true))

	for i := 0; i < 4; i++ {
		if err := w.Write(0x0800+uint32(i), 0x5a); err != nil {
			t.Fatal(err)
		}
	}
	err := w.Flush()
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("Flush() error = %v, want *VerificationError", err)
	}
	if verr.Address != 0x0802 || verr.Expected != 0x5a || verr.Actual != 0 {
		t.Errorf("VerificationError = %+v", verr)
	}
}

func TestPageWriterVerifyPasses(t *testing.T) {
	f := newFake()
	w := NewPageWriter(connected(t, f), WithVerify(true))
	for i := 0; i < 5; i++ {
		if err := w.Write(0x2000+uint32(i), byte(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
}

func TestPageWriterWriteFailure(t *testing.T) {
	f := newFake()
	w := NewPageWriter(connected(t, f), WithPageSize(4))
	f.nakWrite = true
	for i := 0; i < 4; i++ {
		if err := w.Write(uint32(i), 0); err != nil {
			t.Fatalf("Write() error = %v before Flush", err)
		}
	}
	if err := w.Flush(); !errors.Is(err, ErrNAK) {
		t.Errorf("Flush() error = %v, want ErrNAK", err)
	}
}

func TestDownloadThroughPageWriter(t *testing.T) {
	const src = "S00600004844521B\n" +
		"S10510001020BA\n" +
		"S104100230B9\n" +
		"S104080001F2\n" +
		"S5030003F9\n" +
		"S9030000FC\n"

	f := newFake()
	w := NewPageWriter(connected(t, f))
	res, err := loader.New(loader.WithRecordCountCheck(true)).Run(context.Background(), strings.NewReader(src), w)
	if err != nil {
		t.Fatal(err)
	}
	if res.BytesWritten != 4 || res.MinAddress != 0x0800 || res.MaxAddress != 0x1002 {
		t.Errorf("Run() = %+v", res)
	}

	want := []writeOp{{0x0800, 4}, {0x1000, 4}}
	if len(f.writes) != len(want) || f.writes[0] != want[0] || f.writes[1] != want[1] {
		t.Fatalf("writes = %v, want %v", f.writes, want)
	}
	for a, v := range map[uint32]byte{0x1000: 0x10, 0x1001: 0x20, 0x1002: 0x30, 0x1003: 0xff, 0x0800: 0x01} {
		if f.mem[a] != v {
			t.Errorf("mem[%#x] = %#x, want %#x", a, f.mem[a], v)
		}
	}
}

func TestPageWriterCompareOnly(t *testing.T) {
	f := newFake()
	f.mem[0x40] = 0x11
	f.mem[0x41] = 0x22
	w := NewPageWriter(connected(t, f), WithCompareOnly(true))

	for i, v := range []byte{0x11, 0x22} {
		if err := w.Write(0x40+uint32(i), v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(f.writes) != 0 {
		t.Errorf("compare only wrote %v", f.writes)
	}

	if err := w.Write(0x41, 0x23); err != nil {
		t.Fatal(err)
	}
	var verr *VerificationError
	if err := w.Flush(); !errors.As(err, &verr) || verr.Actual != 0x22 {
		t.Errorf("Flush() error = %v, want mismatch at 0x41", err)
	}
}

func TestPageWriterPaddingKeepsImageBytes(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  map[uint32]byte
		write []writeOp
	}{
		{
			name: "out of order",
			src:  "S107010401020304E9\nS1040101AA4F\nS9030000FC\n",
			want: map[uint32]byte{
				0x100: 0xff, 0x101: 0xaa, 0x102: 0xff, 0x103: 0xff,
				0x104: 0x01, 0x105: 0x02, 0x106: 0x03, 0x107: 0x04,
			},
			write: []writeOp{{0x100, 8}},
		},
		{
			name:  "gap inside a word",
			src:   "S104100110DA\nS104100320C8\nS9030000FC\n",
			want:  map[uint32]byte{0x1000: 0xff, 0x1001: 0x10, 0x1002: 0xff, 0x1003: 0x20},
			write: []writeOp{{0x1000, 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			w := NewPageWriter(connected(t, f), WithVerify(true))
			if _, err := loader.New().Run(context.Background(), strings.NewReader(tt.src), w); err != nil {
				t.Fatal(err)
			}
			for a, v := range tt.want {
				if f.mem[a] != v {
					t.Errorf("mem[%#x] = %#x, want %#x", a, f.mem[a], v)
				}
			}
			if len(f.writes) != len(tt.write) {
				t.Fatalf("writes = %v, want %v", f.writes, tt.write)
			}
			for i := range tt.write {
				if f.writes[i] != tt.write[i] {
					t.Errorf("write %d = %v, want %v", i, f.writes[i], tt.write[i])
				}
			}
		})
	}
}

func TestPageWriterVerifyCoversPadding(t *testing.T) {
	f := newFake()
	f.stuck[0x103] = 0x00
	w := NewPageWriter(connected(t, f), WithVerify(true))
	if err := w.Write(0x101, 0xaa); err != nil {
		t.Fatal(err)
	}
	var verr *VerificationError
	if err := w.Flush(); !errors.As(err, &verr) || verr.Address != 0x103 || verr.Expected != 0xff {
		t.Errorf("Flush() error = %v, want mismatch on the pad byte at 0x103", err)
	}
}
