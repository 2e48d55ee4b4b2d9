package srec

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncoderRoundTrip(t *testing.T) {
	type chunk struct {
		addr uint32
		data []byte
	}
	pattern := func(n int, seed byte) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = seed + byte(i*7)
		}
		return b
	}

	tests := []struct {
		name     string
		family   Family
		lineSize int
		chunks   []chunk
	}{
		{
			name:   "S1 single chunk",
			family: Family16,
			chunks: []chunk{{0x0000, pattern(40, 1)}},
		},
		{
			name:     "S2 two chunks odd line size",
			family:   Family24,
			lineSize: 5,
			chunks:   []chunk{{0x010000, pattern(12, 3)}, {0x020010, pattern(3, 9)}},
		},
		{
			name:     "S3 large lines",
			family:   Family32,
			lineSize: 250,
			chunks:   []chunk{{0x08000000, pattern(600, 0x55)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc := NewEncoder(&buf, tt.family, tt.lineSize)
			if err := enc.WriteHeader("test"); err != nil {
				t.Fatal(err)
			}
			for _, c := range tt.chunks {
				if err := enc.WriteData(c.addr, c.data); err != nil {
					t.Fatal(err)
				}
			}
			if err := enc.WriteCount(); err != nil {
				t.Fatal(err)
			}
			if err := enc.Close(0x1234); err != nil {
				t.Fatal(err)
			}

			recs, err := ReadAll(strings.NewReader(buf.String()))
			if err != nil {
				t.Fatalf("ReadAll() error = %v\n%s", err, buf.String())
			}

			got := map[uint32]byte{}
			dataRecords := 0
			for _, r := range recs {
				if !r.Valid() {
					t.Errorf("invalid record %+v", *r)
				}
				if r.Category() != DataRecord {
					continue
				}
				dataRecords++
				if r.Type.Family() != tt.family {
					t.Errorf("record family %v, want %v", r.Type.Family(), tt.family)
				}
				for i, b := range r.Data {
					got[r.Address+uint32(i)] = b
				}
			}

			want := map[uint32]byte{}
			for _, c := range tt.chunks {
				for i, b := range c.data {
					want[c.addr+uint32(i)] = b
				}
			}
			if len(got) != len(want) {
				t.Fatalf("decoded %d bytes, want %d", len(got), len(want))
			}
			for a, b := range want {
				if got[a] != b {
					t.Fatalf("byte at 0x%X = 0x%02X, want 0x%02X", a, got[a], b)
				}
			}

			first, last := recs[0], recs[len(recs)-1]
			if first.Type != Header || string(first.Data) != "test" {
				t.Errorf("first record = %v %q, want S0 \"test\"", first.Type, first.Data)
			}
			if last.Type != tt.family.TermType() || last.Address != 0x1234 {
				t.Errorf("last record = %v 0x%X, want %v 0x1234", last.Type, last.Address, tt.family.TermType())
			}
			count := recs[len(recs)-2]
			if count.Category() != CountRecord || int(count.Address) != dataRecords {
				t.Errorf("count record = %v %d, want %d data records", count.Type, count.Address, dataRecords)
			}
		})
	}
}

func TestEncoderRecordTooLong(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Family32, 0)
	if err := enc.WriteRecord(Data32, 0, make([]byte, 251)); err == nil {
		t.Error("WriteRecord() accepted 251 data bytes in an S3 record")
	}
	if err := enc.WriteRecord(Type(4), 0, nil); err == nil {
		t.Error("WriteRecord() accepted type 4")
	}
}

func TestFamilyFor(t *testing.T) {
	tests := []struct {
		end  uint64
		want Family
	}{
		{0x100, Family16},
		{0x10000, Family16},
		{0x10001, Family24},
		{0x1000000, Family24},
		{0x1000001, Family32},
	}
	for _, tt := range tests {
		if got := FamilyFor(tt.end); got != tt.want {
			t.Errorf("FamilyFor(0x%X) = %v, want %v", tt.end, got, tt.want)
		}
	}
}

func TestTypeInfo(t *testing.T) {
	tests := []struct {
		typ      Type
		category Category
		width    int
		family   Family
	}{
		{Header, HeaderRecord, 2, NoFamily},
		{Data16, DataRecord, 2, Family16},
		{Data24, DataRecord, 3, Family24},
		{Data32, DataRecord, 4, Family32},
		{Type(4), Unknown, 0, NoFamily},
		{Count16, CountRecord, 2, NoFamily},
		{Count24, CountRecord, 3, NoFamily},
		{Term32, TerminatorRecord, 4, Family32},
		{Term24, TerminatorRecord, 3, Family24},
		{Term16, TerminatorRecord, 2, Family16},
		{Type(10), Unknown, 0, NoFamily},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			c, w := tt.typ.Info()
			if c != tt.category || w != tt.width {
				t.Errorf("Info() = %v, %d, want %v, %d", c, w, tt.category, tt.width)
			}
			if f := tt.typ.Family(); f != tt.family {
				t.Errorf("Family() = %v, want %v", f, tt.family)
			}
		})
	}

	for _, f := range []Family{Family16, Family24, Family32} {
		if f.DataType().Family() != f.TermType().Family() {
			t.Errorf("%v: data %v and terminator %v disagree", f, f.DataType(), f.TermType())
		}
	}
}
