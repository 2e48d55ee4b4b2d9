package an3155

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/lvdlvd/srecloader/log"
)

// VerificationError reports a byte that read back differently from what
// was written.
type VerificationError struct {
	Address  uint32
	Expected byte
	Actual   byte
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed at address 0x%08x: expected %02x, found %02x",
		e.Address, e.Expected, e.Actual)
}

// PageWriter turns single byte writes into Write Memory commands.
//
// Bytes are held in 4-byte aligned words until Flush, which sends every
// run of consecutive words in pages of up to PageSize bytes. Word bytes the
// image never wrote are sent as 0xff, so padding can never land on image
// data whatever order the records arrive in. It implements loader.Writer
// and loader.Flusher.
type PageWriter struct {
	c           *Client
	pageSize    int
	verify      bool
	compareOnly bool

	words map[uint32]*word

	pages int
}

// word is one aligned flash word. Bit i of set is 1 when data[i] came from
// the image.
type word struct {
	data [4]byte
	set  uint8
}

// PageOption configures a PageWriter.
type PageOption func(*PageWriter)

// WithPageSize sets the page size, rounded down to a multiple of 4 and
// clamped to 4..MaxTransfer.
func WithPageSize(n int) PageOption {
	return func(w *PageWriter) {
		n &^= 3
		if n < 4 {
			n = 4
		}
		if n > MaxTransfer {
			n = MaxTransfer
		}
		w.pageSize = n
	}
}

// WithVerify reads every page back after writing it, padding included.
func WithVerify(verify bool) PageOption {
	return func(w *PageWriter) {
		w.verify = verify
	}
}

// WithCompareOnly makes the writer read every page back and compare it
// without writing anything.
func WithCompareOnly(compare bool) PageOption {
	return func(w *PageWriter) {
		w.compareOnly = compare
	}
}

// NewPageWriter returns a writer sending pages through c.
func NewPageWriter(c *Client, opts ...PageOption) *PageWriter {
	w := &PageWriter{c: c, pageSize: MaxTransfer, words: map[uint32]*word{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write queues b for addr. Nothing is sent before Flush. A second write to
// the same address replaces the first.
func (w *PageWriter) Write(addr uint32, b byte) error {
	base := addr &^ 3
	wd := w.words[base]
	if wd == nil {
		wd = &word{data: [4]byte{0xff, 0xff, 0xff, 0xff}}
		w.words[base] = wd
	}
	i := addr & 3
	wd.data[i] = b
	wd.set |= 1 << i
	return nil
}

// Flush sends everything queued, in address order.
func (w *PageWriter) Flush() error {
	if len(w.words) == 0 {
		return nil
	}
	words := w.words
	w.words = map[uint32]*word{}

	bases := make([]uint32, 0, len(words))
	for a := range words {
		bases = append(bases, a)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	page := make([]byte, 0, w.pageSize)
	set := make([]uint8, 0, w.pageSize/4)
	for i := 0; i < len(bases); {
		start := bases[i]
		page, set = page[:0], set[:0]
		for ; i < len(bases) && len(page) < w.pageSize && bases[i] == start+uint32(len(page)); i++ {
			wd := words[bases[i]]
			page = append(page, wd.data[:]...)
			set = append(set, wd.set)
		}
		if err := w.send(start, page, set); err != nil {
			return err
		}
	}
	return nil
}

func (w *PageWriter) send(addr uint32, page []byte, set []uint8) error {
	if !w.compareOnly {
		if err := w.c.WriteMemory(addr, page); err != nil {
			return err
		}
	}
	w.pages++

	if !w.verify && !w.compareOnly {
		return nil
	}
	got, err := w.c.ReadMemory(addr, len(page))
	if err != nil {
		return fmt.Errorf("reading back: %w", err)
	}
	for i, v := range page {
		// Compare mode wrote nothing, so only image bytes are known.
		if w.compareOnly && set[i/4]&(1<<(i%4)) == 0 {
			continue
		}
		if got[i] != v {
			return &VerificationError{Address: addr + uint32(i), Expected: v, Actual: got[i]}
		}
	}
	w.c.log.Debug("verified", log.Hex("address", addr), zap.Int("bytes", len(page)))
	return nil
}

// Pages returns the number of pages sent so far.
func (w *PageWriter) Pages() int { return w.pages }
