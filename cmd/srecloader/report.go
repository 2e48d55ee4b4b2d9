package main

import (
	"fmt"
	"strings"

	"github.com/lvdlvd/srecloader/loader"
)

// Summary describes a decoded or downloaded image.
type Summary struct {
	File       string    `json:"file" yaml:"file"`
	Format     string    `json:"format" yaml:"format"`
	Header     string    `json:"header,omitempty" yaml:"header,omitempty"`
	Family     string    `json:"family" yaml:"family"`
	Records    int       `json:"records" yaml:"records"`
	Bytes      int       `json:"bytes" yaml:"bytes"`
	MinAddress string    `json:"min_address,omitempty" yaml:"min_address,omitempty"`
	MaxAddress string    `json:"max_address,omitempty" yaml:"max_address,omitempty"`
	Entry      string    `json:"entry" yaml:"entry"`
	Terminated bool      `json:"terminated" yaml:"terminated"`
	Segments   []Segment `json:"segments,omitempty" yaml:"segments,omitempty"`

	// Set by flash only.
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	Pages    int    `json:"pages,omitempty" yaml:"pages,omitempty"`
	Verified bool   `json:"verified,omitempty" yaml:"verified,omitempty"`
	Started  string `json:"started,omitempty" yaml:"started,omitempty"`
}

// Segment is a contiguous block of the image.
type Segment struct {
	Address string `json:"address" yaml:"address"`
	Size    int    `json:"size" yaml:"size"`
}

func hex32(v uint32) string { return fmt.Sprintf("0x%08x", v) }

func newSummary(file, format string, res loader.Result) *Summary {
	s := &Summary{
		File:       file,
		Format:     format,
		Header:     res.Header,
		Family:     res.Family.String(),
		Records:    res.Records,
		Bytes:      res.BytesWritten,
		Entry:      hex32(res.EntryAddress),
		Terminated: res.Terminated,
	}
	if res.MixedFamilies {
		s.Family += " (mixed)"
	}
	if res.BytesWritten > 0 {
		s.MinAddress = hex32(res.MinAddress)
		s.MaxAddress = hex32(res.MaxAddress)
	}
	return s
}

func (s *Summary) Title() string { return s.File }

func (s *Summary) Fields() []Field {
	fields := []Field{{"format", s.Format}}
	if s.Header != "" {
		fields = append(fields, Field{"header", s.Header})
	}
	fields = append(fields,
		Field{"family", s.Family},
		Field{"records", fmt.Sprint(s.Records)},
	)
	if s.Bytes > 0 {
		fields = append(fields, Field{"range", fmt.Sprintf("%s-%s, %d bytes", s.MinAddress, s.MaxAddress, s.Bytes)})
	} else {
		fields = append(fields, Field{"range", "empty"})
	}
	fields = append(fields, Field{"entry", s.Entry})
	for i, seg := range s.Segments {
		fields = append(fields, Field{fmt.Sprintf("segment %d", i), fmt.Sprintf("%s +%d", seg.Address, seg.Size)})
	}
	if s.Port != "" {
		fields = append(fields, Field{"port", s.Port}, Field{"pages", fmt.Sprint(s.Pages)})
	}
	if s.Verified {
		fields = append(fields, Field{"verified", "yes"})
	}
	if s.Started != "" {
		fields = append(fields, Field{"started", s.Started})
	}
	return fields
}

// ProbeInfo is what the bootloader reports about itself.
type ProbeInfo struct {
	Port           string   `json:"port" yaml:"port"`
	Version        string   `json:"version" yaml:"version"`
	Commands       string   `json:"commands" yaml:"commands"`
	ProductID      string   `json:"product_id" yaml:"product_id"`
	ReadProtection string   `json:"read_protection,omitempty" yaml:"read_protection,omitempty"` // GETV option bytes
	OptionBytes    []string `json:"option_bytes,omitempty" yaml:"option_bytes,omitempty"`
}

func (p *ProbeInfo) Title() string { return p.Port }

func (p *ProbeInfo) Fields() []Field {
	fields := []Field{
		{"version", p.Version},
		{"commands", p.Commands},
		{"product id", p.ProductID},
	}
	if p.ReadProtection != "" {
		fields = append(fields, Field{"read protection", p.ReadProtection})
	}
	for _, l := range p.OptionBytes {
		fields = append(fields, Field{"option bytes", l})
	}
	return fields
}

// Dump is a hexdump of target memory.
type Dump struct {
	Address string   `json:"address" yaml:"address"`
	Lines   []string `json:"lines" yaml:"lines"`
}

func (d *Dump) Title() string { return d.Address }

func (d *Dump) Fields() []Field {
	fields := make([]Field, 0, len(d.Lines))
	for _, l := range d.Lines {
		addr, data, _ := strings.Cut(l, ": ")
		fields = append(fields, Field{addr, data})
	}
	return fields
}

// hexdump formats buf as lines of 16 bytes, each prefixed by its address.
func hexdump(addr uint32, buf []byte) []string {
	var lines []string
	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		lines = append(lines, fmt.Sprintf("%08x: % x", addr+uint32(i), buf[i:end]))
	}
	return lines
}
