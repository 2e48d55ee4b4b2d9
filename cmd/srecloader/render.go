package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format is an output format for summaries.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a --format value. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be text, json, or yaml)", s)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	plainLabel = lipgloss.NewStyle().Width(14)
)

// Field is one label/value line of text output.
type Field struct {
	Label string
	Value string
}

// Report is anything a command prints as its result.
type Report interface {
	Title() string
	Fields() []Field
}

// Renderer prints reports in the selected format.
type Renderer struct {
	format Format
	color  bool
	out    io.Writer
}

// NewRenderer creates a renderer from --format and --no-color. Text output
// is colored only when stdout is a terminal.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	color := !c.Bool("no-color") && isTerminal(os.Stdout)
	return &Renderer{format: format, color: color, out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer writing to out.
func NewRendererWithWriter(format Format, color bool, out io.Writer) *Renderer {
	return &Renderer{format: format, color: color, out: out}
}

// Render writes rep.
func (r *Renderer) Render(rep Report) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return r.renderText(rep)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderText(rep Report) error {
	var b strings.Builder
	if r.color {
		b.WriteString(titleStyle.Render(rep.Title()))
	} else {
		b.WriteString(rep.Title())
	}
	b.WriteByte('\n')

	for _, f := range rep.Fields() {
		if r.color {
			b.WriteString(labelStyle.Render(f.Label))
			b.WriteString(valueStyle.Render(f.Value))
		} else {
			b.WriteString(plainLabel.Render(f.Label))
			b.WriteString(f.Value)
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}

// Success prints a one line confirmation in text mode.
func (r *Renderer) Success(msg string) {
	if r.format != FormatText {
		return
	}
	if r.color {
		msg = successStyle.Render(msg)
	}
	fmt.Fprintln(r.out, msg)
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
