// Package report renders engine results for terminals and machines. It holds
// no domain logic: every record arrives fully formed.
package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette
var (
	ColorOK      = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorHuman   = lipgloss.Color("#C0392B")
	ColorAccent  = lipgloss.Color("#20B9B4")
	ColorMuted   = lipgloss.Color("#5C7A84")
)

// Icon marks a result line
type Icon string

const (
	IconOK      Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconHuman   Icon = "⛔"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

type styles struct {
	title   lipgloss.Style
	bold    lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	human   lipgloss.Style
	accent  lipgloss.Style
	box     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorAccent),
		bold:    r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(ColorMuted),
		ok:      r.NewStyle().Foreground(ColorOK),
		warning: r.NewStyle().Foreground(ColorWarning),
		err:     r.NewStyle().Foreground(ColorError),
		human:   r.NewStyle().Bold(true).Foreground(ColorHuman),
		accent:  r.NewStyle().Foreground(ColorAccent),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1),
	}
}

// ColorEnabled decides whether w gets ANSI styling. mode is auto, always or
// never; auto colours only terminals and honours NO_COLOR.
func ColorEnabled(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes human-readable reports
type Printer struct {
	w     io.Writer
	color bool
	s     styles
}

// New creates a printer for w with the given colour mode
func New(w io.Writer, colorMode string) *Printer {
	color := ColorEnabled(w, colorMode)
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.TrueColor)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{w: w, color: color, s: newStyles(r)}
}

func (p *Printer) icon(i Icon) string {
	switch i {
	case IconOK:
		return p.s.ok.Render(string(i))
	case IconWarning:
		return p.s.warning.Render(string(i))
	case IconError:
		return p.s.err.Render(string(i))
	case IconHuman:
		return p.s.human.Render(string(i))
	}
	return string(i)
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
