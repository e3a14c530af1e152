package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// kind returns the style and marker for a diff status.
func (p *Palette) kind(k tasks.DiffKind) (lipgloss.Style, string) {
	switch k {
	case tasks.DiffMatched:
		return p.ok, "✓"
	case tasks.DiffShifted:
		return p.warn, "↕"
	case tasks.DiffMissing:
		return p.err, "✗"
	default:
		return p.help, "·"
	}
}

// paint renders s with style when styled is set.
func paint(styled bool, style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}
