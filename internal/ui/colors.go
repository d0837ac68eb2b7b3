package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/aday913/notion-letterboxd-sync/internal/models"
)

// DefaultPalette is used by the CLI unless --no-color is set.
var DefaultPalette = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		label: NewStyle(h).Width(labelWidth),
	}
}

// PlainPalette renders text without any styling.
func PlainPalette() *Palette {
	plain := lipgloss.NewStyle()
	return &Palette{
		title: plain.MarginBottom(1),
		ok:    plain,
		err:   plain,
		warn:  plain,
		help:  plain,
		label: plain.Width(labelWidth),
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

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Status colors a run status: green for success, orange for partial, red for failure.
func (p *Palette) Status(s models.RunStatus) string {
	return p.statusStyle(s).Render(string(s))
}

func (p *Palette) statusStyle(s models.RunStatus) lipgloss.Style {
	switch s {
	case models.RunSucceeded:
		return p.ok
	case models.RunPartial:
		return p.warn
	case models.RunFailed:
		return p.err
	default:
		return p.help
	}
}

func (p *Palette) itemStyle(s models.ItemStatus) lipgloss.Style {
	switch s {
	case models.ItemCreated:
		return p.ok
	case models.ItemFailed:
		return p.err
	default:
		return p.help
	}
}
