package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/lootmap/pkg/location"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// styles renders text output. Colors are only emitted when the writer is
// a terminal.
type styles struct {
	title     lipgloss.Style
	available lipgloss.Style
	looted    lipgloss.Style
	teleport  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:     r.NewStyle().Bold(true),
		available: r.NewStyle().Foreground(lipgloss.Color("10")),
		looted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		teleport:  r.NewStyle().Faint(true),
	}
}

func (st styles) status(inst location.Instance) string {
	if inst.Looted {
		return st.looted.Render(inst.StatusText())
	}
	return st.available.Render(inst.StatusText())
}

func (st styles) instance(inst location.Instance) string {
	return fmt.Sprintf("#%d %s (%s) %s", inst.Index, inst.Coords, st.status(inst), st.teleport.Render(inst.Coords.TeleportCommand()))
}

func (st styles) location(loc location.Location) string {
	var b strings.Builder
	b.WriteString(st.title.Render(fmt.Sprintf("%s - %d instance(s)", loc.DisplayName(), len(loc.Instances))))
	for _, inst := range loc.Instances {
		b.WriteString("\n")
		b.WriteString(st.instance(inst))
	}
	return b.String()
}

func (st styles) locations(locs []location.Location) string {
	parts := make([]string, len(locs))
	for i, loc := range locs {
		parts[i] = st.location(loc)
	}
	return strings.Join(parts, "\n\n")
}
