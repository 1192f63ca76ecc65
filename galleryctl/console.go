package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"morty.dev/characters/gallery/core"
)

var (
	starColor    = color.New(color.FgHiYellow)
	idColor      = color.New(color.FgHiBlack)
	nameColor    = color.New(color.Bold)
	aliveColor   = color.New(color.FgHiGreen)
	deadColor    = color.New(color.FgRed)
	unknownColor = color.New(color.FgWhite)
	messageColor = color.New(color.FgYellow)
)

// consoleSurface prints cards one per line.
type consoleSurface struct {
	w     io.Writer
	lines int
}

func newConsoleSurface(w io.Writer) *consoleSurface {
	return &consoleSurface{w: w}
}

// Clear separates listings with a blank line.
func (s *consoleSurface) Clear() {
	if s.lines > 0 {
		fmt.Fprintln(s.w)
	}
	s.lines = 0
}

func (s *consoleSurface) Append(card core.Card) {
	star := "☆"
	if card.Favorite {
		star = starColor.Sprint("★")
	}
	fmt.Fprintf(s.w, "%s %s %s  %s / %s\n",
		star,
		idColor.Sprintf("#%-4d", card.ID),
		nameColor.Sprint(card.Name),
		statusColor(card.Status).Sprint(card.Status),
		card.Species,
	)
	s.lines++
}

func (s *consoleSurface) Message(text string) {
	messageColor.Fprintln(s.w, text)
	s.lines++
}

func statusColor(label string) *color.Color {
	switch label {
	case core.Translate(core.CategoryStatus, "Alive"):
		return aliveColor
	case core.Translate(core.CategoryStatus, "Dead"):
		return deadColor
	default:
		return unknownColor
	}
}
