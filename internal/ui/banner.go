package ui

import (
	"io"

	"github.com/common-nighthawk/go-figure"
)

// Banner returns the session banner. It is plain text when color is off.
func Banner(title string) string {
	if noColor() {
		return figure.NewFigure(title, "small", true).String()
	}
	return figure.NewColorFigure(title, "small", "green", true).ColorString()
}

// PrintBanner writes the session banner to w.
func PrintBanner(w io.Writer, title string) {
	io.WriteString(w, EnsureNewline(Banner(title)))
}
