package ui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// Spinner animates on w while a slow operation runs. It stays silent when w
// is not a terminal.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner writing to w. quiet disables it.
func NewSpinner(w io.Writer, quiet bool) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	// Continue without color if the terminal rejects it.
	_ = s.Color("cyan")

	return &Spinner{s: s, enabled: !quiet && isTerminal(w)}
}

// Start shows msg next to the animation.
func (sp *Spinner) Start(msg string) {
	if !sp.enabled {
		return
	}
	sp.s.Suffix = " " + msg
	sp.s.Start()
}

// Stop clears the spinner line.
func (sp *Spinner) Stop() {
	if !sp.enabled {
		return
	}
	sp.s.Stop()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
