package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// printer writes human-readable command output. Colour is used only when
// stdout is a terminal and --no-color was not given.
type printer struct {
	w io.Writer

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	gray   *color.Color
	bold   *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:      w,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		gray:   color.New(color.FgHiBlack),
		bold:   color.New(color.Bold),
	}
	if noColor || !isTerminal(w) {
		for _, c := range []*color.Color{p.green, p.yellow, p.red, p.gray, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int on supported platforms
}

func (p *printer) heading(format string, args ...any) {
	fmt.Fprintln(p.w, p.bold.Sprintf(format, args...))
}

func (p *printer) ok(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.green.Sprint("✓"), fmt.Sprintf(format, args...))
}

func (p *printer) warn(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.yellow.Sprint("!"), fmt.Sprintf(format, args...))
}

func (p *printer) fail(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.red.Sprint("✗"), fmt.Sprintf(format, args...))
}

func (p *printer) item(format string, args ...any) {
	fmt.Fprintf(p.w, "    %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) dim(format string, args ...any) {
	fmt.Fprintln(p.w, p.gray.Sprintf(format, args...))
}

// status reports a boolean check as ok or fail.
func (p *printer) status(good bool, format string, args ...any) {
	if good {
		p.ok(format, args...)
		return
	}
	p.fail(format, args...)
}
