package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
   ┌─┐┌┬┐┌─┐┌─┐┬─┐┌─┐┌─┐┌─┐┬─┐
   ├─┘ │ └─┐│  ├┬┘├─┤├─┘├┤ ├┬┘
   ┴   ┴ └─┘└─┘┴└─┴ ┴┴  └─┘┴└─
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// Console prints stage banners and progress for a human watching the run
type Console struct {
	out         io.Writer
	interactive bool
	quiet       bool
}

// NewConsole writes to f, using colour and live progress only when f is a terminal
func NewConsole(f *os.File, quiet bool) *Console {
	return &Console{
		out:         f,
		interactive: term.IsTerminal(int(f.Fd())),
		quiet:       quiet,
	}
}

// NewWriterConsole writes plain or interactive output to any writer
func NewWriterConsole(out io.Writer, interactive, quiet bool) *Console {
	return &Console{out: out, interactive: interactive, quiet: quiet}
}

func (c *Console) paint(color func(string) string, s string) string {
	if !c.interactive {
		return s
	}
	return color(s)
}

// Logo prints the ASCII logo
func (c *Console) Logo() {
	if c.quiet || !c.interactive {
		return
	}
	fmt.Fprint(c.out, Cyan(ASCIILogo))
}

// Step announces a stage, with an optional count of new jobs
func (c *Console) Step(n int, text string, jobs int) {
	if c.quiet {
		return
	}
	line := fmt.Sprintf("Step %d: %s", n, text)
	if jobs >= 0 {
		line += fmt.Sprintf(" (%d)", jobs)
	}
	fmt.Fprintln(c.out, c.paint(Cyan, line))
}

// Skipped announces a stage that had nothing to do
func (c *Console) Skipped(n int, text string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, c.paint(Dim, fmt.Sprintf("Step %d: %s (Skipped)", n, text)))
}

// Warn prints a warning line
func (c *Console) Warn(msg string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, c.paint(Yellow, msg))
}

// Success prints a success line
func (c *Console) Success(msg string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, c.paint(Green, msg))
}

// Info prints a label/value pair
func (c *Console) Info(label, value string) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "%s: %s\n", c.paint(Cyan, label), c.paint(Yellow, value))
}
