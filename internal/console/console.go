// Package console is the plotter's leveled terminal output. Normal output
// honors quiet mode; warnings and errors always reach stderr.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Console writes leveled output to the terminal.
type Console struct {
	quiet bool
	out   io.Writer
	errw  io.Writer
}

// New returns a console; quiet suppresses everything except warnings and
// errors.
func New(quiet bool) *Console {
	return &Console{quiet: quiet, out: os.Stdout, errw: os.Stderr}
}

// Quiet reports whether normal output is suppressed.
func (c *Console) Quiet() bool { return c.quiet }

// Printf writes a normal output line.
func (c *Console) Printf(format string, args ...interface{}) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Headerf writes a highlighted section line.
func (c *Console) Headerf(format string, args ...interface{}) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, headerStyle.Render(fmt.Sprintf(format, args...)))
}

// Warnf writes a warning to stderr; shown even in quiet mode.
func (c *Console) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(c.errw, warnStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf writes an error to stderr.
func (c *Console) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(c.errw, errorStyle.Render("Error: "+fmt.Sprintf(format, args...)))
}
