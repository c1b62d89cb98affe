// Package console provides terminal output and the interactive menu.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Printer handles formatted output to the terminal
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
}

// ResolveColors reports whether to colour output: configColors, unless
// NO_COLOR is set or the terminal is dumb.
func ResolveColors(configColors bool) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return configColors
}

// NewPrinter creates a printer writing to out and errOut. Nil writers
// default to stdout and stderr.
func NewPrinter(out, errOut io.Writer, useColors bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, useColors: useColors}
}

// SetQuiet suppresses everything except errors.
func (p *Printer) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Info prints an informational message
func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

// Print prints a plain message
func (p *Printer) Print(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Menu prints a line of interactive text. It is shown in quiet mode.
func (p *Printer) Menu(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Prompt prints text without a trailing newline.
func (p *Printer) Prompt(text string) {
	if p.useColors {
		color.New(color.Bold).Fprint(p.out, text)
	} else {
		fmt.Fprint(p.out, text)
	}
}

// Banner prints a title between rule lines.
func (p *Printer) Banner(title string) {
	if p.quiet {
		return
	}
	rule := strings.Repeat("=", 57)
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "%s\n%s\n%s\n", rule, title, rule)
	} else {
		fmt.Fprintf(p.out, "%s\n%s\n%s\n", rule, title, rule)
	}
}
