// Package presenter provides consistent CLI output for user-facing messages,
// including validation findings and summaries, with color support and quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Level classifies a finding for display.
type Level string

// Finding levels
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Finding(level Level, code, location, message, suggestion string)
	Summary(subject string, errors, warnings int)
	Separator()
	SetQuiet(quiet bool)
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto automatically detects whether to use colored output based on terminal capabilities
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output regardless of terminal capabilities
	ColorAlways
	// ColorNever disables colored output regardless of terminal capabilities
	ColorNever
)

// NewWithWriters creates a TerminalPresenter on the given writers, detecting
// the color mode from the environment.
func NewWithWriters(output, errorOutput io.Writer) *TerminalPresenter {
	return NewWithOptions(output, errorOutput, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	presenter := &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}

	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	case ColorAuto:
		// Let color package auto-detect
	}

	return presenter
}

// detectColorMode honours NO_COLOR first, then SKILLKIT_COLOR.
func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SKILLKIT_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message to stderr. It is shown even in quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message on the error output, so that it never
// mixes with machine-readable stdout.
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}

	warningColor := color.New(color.FgYellow, color.Bold)
	warningColor.Fprintf(p.errorOutput, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}

	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

// Finding displays one validation finding, followed by its suggestion when
// there is one. Error findings are printed in quiet mode too.
func (p *TerminalPresenter) Finding(level Level, code, location, message, suggestion string) {
	if p.quiet && level != LevelError {
		return
	}

	marker, levelColor := "⚠", color.New(color.FgYellow, color.Bold)
	if level == LevelError {
		marker, levelColor = "✗", color.New(color.FgRed, color.Bold)
	}

	levelColor.Fprintf(p.output, "%s %-7s %s", marker, level, code)
	if location != "" {
		fmt.Fprintf(p.output, " %s:", location)
	}
	fmt.Fprintf(p.output, " %s\n", message)
	if suggestion != "" {
		color.New(color.Faint).Fprintf(p.output, "    hint: %s\n", suggestion)
	}
}

// Summary displays the closing line of a validation run.
func (p *TerminalPresenter) Summary(subject string, errors, warnings int) {
	line := fmt.Sprintf("%s: %s, %s", subject, plural(errors, "error"), plural(warnings, "warning"))
	switch {
	case errors > 0:
		color.New(color.FgRed, color.Bold).Fprintf(p.output, "✗ %s\n", line)
	case p.quiet:
	case warnings > 0:
		color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", line)
	default:
		color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", line)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}

	separatorColor := color.New(color.Faint)
	separatorColor.Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}
