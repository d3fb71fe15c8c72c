package presenter

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var output, errorOutput bytes.Buffer
	return NewWithOptions(&output, &errorOutput, ColorNever), &output, &errorOutput
}

func TestNewWithWriters(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithWriters(&output, &errorOutput)
	assert.Equal(t, &output, presenter.output)
	assert.Equal(t, &errorOutput, presenter.errorOutput)
	assert.False(t, presenter.quiet)
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		skillkitColor string
		expected      ColorMode
	}{
		{"NO_COLOR set", "1", "always", ColorNever},
		{"SKILLKIT_COLOR always", "", "always", ColorAlways},
		{"SKILLKIT_COLOR force", "", "force", ColorAlways},
		{"SKILLKIT_COLOR never", "", "never", ColorNever},
		{"SKILLKIT_COLOR off", "", "off", ColorNever},
		{"SKILLKIT_COLOR auto", "", "auto", ColorAuto},
		{"default", "", "", ColorAuto},
		{"invalid value", "", "rainbow", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("SKILLKIT_COLOR", tt.skillkitColor)
			if tt.noColor == "" {
				os.Unsetenv("NO_COLOR")
			}

			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	presenter, output, errorOutput := newTestPresenter()

	presenter.Error(errors.New("permission denied"), "failed to write archive")
	assert.Equal(t, "[ERROR] failed to write archive: permission denied\n", errorOutput.String())
	assert.Empty(t, output.String())

	errorOutput.Reset()
	presenter.Error(errors.New("permission denied"), "")
	assert.Equal(t, "[ERROR] permission denied\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())

	errorOutput.Reset()
	presenter.SetQuiet(true)
	presenter.Error(errors.New("still shown"), "")
	assert.Contains(t, errorOutput.String(), "still shown")
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name     string
		print    func(p *TerminalPresenter)
		expected string
		stderr   bool
	}{
		{"success", func(p *TerminalPresenter) { p.Success("Created pdf-tools") }, "✓ Created pdf-tools\n", false},
		{"warning", func(p *TerminalPresenter) { p.Warning("notes.txt is not packaged") }, "⚠ notes.txt is not packaged\n", true},
		{"info", func(p *TerminalPresenter) { p.Info("dist/pdf-tools-1.0.zip") }, "dist/pdf-tools-1.0.zip\n", false},
		{"section", func(p *TerminalPresenter) { p.Section("Members") }, "Members\n-------\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presenter, output, errorOutput := newTestPresenter()
			tt.print(presenter)
			written, other := output, errorOutput
			if tt.stderr {
				written, other = errorOutput, output
			}
			assert.Equal(t, tt.expected, written.String())
			assert.Empty(t, other.String())

			written.Reset()
			presenter.SetQuiet(true)
			tt.print(presenter)
			assert.Empty(t, written.String())
		})
	}
}

func TestFinding(t *testing.T) {
	presenter, output, _ := newTestPresenter()

	presenter.Finding(LevelError, "NameCharset", "SKILL.md", "uppercase letters are not allowed", "use lowercase letters")
	assert.Equal(t,
		"✗ error   NameCharset SKILL.md: uppercase letters are not allowed\n    hint: use lowercase letters\n",
		output.String())

	output.Reset()
	presenter.Finding(LevelWarning, "DescriptionTooShort", "", "description is short", "")
	assert.Equal(t, "⚠ warning DescriptionTooShort description is short\n", output.String())

	output.Reset()
	presenter.SetQuiet(true)
	presenter.Finding(LevelWarning, "BodyTooLong", "SKILL.md", "too long", "")
	assert.Empty(t, output.String())
	presenter.Finding(LevelError, "MissingDescriptor", "SKILL.md", "not found", "")
	assert.Contains(t, output.String(), "MissingDescriptor")
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name     string
		errors   int
		warnings int
		quiet    bool
		expected string
	}{
		{"clean", 0, 0, false, "✓ pdf-tools: 0 errors, 0 warnings\n"},
		{"warnings", 0, 1, false, "⚠ pdf-tools: 0 errors, 1 warning\n"},
		{"errors", 2, 3, false, "✗ pdf-tools: 2 errors, 3 warnings\n"},
		{"quiet clean", 0, 2, true, ""},
		{"quiet errors", 1, 0, true, "✗ pdf-tools: 1 error, 0 warnings\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presenter, output, _ := newTestPresenter()
			presenter.SetQuiet(tt.quiet)
			presenter.Summary("pdf-tools", tt.errors, tt.warnings)
			assert.Equal(t, tt.expected, output.String())
		})
	}
}

func TestSeparator(t *testing.T) {
	presenter, output, _ := newTestPresenter()
	presenter.Separator()
	assert.Len(t, output.String(), 61)
}

func TestColorModeConfiguration(t *testing.T) {
	oldNoColor := color.NoColor
	defer func() { color.NoColor = oldNoColor }()

	NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, ColorNever)
	assert.True(t, color.NoColor)

	NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, ColorAlways)
	assert.False(t, color.NoColor)
}
