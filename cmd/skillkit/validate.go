package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/presenter"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	Format   string
	Strict   bool
	Watch    bool
	Debounce int
}

// NewValidateConfig creates a new ValidateConfig with default values
func NewValidateConfig() *ValidateConfig {
	return &ValidateConfig{
		Format:   "text",
		Debounce: 300,
	}
}

// Validate validates the ValidateConfig and returns an error if invalid
func (c *ValidateConfig) Validate() error {
	if err := validateFormat(c.Format); err != nil {
		return err
	}
	if c.Debounce < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.Debounce)
	}
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return errors.Errorf("invalid format %q, must be one of: text, json", format)
	}
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Check a skill directory against the packaging rules",
		Long: `Check a skill directory and print every finding. Errors block packaging;
warnings do not, unless --strict is given.

Exit codes: 0 no errors, 1 errors found, 3 path not found. With --watch the
exit code on Ctrl+C is that of the last validation run.

Examples:
  skillkit validate ./pdf-tools
  skillkit validate ./pdf-tools --format json
  skillkit validate ./pdf-tools --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := getValidateConfigFromFlags(cmd)
			if err := config.Validate(); err != nil {
				return err
			}

			v, err := validatorFromConfig()
			if err != nil {
				return err
			}

			if config.Watch {
				return runWatch(cmd, v, args[0], config)
			}
			return runValidate(cmd.Context(), cmd, v, args[0], config)
		},
	}

	defaults := NewValidateConfig()
	cmd.Flags().StringP("format", "f", defaults.Format, "Output format (text, json)")
	cmd.Flags().Bool("strict", defaults.Strict, "Treat warnings as errors for the exit code")
	cmd.Flags().BoolP("watch", "w", defaults.Watch, "Re-validate whenever the skill changes")
	cmd.Flags().Int("debounce", defaults.Debounce, "Debounce time in milliseconds for --watch")
	return cmd
}

func getValidateConfigFromFlags(cmd *cobra.Command) *ValidateConfig {
	config := NewValidateConfig()
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	if strict, err := cmd.Flags().GetBool("strict"); err == nil {
		config.Strict = strict
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if debounce, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.Debounce = debounce
	}
	return config
}

// runValidate validates root once and prints the report. The returned error
// carries the exit code.
func runValidate(ctx context.Context, cmd *cobra.Command, v *validator.Validator, root string, config *ValidateConfig) error {
	report, err := v.Validate(ctx, root)
	if err != nil {
		return err
	}

	if err := printReport(cmd, report, config.Format); err != nil {
		return err
	}

	if report.HasErrors() || (config.Strict && len(report.Warnings) > 0) {
		return &exitError{code: exitFailure, reported: true}
	}
	return nil
}

// printReport writes the report as JSON, or as findings and a summary line.
// In quiet mode the text report keeps only the error findings and summary.
func printReport(cmd *cobra.Command, report *validator.Report, format string) error {
	if format == "json" {
		out, err := report.JSON()
		if err != nil {
			return errors.Wrap(err, "failed to encode report")
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}

	p := newPresenter(cmd)
	for _, f := range report.Findings() {
		level := presenter.LevelWarning
		if f.Severity == validator.SeverityError {
			level = presenter.LevelError
		}
		p.Finding(level, string(f.Code), f.Path, f.Message, f.Suggestion)
	}

	subject := report.Name
	if subject == "" {
		subject = report.Root
	}
	p.Summary(subject, len(report.Errors), len(report.Warnings))
	return nil
}
