package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/packager"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// PackageConfig holds configuration for the package command
type PackageConfig struct {
	Out       string
	Overwrite bool
	Version   string
}

// NewPackageConfig creates a new PackageConfig with default values
func NewPackageConfig() *PackageConfig {
	return &PackageConfig{}
}

// packagingWarnings name the files left out of the archive. They go to stderr
// unless --quiet is set; other validation warnings are only logged.
var packagingWarnings = map[validator.Code]bool{
	validator.CodeUnrecognizedFile:    true,
	validator.CodeUnsupportedFileType: true,
}

func newPackageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package <path>",
		Short: "Build a distributable archive from a valid skill",
		Long: `Validate a skill and build a deterministic zip archive from it. On success
only the archive path is printed on stdout; files left out of the archive
are listed on stderr unless --quiet is given. A skill with validation errors
is not packaged; run 'skillkit validate' to see why.

The archive is named {name}-{version}.zip, where the version comes from
--version, then the "version" metadata key, then the current UTC time.

Exit codes: 0 success, 1 validation errors or I/O failure, 3 path not found,
4 destination exists.

Examples:
  skillkit package ./pdf-tools
  skillkit package ./pdf-tools --out dist/
  skillkit package ./pdf-tools --out pdf-tools.zip --overwrite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(cmd, args[0], getPackageConfigFromFlags(cmd))
		},
	}

	defaults := NewPackageConfig()
	cmd.Flags().StringP("out", "o", defaults.Out, "Archive path or existing directory (default: working directory)")
	cmd.Flags().Bool("overwrite", defaults.Overwrite, "Replace an existing archive")
	cmd.Flags().String("version", defaults.Version, "Version used in the archive file name")
	return cmd
}

func getPackageConfigFromFlags(cmd *cobra.Command) *PackageConfig {
	config := NewPackageConfig()
	if out, err := cmd.Flags().GetString("out"); err == nil {
		config.Out = out
	}
	if overwrite, err := cmd.Flags().GetBool("overwrite"); err == nil {
		config.Overwrite = overwrite
	}
	if version, err := cmd.Flags().GetString("version"); err == nil {
		config.Version = version
	}
	return config
}

func runPackage(cmd *cobra.Command, root string, config *PackageConfig) error {
	ctx := cmd.Context()
	p := newPresenter(cmd)

	v, err := validatorFromConfig()
	if err != nil {
		return err
	}

	builder := packager.NewBuilder(
		packager.WithValidator(v),
		packager.WithOverwrite(config.Overwrite),
		packager.WithVersion(config.Version),
	)

	result, err := builder.Build(ctx, root, config.Out)
	if err != nil {
		var blocked *packager.BlockedError
		if errors.As(err, &blocked) {
			p.Error(err, "")
			return reportedExit(err)
		}
		return err
	}

	for _, w := range result.Warnings {
		if packagingWarnings[w.Code] {
			p.Warning(w.Message)
			continue
		}
		logger.G(ctx).WithFields(map[string]interface{}{
			"code": w.Code,
			"path": w.Path,
		}).Debug(w.Message)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Path)
	return nil
}
