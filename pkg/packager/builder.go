package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// ArchiveExtension is the suffix of every archive the builder writes.
const ArchiveExtension = ".zip"

// TimestampFormat is used in file names when no version is known.
const TimestampFormat = "20060102T150405Z"

// versionKey is the descriptor metadata key consulted for the archive version.
const versionKey = "version"

// Result describes a written archive.
type Result struct {
	Path     string              `json:"path"`
	Name     string              `json:"name"`
	Version  string              `json:"version"`
	Members  []string            `json:"members"`
	Warnings []validator.Finding `json:"warnings"`
	SHA256   string              `json:"sha256"`
	Size     int64               `json:"size"`
}

// Builder packages skill directories.
type Builder struct {
	validator      *validator.Validator
	overwrite      bool
	version        string
	now            func() time.Time
	ignorePatterns []string
}

// Option configures a Builder instance
type Option func(*Builder)

// WithValidator sets the validator used for the pre-build check.
func WithValidator(v *validator.Validator) Option {
	return func(b *Builder) {
		b.validator = v
	}
}

// WithOverwrite allows replacing an existing archive.
func WithOverwrite(overwrite bool) Option {
	return func(b *Builder) {
		b.overwrite = overwrite
	}
}

// WithVersion sets the version used in the archive file name, taking
// precedence over the descriptor's metadata.
func WithVersion(version string) Option {
	return func(b *Builder) {
		b.version = version
	}
}

// WithClock sets the time source for timestamped file names.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithIgnorePatterns replaces DefaultIgnorePatterns. Pass the defaults along
// with any extra patterns to extend the list instead.
func WithIgnorePatterns(patterns ...string) Option {
	return func(b *Builder) {
		b.ignorePatterns = append([]string(nil), patterns...)
	}
}

// NewBuilder creates a builder with a default validator, no overwrite and the
// system clock.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		validator:      validator.New(),
		now:            time.Now,
		ignorePatterns: append([]string(nil), DefaultIgnorePatterns...),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultFileName returns "{name}-{version}.zip" with path separators and
// blanks in the version replaced by hyphens.
func DefaultFileName(name, version string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', ':':
			return '-'
		}
		return r
	}, version)
	return fmt.Sprintf("%s-%s%s", name, safe, ArchiveExtension)
}

// Build validates the skill at root and writes its archive. dest may be empty
// (default file name in the working directory), an existing directory
// (default file name inside it) or a file path. A skill with validation
// errors yields a *BlockedError and nothing is written.
func (b *Builder) Build(ctx context.Context, root, dest string) (*Result, error) {
	var result *Result
	err := telemetry.WithSpan(ctx, "packager.build", func(ctx context.Context) error {
		var err error
		result, err = b.build(ctx, root, dest)
		return err
	}, attribute.String("skill.root", root))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Builder) build(ctx context.Context, root, dest string) (*Result, error) {
	dir, err := skills.LoadDirectory(root)
	if err != nil {
		return nil, err
	}

	report, err := b.validator.ValidateDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	if report.HasErrors() {
		return nil, &BlockedError{Report: report}
	}

	version := b.resolveVersion(dir.Descriptor)
	dest, err = b.resolveDestination(dest, DefaultFileName(dir.Descriptor.Name, version))
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve skill path")
	}
	members, warnings, err := b.collect(ctx, absRoot)
	if err != nil {
		return nil, err
	}

	sum, size, err := writeArchive(ctx, dest, b.overwrite, members)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.name
	}

	allWarnings := make([]validator.Finding, 0, len(report.Warnings)+len(warnings))
	allWarnings = append(allWarnings, report.Warnings...)
	allWarnings = append(allWarnings, warnings...)

	result := &Result{
		Path:     dest,
		Name:     dir.Descriptor.Name,
		Version:  version,
		Members:  names,
		Warnings: allWarnings,
		SHA256:   sum,
		Size:     size,
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"archive": dest,
		"members": len(names),
		"size":    size,
	}).Info("packaged skill")
	telemetry.SetAttributes(ctx,
		attribute.String("archive.path", dest),
		attribute.Int("archive.members", len(names)),
		attribute.Int64("archive.size", size),
	)

	return result, nil
}

func (b *Builder) resolveVersion(d *skills.Descriptor) string {
	if v := strings.TrimSpace(b.version); v != "" {
		return v
	}
	if v := strings.TrimSpace(d.Metadata[versionKey]); v != "" {
		return v
	}
	return b.now().UTC().Format(TimestampFormat)
}

// resolveDestination applies the destination rules and refuses an existing
// file unless overwriting.
func (b *Builder) resolveDestination(dest, fileName string) (string, error) {
	if dest == "" {
		dest = fileName
	} else if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, fileName)
	}

	info, err := os.Lstat(dest)
	switch {
	case err == nil && info.IsDir():
		return "", errors.Errorf("destination %s is a directory", dest)
	case err == nil && !b.overwrite:
		return "", errors.Wrapf(ErrDestinationExists, "%s", dest)
	case err != nil && !os.IsNotExist(err):
		return "", errors.Wrapf(err, "failed to stat %s", dest)
	}
	return dest, nil
}
