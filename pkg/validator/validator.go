package validator

import (
	"context"
	"os"
	"strings"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Operational failures surfaced by Validate
var (
	ErrSkillNotFound = skills.ErrSkillNotFound
	ErrNotDirectory  = skills.ErrNotDirectory
)

// Defaults for the tunable checks
const (
	DefaultMinDescriptionLength = 10
	DefaultMaxBodyWords         = 5000
)

// DefaultPlaceholders are descriptions treated as unfinished. Entries ending
// in '*' match by prefix; matching is case-insensitive.
var DefaultPlaceholders = []string{
	"TODO*",
	"[TODO*",
	"TBD",
	"FIXME*",
	"XXX",
	"...",
	"description",
	"skill description",
	"a skill",
	"my skill",
	"placeholder",
	"<description>",
	"lorem ipsum*",
	"replace this*",
	"insert description*",
}

// DefaultReferenceExtensions are the file extensions recognised when looking
// for resource references in the body.
var DefaultReferenceExtensions = []string{
	"bash", "css", "csv", "docx", "gif", "go", "gz", "html", "ico", "ipynb",
	"jpeg", "jpg", "js", "json", "md", "mjs", "otf", "pdf", "pl", "png",
	"pptx", "ps1", "py", "rb", "sh", "sql", "svg", "tar", "toml", "ts",
	"tsv", "ttf", "txt", "webp", "woff", "woff2", "xlsx", "xml", "yaml", "yml",
	"zip",
}

// Validator runs the structure checks against skill directories.
type Validator struct {
	minDescriptionLength int
	maxBodyWords         int
	placeholders         []string
	referenceExtensions  map[string]struct{}
}

// Option configures a Validator instance
type Option func(*Validator)

// WithMinDescriptionLength sets the length, in runes, below which a
// description draws a warning.
func WithMinDescriptionLength(n int) Option {
	return func(v *Validator) {
		v.minDescriptionLength = n
	}
}

// WithMaxBodyWords sets the soft word limit for the descriptor body.
func WithMaxBodyWords(n int) Option {
	return func(v *Validator) {
		v.maxBodyWords = n
	}
}

// WithPlaceholders replaces the list of placeholder descriptions.
func WithPlaceholders(placeholders ...string) Option {
	return func(v *Validator) {
		v.placeholders = placeholders
	}
}

// WithReferenceExtensions replaces the file extensions recognised as resource
// references. Leading dots are ignored.
func WithReferenceExtensions(exts ...string) Option {
	return func(v *Validator) {
		v.referenceExtensions = extensionSet(exts)
	}
}

// New creates a validator with default settings, adjusted by opts.
func New(opts ...Option) *Validator {
	v := &Validator{
		minDescriptionLength: DefaultMinDescriptionLength,
		maxBodyWords:         DefaultMaxBodyWords,
		placeholders:         DefaultPlaceholders,
		referenceExtensions:  extensionSet(DefaultReferenceExtensions),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}

// Validate loads the skill at root and runs every check. Malformed skills are
// described by the report; an error means the directory could not be read.
func (v *Validator) Validate(ctx context.Context, root string) (*Report, error) {
	var report *Report
	err := telemetry.WithSpan(ctx, "validator.validate", func(ctx context.Context) error {
		dir, err := skills.LoadDirectory(root)
		if err != nil {
			return err
		}
		report, err = v.ValidateDirectory(ctx, dir)
		return err
	}, attribute.String("skill.root", root))
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ValidateDirectory runs every check against an already loaded directory.
// Findings come out in check order and, within a check, sorted by path.
func (v *Validator) ValidateDirectory(ctx context.Context, dir *skills.Directory) (*Report, error) {
	report := newReport(dir.Root)
	report.Name = dir.Name

	v.checkDescriptorPresence(dir, report)
	v.checkDescriptorParse(dir, report)
	v.checkNameMatchesDirectory(dir, report)
	v.checkNameCharset(dir, report)
	v.checkDescription(dir, report)
	v.checkResourceDirCase(dir, report)
	v.checkBodyLength(dir, report)
	if err := v.checkOrphanedReferences(dir, report); err != nil {
		return nil, err
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"skill":    dir.Name,
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
	}).Debug("validated skill directory")

	telemetry.SetAttributes(ctx,
		attribute.Int("validation.errors", len(report.Errors)),
		attribute.Int("validation.warnings", len(report.Warnings)),
	)

	return report, nil
}

// findDescriptorVariant looks for a descriptor spelled with different case,
// which is a common mistake worth pointing out.
func findDescriptorVariant(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.Name() != skills.DescriptorFileName && strings.EqualFold(entry.Name(), skills.DescriptorFileName) {
			return entry.Name()
		}
	}
	return ""
}
