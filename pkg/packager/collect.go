package packager

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// member is a file selected for the archive.
type member struct {
	name       string // Slash-separated path inside the archive
	path       string // Absolute path on disk
	executable bool
}

// collector accumulates archive members and skip warnings over one build.
type collector struct {
	builder  *Builder
	members  []member
	warnings []validator.Finding
}

// collect walks the skill tree and selects SKILL.md plus every regular file
// under a resource directory. A top-level resource directory that is a
// symlink to a directory is followed, as skills.LoadDirectory does, and its
// files are stored under the link's name. Anything else is reported and left
// out. Members are sorted by archive name.
func (b *Builder) collect(ctx context.Context, absRoot string) ([]member, []validator.Finding, error) {
	c := &collector{builder: b}
	if err := c.walk(ctx, absRoot, ""); err != nil {
		return nil, nil, err
	}

	sort.Slice(c.members, func(i, j int) bool { return c.members[i].name < c.members[j].name })
	sort.SliceStable(c.warnings, func(i, j int) bool { return c.warnings[i].Path < c.warnings[j].Path })
	return c.members, c.warnings, nil
}

// walk visits dir and stores what it finds under prefix. An empty prefix
// means dir is the skill root.
func (c *collector) walk(ctx context.Context, dir, prefix string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Wrapf(err, "failed to relativise %s", path)
		}
		rel = filepath.ToSlash(rel)
		if prefix != "" {
			rel = prefix + "/" + rel
		}

		if c.builder.ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		topLevel := !strings.Contains(rel, "/")
		if d.IsDir() {
			if topLevel && !isResourceDir(rel) {
				c.skip(ctx, unrecognized(rel+"/",
					fmt.Sprintf("directory %s/ is not a resource directory; its contents are not packaged", rel)))
				return filepath.SkipDir
			}
			return nil
		}

		symlinkedResource := topLevel && isResourceDir(rel) && d.Type()&fs.ModeSymlink != 0
		if symlinkedResource {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				target, err := filepath.EvalSymlinks(path)
				if err != nil {
					return errors.Wrapf(err, "failed to resolve %s", rel)
				}
				return c.walk(ctx, target, rel)
			}
			c.skip(ctx, unsupported(rel))
			return nil
		}
		if topLevel && rel != skills.DescriptorFileName {
			c.skip(ctx, unrecognized(rel,
				fmt.Sprintf("%s is not part of a skill and is not packaged", rel)))
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			c.skip(ctx, unsupported(rel))
			return nil
		}

		c.members = append(c.members, member{
			name:       rel,
			path:       path,
			executable: info.Mode().Perm()&0o111 != 0,
		})
		return nil
	})
}

func (c *collector) skip(ctx context.Context, f validator.Finding) {
	telemetry.AddEvent(ctx, "member.skipped",
		attribute.String("member.path", f.Path),
		attribute.String("member.reason", string(f.Code)),
	)
	c.warnings = append(c.warnings, f)
}

// isResourceDir matches reserved directory names case-insensitively; the
// on-disk spelling is kept in the archive.
func isResourceDir(name string) bool {
	for _, dir := range skills.ResourceDirs {
		if strings.EqualFold(name, dir) {
			return true
		}
	}
	return false
}

func unsupported(rel string) validator.Finding {
	return validator.Finding{
		Code:       validator.CodeUnsupportedFileType,
		Severity:   validator.SeverityWarning,
		Message:    fmt.Sprintf("%s is not a regular file and is not packaged", rel),
		Path:       rel,
		Suggestion: "replace it with a regular file",
	}
}

func unrecognized(path, message string) validator.Finding {
	return validator.Finding{
		Code:       validator.CodeUnrecognizedFile,
		Severity:   validator.SeverityWarning,
		Message:    message,
		Path:       path,
		Suggestion: "move it under scripts/, references/ or assets/, or remove it",
	}
}
