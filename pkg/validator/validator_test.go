package validator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

const goodDescription = "Extracts tables from PDF files. Use when the user asks about PDFs."

func makeSkill(t *testing.T, name, descriptor string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(root, 0o755))
	if descriptor != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, skills.DescriptorFileName), []byte(descriptor), 0o644))
	}
	return root
}

func descriptor(name, description, body string) string {
	return "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body
}

func codes(findings []Finding) []Code {
	out := make([]Code, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Code)
	}
	return out
}

func TestValidateCleanSkill(t *testing.T) {
	root := makeSkill(t, "pdf-tools", descriptor("pdf-tools", goodDescription, "# PDF tools\n\nRun scripts/extract.py.\n"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", "extract.py"), []byte("print()"), 0o755))

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, root, report.Root)
	assert.Equal(t, "pdf-tools", report.Name)
	assert.False(t, report.HasErrors())
	assert.Empty(t, report.Findings())
}

func TestValidateNameMismatchAndCharset(t *testing.T) {
	root := makeSkill(t, "my-skill", descriptor("My_Skill", goodDescription, "Body.\n"))

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []Code{CodeNameDirectoryMismatch, CodeNameCharset}, codes(report.Errors))
	assert.Empty(t, report.Warnings)
	assert.Equal(t, "SKILL.md", report.Errors[0].Path)
	assert.Contains(t, report.Errors[0].Message, `"My_Skill"`)
}

func TestValidateMissingDescriptor(t *testing.T) {
	root := makeSkill(t, "empty-skill", "")

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []Code{CodeMissingDescriptor}, codes(report.Errors))
	assert.Empty(t, report.Warnings)
	assert.Contains(t, report.Errors[0].Suggestion, "skillkit init")
}

func TestValidateMissingDescriptorSuggestsRename(t *testing.T) {
	root := makeSkill(t, "pdf-tools", "")
	require.NoError(t, os.WriteFile(filepath.Join(root, "skill.md"), []byte(descriptor("pdf-tools", goodDescription, "")), 0o644))

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, CodeMissingDescriptor, report.Errors[0].Code)
	assert.Equal(t, "rename skill.md to SKILL.md", report.Errors[0].Suggestion)
}

func TestValidateParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected Code
	}{
		{"no delimiter", "# Just markdown\n", CodeMissingDelimiter},
		{"unclosed block", "---\nname: pdf-tools\ndescription: x\n", CodeMissingDelimiter},
		{"bad yaml", "---\nname: pdf-tools\ndescription: [unterminated\n---\n", CodeMalformedMetadata},
		{"bad allowed-tools", "---\nname: pdf-tools\ndescription: " + goodDescription + "\nallowed-tools: {a: b}\n---\n", CodeMalformedMetadata},
		{"missing description", "---\nname: pdf-tools\n---\nbody\n", CodeMissingRequiredField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := makeSkill(t, "pdf-tools", tt.content)

			report, err := New().Validate(context.Background(), root)
			require.NoError(t, err)
			assert.Equal(t, []Code{tt.expected}, codes(report.Errors))
			assert.Empty(t, report.Warnings)
		})
	}
}

func TestValidateDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		errors      []Code
		warnings    []Code
	}{
		{"good", goodDescription, []Code{}, []Code{}},
		{"empty", `""`, []Code{CodeDescriptionEmpty}, []Code{}},
		{"blank", `"   "`, []Code{CodeDescriptionEmpty}, []Code{}},
		{"too short", "Does PDFs", []Code{}, []Code{CodeDescriptionTooShort}},
		{"placeholder exact", "Skill Description", []Code{}, []Code{CodeDescriptionPlaceholder}},
		{"placeholder prefix", `"TODO: describe what this does"`, []Code{}, []Code{CodeDescriptionPlaceholder}},
		{"short placeholder counts once", "TBD", []Code{}, []Code{CodeDescriptionPlaceholder}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := makeSkill(t, "pdf-tools", descriptor("pdf-tools", tt.description, "Body.\n"))

			report, err := New().Validate(context.Background(), root)
			require.NoError(t, err)
			assert.Equal(t, tt.errors, codes(report.Errors))
			assert.Equal(t, tt.warnings, codes(report.Warnings))
		})
	}
}

func TestValidateBodyTooLong(t *testing.T) {
	body := strings.Repeat("word ", 6000)
	root := makeSkill(t, "pdf-tools", descriptor("pdf-tools", goodDescription, body))

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []Code{CodeBodyTooLong}, codes(report.Warnings))
	assert.Contains(t, report.Warnings[0].Message, "6000 words")

	report, err = New(WithMaxBodyWords(7000)).Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
}

func TestValidateResourceDirCase(t *testing.T) {
	root := makeSkill(t, "pdf-tools", descriptor("pdf-tools", goodDescription, "Body.\n"))
	for _, dir := range []string{"Scripts", "ASSETS", "references", "docs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	require.Equal(t, []Code{CodeResourceDirCaseMismatch, CodeResourceDirCaseMismatch}, codes(report.Warnings))
	assert.Equal(t, "ASSETS", report.Warnings[0].Path)
	assert.Equal(t, "Scripts", report.Warnings[1].Path)
	assert.Equal(t, "rename Scripts/ to scripts/", report.Warnings[1].Suggestion)
}

func TestValidateOrphanedReferences(t *testing.T) {
	body := "See [the form guide](references/forms.md) and run scripts/fill.py.\n\n" +
		"```bash\nscripts/check.sh --strict\n```\n"
	root := makeSkill(t, "pdf-tools", descriptor("pdf-tools", goodDescription, body))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "references"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "references", "forms.md"), []byte("# Forms"), 0o644))

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []Code{CodeOrphanedReference, CodeOrphanedReference}, codes(report.Warnings))
	assert.Equal(t, "scripts/check.sh", report.Warnings[0].Path)
	assert.Equal(t, "scripts/fill.py", report.Warnings[1].Path)
}

func TestValidateCheckOrder(t *testing.T) {
	body := strings.Repeat("step ", 20) + "\nUse assets/missing.png.\n"
	root := makeSkill(t, "order-test", descriptor("Order_Test", "TBD", body))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "References"), 0o755))

	report, err := New(WithMaxBodyWords(10)).Validate(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []Code{CodeNameDirectoryMismatch, CodeNameCharset}, codes(report.Errors))
	assert.Equal(t, []Code{
		CodeDescriptionPlaceholder,
		CodeResourceDirCaseMismatch,
		CodeBodyTooLong,
		CodeOrphanedReference,
	}, codes(report.Warnings))

	again, err := New(WithMaxBodyWords(10)).Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestValidateOperationalErrors(t *testing.T) {
	_, err := New().Validate(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSkillNotFound))

	file := filepath.Join(t.TempDir(), "SKILL.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New().Validate(context.Background(), file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotDirectory))
}

func TestValidateSymlinkLoops(t *testing.T) {
	t.Run("looping descriptor", func(t *testing.T) {
		root := makeSkill(t, "loop-skill", "")
		require.NoError(t, os.Symlink(skills.DescriptorFileName, filepath.Join(root, skills.DescriptorFileName)))

		report, err := New().Validate(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, []Code{CodeMissingDescriptor}, codes(report.Errors))
	})

	t.Run("looping reference", func(t *testing.T) {
		root := makeSkill(t, "loop-skill", descriptor("loop-skill", goodDescription, "Run scripts/a.py first.\n"))
		require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
		require.NoError(t, os.Symlink("a.py", filepath.Join(root, "scripts", "a.py")))

		report, err := New().Validate(context.Background(), root)
		require.NoError(t, err)
		assert.Empty(t, report.Errors)
		assert.Equal(t, []Code{CodeOrphanedReference}, codes(report.Warnings))
		assert.Equal(t, "scripts/a.py", report.Warnings[0].Path)
	})
}

func TestValidateNeverFailsOnMalformedSkills(t *testing.T) {
	content := rapid.OneOf(
		rapid.String(),
		rapid.Map(rapid.String(), func(s string) string { return "---\n" + s + "\n---\n" }),
		rapid.Map(rapid.StringMatching(`[a-zA-Z_ -]{0,20}`), func(s string) string {
			return "---\nname: " + s + "\ndescription: " + s + "\n---\n" + s
		}),
	)
	dirs := rapid.SliceOfN(rapid.SampledFrom([]string{"scripts", "Scripts", "assets", "REFERENCES", "misc"}), 0, 3)

	rapid.Check(t, func(rt *rapid.T) {
		base, err := os.MkdirTemp("", "skillkit-total-")
		if err != nil {
			rt.Fatalf("temp dir: %v", err)
		}
		defer os.RemoveAll(base)

		root := filepath.Join(base, "some-skill")
		for _, dir := range dirs.Draw(rt, "dirs") {
			if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
				rt.Fatalf("mkdir: %v", err)
			}
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			rt.Fatalf("mkdir: %v", err)
		}
		descriptorPath := filepath.Join(root, skills.DescriptorFileName)
		if rapid.Bool().Draw(rt, "loopingDescriptor") {
			if err := os.Symlink(skills.DescriptorFileName, descriptorPath); err != nil {
				rt.Fatalf("symlink: %v", err)
			}
		} else if err := os.WriteFile(descriptorPath, []byte(content.Draw(rt, "content")+"\nSee scripts/loop.py.\n"), 0o644); err != nil {
			rt.Fatalf("write: %v", err)
		}
		if rapid.Bool().Draw(rt, "loopingReference") {
			if err := os.MkdirAll(filepath.Join(root, "scripts"), 0o755); err != nil {
				rt.Fatalf("mkdir: %v", err)
			}
			if err := os.Symlink("loop.py", filepath.Join(root, "scripts", "loop.py")); err != nil {
				rt.Fatalf("symlink: %v", err)
			}
		}

		report, err := New().Validate(context.Background(), root)
		if err != nil {
			rt.Fatalf("validate returned an error: %v", err)
		}
		if report == nil {
			rt.Fatalf("nil report")
		}
	})
}

func TestNameCheckMatchesSharedRule(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.String().Draw(rt, "name")
		if (NameCheck(name) == nil) != skills.IsValidName(name) {
			rt.Fatalf("NameCheck disagrees with skills.IsValidName for %q", name)
		}
	})
}

func TestReportJSON(t *testing.T) {
	root := makeSkill(t, "pdf-tools", descriptor("pdf-tools", "short", "Body.\n"))

	report, err := New().Validate(context.Background(), root)
	require.NoError(t, err)

	out, err := report.JSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"errors": []`)
	assert.Contains(t, out, `"code": "DescriptionTooShort"`)
	assert.Contains(t, out, `"severity": "warning"`)
}
