package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DescriptorFileName), []byte(content), 0o644))
}

func TestLoadDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	skillDir := filepath.Join(tmpDir, "test-skill")
	writeSkill(t, skillDir, `---
name: test-skill
description: A test skill for unit testing
---

# Test Skill
`)
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "scripts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "References"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "notes.txt"), []byte("x"), 0o644))

	d, err := LoadDirectory(skillDir)
	require.NoError(t, err)

	assert.Equal(t, "test-skill", d.Name)
	assert.Equal(t, skillDir, d.Root)
	assert.True(t, d.DescriptorFound)
	require.NotNil(t, d.Descriptor)
	assert.NoError(t, d.ParseErr)
	assert.Equal(t, "A test skill for unit testing", d.Descriptor.Description)
	assert.Equal(t, []string{"assets", "scripts"}, d.ResourceDirs)
	assert.Equal(t, []string{"References", "assets", "scripts"}, d.TopLevelDirs)
	assert.True(t, d.HasResourceDir("scripts"))
	assert.False(t, d.HasResourceDir("references"))
}

func TestLoadDirectoryMissingDescriptor(t *testing.T) {
	skillDir := filepath.Join(t.TempDir(), "empty-skill")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))

	d, err := LoadDirectory(skillDir)
	require.NoError(t, err)
	assert.False(t, d.DescriptorFound)
	assert.Nil(t, d.Descriptor)
	assert.NoError(t, d.ParseErr)
}

func TestLoadDirectoryLinkedDescriptor(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"self loop", DescriptorFileName},
		{"dangling", "gone.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skillDir := filepath.Join(t.TempDir(), "linked-skill")
			require.NoError(t, os.MkdirAll(skillDir, 0o755))
			require.NoError(t, os.Symlink(tt.target, filepath.Join(skillDir, DescriptorFileName)))

			d, err := LoadDirectory(skillDir)
			require.NoError(t, err)
			assert.False(t, d.DescriptorFound)
			assert.Nil(t, d.Descriptor)
		})
	}
}

func TestLoadDirectoryDescriptorIsDirectory(t *testing.T) {
	skillDir := filepath.Join(t.TempDir(), "odd-skill")
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, DescriptorFileName), 0o755))

	d, err := LoadDirectory(skillDir)
	require.NoError(t, err)
	assert.False(t, d.DescriptorFound)
}

func TestLoadDirectoryParseFailure(t *testing.T) {
	skillDir := filepath.Join(t.TempDir(), "broken")
	writeSkill(t, skillDir, "# no frontmatter\n")

	d, err := LoadDirectory(skillDir)
	require.NoError(t, err)
	assert.True(t, d.DescriptorFound)
	assert.Nil(t, d.Descriptor)

	var perr *ParseError
	require.True(t, errors.As(d.ParseErr, &perr))
	assert.Equal(t, CodeMissingDelimiter, perr.Code)
	assert.Equal(t, "broken", perr.Dir)
}

func TestLoadDirectoryOperationalErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, err := LoadDirectory("/non/existent/path")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSkillNotFound))
	})

	t.Run("file instead of directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		_, err := LoadDirectory(file)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotDirectory))
	})
}

func TestLoadDirectoryFollowsSymlinkedResourceDir(t *testing.T) {
	tmpDir := t.TempDir()
	skillDir := filepath.Join(tmpDir, "linked")
	writeSkill(t, skillDir, "---\nname: linked\ndescription: Skill with linked scripts\n---\n")

	actualScripts := filepath.Join(tmpDir, "shared-scripts")
	require.NoError(t, os.MkdirAll(actualScripts, 0o755))
	require.NoError(t, os.Symlink(actualScripts, filepath.Join(skillDir, "scripts")))

	d, err := LoadDirectory(skillDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts"}, d.ResourceDirs)
}
