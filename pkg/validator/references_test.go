package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences(t *testing.T) {
	body := `# Filling forms

Read [the guide](references/forms.md#field-types) first, then look at
![logo](./assets/logo.png "Logo").

1. Run ` + "`scripts/fill.py`" + ` with the form.
2. Validate with scripts/check.sh.

` + "```python\nopen(\"references/api%20notes.md\")\nopen('references/api.md')\n```" + `

Not references: https://example.com/scripts/x.py, scripts/README, scripts/blob.bin,
../scripts/outside.sh and docs/guide.md.

[encoded](references/api%20notes.md)
`

	refs := New().References(body)
	assert.Equal(t, []string{
		"assets/logo.png",
		"references/api notes.md",
		"references/api.md",
		"references/forms.md",
		"scripts/check.sh",
		"scripts/fill.py",
	}, refs)
}

func TestReferencesCustomExtensions(t *testing.T) {
	v := New(WithReferenceExtensions(".bin"))
	assert.Equal(t, []string{"scripts/blob.bin"}, v.References("Use scripts/blob.bin and scripts/run.sh."))
}

func TestMissingReferences(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", "run.sh"), []byte("echo"), 0o755))

	body := "Run scripts/run.sh, scripts/run.sh/inner.py, scripts/gone.py and [up](scripts/../../secret.txt)."

	missing, err := New().missingReferences(root, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"../secret.txt", "scripts/gone.py", "scripts/run.sh/inner.py"}, missing)
}
