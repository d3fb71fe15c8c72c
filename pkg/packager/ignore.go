package packager

import (
	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnorePatterns are matched against every file and directory name in
// the tree. Matches are skipped silently.
var DefaultIgnorePatterns = []string{
	".git",
	".DS_Store",
	"Thumbs.db",
	"__pycache__",
	"*.pyc",
	"*.swp",
	"*.swo",
	"*~",
	".#*",
	"#*#",
}

func (b *Builder) ignored(name string) bool {
	for _, pattern := range b.ignorePatterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
