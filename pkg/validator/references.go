package validator

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

var pathToken = regexp.MustCompile(`[A-Za-z0-9_./-]+`)

// References returns the distinct resource paths mentioned in a markdown body,
// sorted. A reference is a path under scripts/, references/ or assets/ ending
// in one of the configured extensions, found in link targets or anywhere in the
// text of a block.
func (v *Validator) References(body string) []string {
	src := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	found := map[string]struct{}{}
	collect := func(candidate string) {
		if ref, ok := v.normalizeReference(candidate); ok {
			found[ref] = struct{}{}
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Link:
			collect(destinationPath(node.Destination))
		case *ast.Image:
			collect(destinationPath(node.Destination))
		}

		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				for _, token := range pathToken.FindAllString(string(segment.Value(src)), -1) {
					collect(token)
				}
			}
		}
		return ast.WalkContinue, nil
	})

	refs := make([]string, 0, len(found))
	for ref := range found {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// destinationPath strips the query and fragment of a link target and decodes
// percent escapes. External URLs yield an empty string.
func destinationPath(dest []byte) string {
	raw := string(dest)
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "mailto:") {
		return ""
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return raw
}

func (v *Validator) normalizeReference(candidate string) (string, bool) {
	candidate = strings.TrimRight(candidate, ".")
	for strings.HasPrefix(candidate, "./") {
		candidate = strings.TrimPrefix(candidate, "./")
	}

	underResource := false
	for _, dir := range skills.ResourceDirs {
		if strings.HasPrefix(candidate, dir+"/") {
			underResource = true
			break
		}
	}
	if !underResource {
		return "", false
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(candidate), "."))
	if _, ok := v.referenceExtensions[ext]; !ok {
		return "", false
	}
	return path.Clean(candidate), true
}

// missingReferences returns the referenced paths that do not exist under root.
func (v *Validator) missingReferences(root, body string) ([]string, error) {
	var missing []string
	for _, ref := range v.References(body) {
		if ref == ".." || strings.HasPrefix(ref, "../") {
			missing = append(missing, ref)
			continue
		}
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(ref)))
		switch {
		case err == nil:
		case os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.ENAMETOOLONG) || errors.Is(err, syscall.ELOOP):
			missing = append(missing, ref)
		default:
			return nil, errors.Wrapf(err, "failed to check reference %s", ref)
		}
	}
	return missing, nil
}
