package skills

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ParseDescriptor parses the contents of a SKILL.md file. dirName is only used
// to give failures context; comparing it with the parsed name is left to the
// validator. Failures are always *ParseError.
func ParseDescriptor(content []byte, dirName string) (*Descriptor, error) {
	text := normalizeNewlines(content)

	block, body, blockLine, err := splitFrontmatter(text)
	if err != nil {
		err.Dir = dirName
		return nil, err
	}

	d, perr := decodeMetadata(block, blockLine)
	if perr != nil {
		perr.Dir = dirName
		return nil, perr
	}
	d.Body = body
	return d, nil
}

// normalizeNewlines strips a UTF-8 BOM and converts CRLF line endings to LF.
func normalizeNewlines(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	text := string(content)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return text
}

// splitFrontmatter separates the metadata block from the body. blockLine is the
// file line number of the first line inside the block.
func splitFrontmatter(text string) (block, body string, blockLine int, perr *ParseError) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || !isDelimiter(lines[0]) {
		return "", "", 0, &ParseError{
			Code:    CodeMissingDelimiter,
			Line:    1,
			Message: "descriptor must begin with a '---' line opening the metadata block",
		}
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if isDelimiter(lines[i]) {
			closing = i
			break
		}
	}
	if closing == -1 {
		return "", "", 0, &ParseError{
			Code:    CodeMissingDelimiter,
			Message: "metadata block is not closed by a '---' line",
		}
	}

	block = strings.Join(lines[1:closing], "\n")
	body = strings.TrimLeft(strings.Join(lines[closing+1:], "\n"), "\n")
	return block, body, 2, nil
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == frontmatterDelimiter
}

func decodeMetadata(block string, blockLine int) (*Descriptor, *ParseError) {
	malformed := func(node *yaml.Node, format string, args ...any) *ParseError {
		line := 0
		if node != nil && node.Line > 0 {
			line = blockLine + node.Line - 1
		}
		return &ParseError{
			Code:    CodeMalformedMetadata,
			Line:    line,
			Message: fmt.Sprintf(format, args...),
		}
	}

	if strings.TrimSpace(block) == "" {
		return nil, malformed(nil, "metadata block is empty")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, &ParseError{
			Code:    CodeMalformedMetadata,
			Message: strings.TrimPrefix(err.Error(), "yaml: "),
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, malformed(nil, "metadata block is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, malformed(root, "metadata block must contain key: value pairs")
	}

	d := &Descriptor{}
	var hasName, hasDescription bool
	extra := map[string]string{}
	explicit := map[string]string{}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, malformed(keyNode, "metadata keys must be plain strings")
		}
		key := keyNode.Value

		switch key {
		case keyName:
			if valueNode.Kind != yaml.ScalarNode {
				return nil, malformed(valueNode, "%s must be a string", key)
			}
			d.Name = valueNode.Value
			hasName = true
		case keyDescription:
			if valueNode.Kind != yaml.ScalarNode {
				return nil, malformed(valueNode, "%s must be a string", key)
			}
			d.Description = strings.TrimSpace(valueNode.Value)
			hasDescription = true
		case keyLicense:
			if valueNode.Kind != yaml.ScalarNode {
				return nil, malformed(valueNode, "%s must be a string", key)
			}
			d.License = strings.TrimSpace(valueNode.Value)
		case keyAllowedTools:
			tools, perr := decodeAllowedTools(valueNode, malformed)
			if perr != nil {
				return nil, perr
			}
			d.AllowedTools = tools
		case keyMetadata:
			if isNull(valueNode) {
				continue
			}
			if valueNode.Kind != yaml.MappingNode {
				return nil, malformed(valueNode, "metadata must be a mapping of string keys to string values")
			}
			for j := 0; j+1 < len(valueNode.Content); j += 2 {
				k, v := valueNode.Content[j], valueNode.Content[j+1]
				if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
					return nil, malformed(v, "metadata values must be strings")
				}
				explicit[k.Value] = v.Value
			}
		default:
			value, err := scalarOrYAML(valueNode)
			if err != nil {
				return nil, malformed(valueNode, "cannot read value of %q: %v", key, err)
			}
			extra[key] = value
		}
	}

	if !hasName {
		return nil, &ParseError{Code: CodeMissingRequiredField, Message: "required field 'name' is missing"}
	}
	if !hasDescription {
		return nil, &ParseError{Code: CodeMissingRequiredField, Message: "required field 'description' is missing"}
	}

	if len(extra)+len(explicit) > 0 {
		d.Metadata = make(map[string]string, len(extra)+len(explicit))
		for k, v := range extra {
			d.Metadata[k] = v
		}
		for k, v := range explicit {
			d.Metadata[k] = v
		}
	}
	return d, nil
}

func decodeAllowedTools(node *yaml.Node, malformed func(*yaml.Node, string, ...any) *ParseError) ([]string, *ParseError) {
	switch {
	case isNull(node):
		return nil, nil
	case node.Kind == yaml.ScalarNode:
		var tools []string
		for _, field := range strings.Split(node.Value, ",") {
			if tool := strings.TrimSpace(field); tool != "" {
				tools = append(tools, tool)
			}
		}
		return tools, nil
	case node.Kind == yaml.SequenceNode:
		tools := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, malformed(item, "allowed-tools entries must be strings")
			}
			tools = append(tools, strings.TrimSpace(item.Value))
		}
		return tools, nil
	default:
		return nil, malformed(node, "allowed-tools must be a list of tool names")
	}
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}

// scalarOrYAML returns scalar values verbatim and renders anything else as
// compact YAML so unknown keys survive without loss.
func scalarOrYAML(node *yaml.Node) (string, error) {
	if node.Kind == yaml.ScalarNode {
		return node.Value, nil
	}
	out, err := yaml.Marshal(flowCopy(node))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func flowCopy(node *yaml.Node) *yaml.Node {
	c := *node
	if c.Kind == yaml.MappingNode || c.Kind == yaml.SequenceNode {
		c.Style |= yaml.FlowStyle
	}
	c.Content = make([]*yaml.Node, len(node.Content))
	for i, child := range node.Content {
		c.Content[i] = flowCopy(child)
	}
	return &c
}

// Render serialises the descriptor back into SKILL.md form. Keys are written
// in a fixed order and metadata keys are sorted, so output is deterministic.
func (d *Descriptor) Render() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	addScalar := func(key, value string) {
		root.Content = append(root.Content, strNode(key), strNode(value))
	}

	addScalar(keyName, d.Name)
	addScalar(keyDescription, d.Description)
	if d.License != "" {
		addScalar(keyLicense, d.License)
	}
	if len(d.AllowedTools) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, tool := range d.AllowedTools {
			seq.Content = append(seq.Content, strNode(tool))
		}
		root.Content = append(root.Content, strNode(keyAllowedTools), seq)
	}
	if len(d.Metadata) > 0 {
		keys := make([]string, 0, len(d.Metadata))
		for k := range d.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		meta := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			meta.Content = append(meta.Content, strNode(k), strNode(d.Metadata[k]))
		}
		root.Content = append(root.Content, strNode(keyMetadata), meta)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, errors.Wrap(err, "failed to encode skill metadata")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode skill metadata")
	}

	var out bytes.Buffer
	out.WriteString(frontmatterDelimiter + "\n")
	out.Write(buf.Bytes())
	out.WriteString(frontmatterDelimiter + "\n")
	if d.Body != "" {
		out.WriteString("\n")
		out.WriteString(d.Body)
		if !strings.HasSuffix(d.Body, "\n") {
			out.WriteString("\n")
		}
	}
	return out.Bytes(), nil
}

// strNode renders value as a string scalar. SKILL.md is also read by YAML 1.1
// loaders, which take plain yes, on, 0777 or 1:30 as non-strings, so values
// that resolve differently there are double quoted.
func strNode(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	if !plainUnderYAML11(value) {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

// yaml11Implicit matches sexagesimal numbers and dates, which YAML 1.1
// resolves but yaml.v2 decodes as strings.
var yaml11Implicit = regexp.MustCompile(`^[-+]?[0-9][0-9_]*(:[0-5]?[0-9])+(\.[0-9_]*)?$|^[0-9]{4}-[0-9]{1,2}-[0-9]{1,2}`)

// plainUnderYAML11 reports whether value reads back as the same string when
// written unquoted and loaded with YAML 1.1 rules.
func plainUnderYAML11(value string) bool {
	if yaml11Implicit.MatchString(value) {
		return false
	}
	var decoded interface{}
	if err := yamlv2.Unmarshal([]byte(value), &decoded); err != nil {
		return false
	}
	str, ok := decoded.(string)
	return ok && str == value
}
