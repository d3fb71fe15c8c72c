package skills

import (
	"fmt"
)

// Code is a stable identifier for a descriptor or naming failure. The same
// codes surface as validation finding codes.
type Code string

// Failure codes
const (
	CodeMissingDelimiter     Code = "MissingDelimiter"
	CodeMalformedMetadata    Code = "MalformedMetadata"
	CodeMissingRequiredField Code = "MissingRequiredField"
	CodeNameCharset          Code = "NameCharset"
)

// ParseError describes why a descriptor could not be parsed.
type ParseError struct {
	Code    Code
	Dir     string // Skill directory name, for context only
	Line    int    // 1-based line in the descriptor file, 0 if unknown
	Message string
}

func (e *ParseError) Error() string {
	prefix := DescriptorFileName
	if e.Dir != "" {
		prefix = e.Dir + "/" + DescriptorFileName
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", prefix, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// NameError reports a skill name that breaks the naming rule.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid skill name %q: %s", e.Name, e.Reason)
}

// Code always returns CodeNameCharset.
func (e *NameError) Code() Code {
	return CodeNameCharset
}
