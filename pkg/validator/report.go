// Package validator checks skill directories against the packaging rules and
// reports every problem it finds as a Finding, never stopping at the first.
package validator

import (
	"encoding/json"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// Code identifies a kind of finding. Codes are stable and safe to match on.
type Code string

// Finding codes, in the order their checks run
const (
	CodeMissingDescriptor       Code = "MissingDescriptor"
	CodeMissingDelimiter        Code = Code(skills.CodeMissingDelimiter)
	CodeMalformedMetadata       Code = Code(skills.CodeMalformedMetadata)
	CodeMissingRequiredField    Code = Code(skills.CodeMissingRequiredField)
	CodeNameDirectoryMismatch   Code = "NameDirectoryMismatch"
	CodeNameCharset             Code = Code(skills.CodeNameCharset)
	CodeDescriptionEmpty        Code = "DescriptionEmpty"
	CodeDescriptionTooShort     Code = "DescriptionTooShort"
	CodeDescriptionPlaceholder  Code = "DescriptionPlaceholder"
	CodeResourceDirCaseMismatch Code = "ResourceDirCaseMismatch"
	CodeBodyTooLong             Code = "BodyTooLong"
	CodeOrphanedReference       Code = "OrphanedReference"
	CodeUnrecognizedFile        Code = "UnrecognizedFile"
	CodeUnsupportedFileType     Code = "UnsupportedFileType"
)

// Severity of a finding
type Severity string

// Severities
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single reported issue.
type Finding struct {
	Code       Code     `json:"code" jsonschema:"description=Stable identifier of the finding kind"`
	Severity   Severity `json:"severity" jsonschema:"enum=error,enum=warning"`
	Message    string   `json:"message"`
	Path       string   `json:"path,omitempty" jsonschema:"description=Slash-separated path relative to the skill root"`
	Suggestion string   `json:"suggestion,omitempty" jsonschema:"description=How to fix the finding"`
}

// Report is the outcome of validating one skill directory.
type Report struct {
	Root     string    `json:"root"`
	Name     string    `json:"name,omitempty"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

func newReport(root string) *Report {
	return &Report{
		Root:     root,
		Errors:   []Finding{},
		Warnings: []Finding{},
	}
}

// HasErrors reports whether the skill is blocked from packaging.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Findings returns errors followed by warnings.
func (r *Report) Findings() []Finding {
	all := make([]Finding, 0, len(r.Errors)+len(r.Warnings))
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	return all
}

// JSON returns the indented JSON form of the report.
func (r *Report) JSON() (string, error) {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (r *Report) add(f Finding) {
	if f.Severity == SeverityError {
		r.Errors = append(r.Errors, f)
		return
	}
	r.Warnings = append(r.Warnings, f)
}

func (r *Report) addError(code Code, path, message, suggestion string) {
	r.add(Finding{Code: code, Severity: SeverityError, Message: message, Path: path, Suggestion: suggestion})
}

func (r *Report) addWarning(code Code, path, message, suggestion string) {
	r.add(Finding{Code: code, Severity: SeverityWarning, Message: message, Path: path, Suggestion: suggestion})
}
