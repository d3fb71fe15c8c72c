package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

func (v *Validator) checkDescriptorPresence(dir *skills.Directory, report *Report) {
	if dir.DescriptorFound {
		return
	}

	suggestion := fmt.Sprintf("create %s with name and description metadata, or run 'skillkit init'", skills.DescriptorFileName)
	if variant := findDescriptorVariant(dir.Root); variant != "" {
		suggestion = fmt.Sprintf("rename %s to %s", variant, skills.DescriptorFileName)
	}
	report.addError(CodeMissingDescriptor, skills.DescriptorFileName,
		fmt.Sprintf("%s not found in %s", skills.DescriptorFileName, dir.Name), suggestion)
}

func (v *Validator) checkDescriptorParse(dir *skills.Directory, report *Report) {
	if dir.ParseErr == nil {
		return
	}

	var perr *skills.ParseError
	if !errors.As(dir.ParseErr, &perr) {
		report.addError(CodeMalformedMetadata, skills.DescriptorFileName, dir.ParseErr.Error(), "")
		return
	}

	var suggestion string
	switch perr.Code {
	case skills.CodeMissingDelimiter:
		suggestion = "wrap the metadata in lines containing only '---' at the top of the file"
	case skills.CodeMissingRequiredField:
		suggestion = "add both 'name' and 'description' to the metadata block"
	}
	report.addError(Code(perr.Code), skills.DescriptorFileName, perr.Error(), suggestion)
}

func (v *Validator) checkNameMatchesDirectory(dir *skills.Directory, report *Report) {
	if dir.Descriptor == nil || dir.Descriptor.Name == dir.Name {
		return
	}
	report.addError(CodeNameDirectoryMismatch, skills.DescriptorFileName,
		fmt.Sprintf("skill name %q does not match directory name %q", dir.Descriptor.Name, dir.Name),
		"rename the directory or change the name field so they are identical")
}

func (v *Validator) checkNameCharset(dir *skills.Directory, report *Report) {
	if dir.Descriptor == nil {
		return
	}
	if err := NameCheck(dir.Descriptor.Name); err != nil {
		report.addError(CodeNameCharset, skills.DescriptorFileName, err.Error(),
			"use lowercase letters, digits and single hyphens, e.g. 'pdf-tools'")
	}
}

// NameCheck applies the validator's naming rule, which is skills.ValidateName.
func NameCheck(name string) error {
	return skills.ValidateName(name)
}

func (v *Validator) checkDescription(dir *skills.Directory, report *Report) {
	if dir.Descriptor == nil {
		return
	}

	description := strings.TrimSpace(dir.Descriptor.Description)
	switch {
	case description == "":
		report.addError(CodeDescriptionEmpty, skills.DescriptorFileName, "description is empty",
			"describe what the skill does and when it should be used")
	case v.isPlaceholder(description):
		report.addWarning(CodeDescriptionPlaceholder, skills.DescriptorFileName,
			fmt.Sprintf("description %q looks like a placeholder", description),
			"describe what the skill does and when it should be used")
	case utf8.RuneCountInString(description) < v.minDescriptionLength:
		report.addWarning(CodeDescriptionTooShort, skills.DescriptorFileName,
			fmt.Sprintf("description is shorter than %d characters", v.minDescriptionLength),
			"say both what the skill does and when to use it")
	}
}

func (v *Validator) isPlaceholder(description string) bool {
	lower := strings.ToLower(description)
	for _, placeholder := range v.placeholders {
		p := strings.ToLower(strings.TrimSpace(placeholder))
		if p == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if prefix != "" && strings.HasPrefix(lower, prefix) {
				return true
			}
			continue
		}
		if lower == p {
			return true
		}
	}
	return false
}

func (v *Validator) checkResourceDirCase(dir *skills.Directory, report *Report) {
	for _, name := range dir.TopLevelDirs {
		for _, reserved := range skills.ResourceDirs {
			if name != reserved && strings.EqualFold(name, reserved) {
				report.addWarning(CodeResourceDirCaseMismatch, name,
					fmt.Sprintf("directory %q should be spelled %q; agents may look it up case-sensitively", name, reserved),
					fmt.Sprintf("rename %s/ to %s/", name, reserved))
			}
		}
	}
}

func (v *Validator) checkBodyLength(dir *skills.Directory, report *Report) {
	if dir.Descriptor == nil || v.maxBodyWords <= 0 {
		return
	}
	words := len(strings.Fields(dir.Descriptor.Body))
	if words > v.maxBodyWords {
		report.addWarning(CodeBodyTooLong, skills.DescriptorFileName,
			fmt.Sprintf("body has %d words, above the soft limit of %d", words, v.maxBodyWords),
			"move detailed material into references/ and link to it from the body")
	}
}

func (v *Validator) checkOrphanedReferences(dir *skills.Directory, report *Report) error {
	if dir.Descriptor == nil {
		return nil
	}

	missing, err := v.missingReferences(dir.Root, dir.Descriptor.Body)
	if err != nil {
		return err
	}
	for _, ref := range missing {
		report.addWarning(CodeOrphanedReference, ref,
			fmt.Sprintf("body references %s, which does not exist", ref),
			"add the file or remove the reference")
	}
	return nil
}
