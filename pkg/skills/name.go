package skills

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest allowed skill name, in runes.
const MaxNameLength = 64

// ValidateName checks a candidate skill name against the naming rule:
// lowercase letters, digits and hyphens only, no leading, trailing or
// consecutive hyphens, at most MaxNameLength runes. Both the validator and the
// scaffolder call this function.
func ValidateName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "name is empty"}
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return &NameError{Name: name, Reason: "name exceeds 64 characters"}
	}
	if !utf8.ValidString(name) {
		return &NameError{Name: name, Reason: "name is not valid UTF-8"}
	}

	for _, r := range name {
		switch {
		case r == '-':
		case unicode.IsDigit(r):
		case unicode.IsLetter(r) && unicode.IsLower(r):
		case unicode.IsUpper(r):
			return &NameError{Name: name, Reason: "uppercase letters are not allowed"}
		default:
			return &NameError{Name: name, Reason: "only lowercase letters, digits and hyphens are allowed, found " + quoteRune(r)}
		}
	}

	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return &NameError{Name: name, Reason: "name must not start or end with a hyphen"}
	}
	if strings.Contains(name, "--") {
		return &NameError{Name: name, Reason: "name must not contain consecutive hyphens"}
	}
	return nil
}

// IsValidName reports whether ValidateName accepts name.
func IsValidName(name string) bool {
	return ValidateName(name) == nil
}

func quoteRune(r rune) string {
	if unicode.IsPrint(r) {
		return fmt.Sprintf("%q", r)
	}
	return fmt.Sprintf("%U", r)
}
