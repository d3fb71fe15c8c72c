// Package skills models agent skills on disk. A skill is a directory holding
// a SKILL.md descriptor (a YAML metadata block followed by a markdown body)
// and optional bundled resources under scripts/, references/ and assets/.
package skills

// DescriptorFileName is the fixed name of a skill's entrypoint descriptor.
const DescriptorFileName = "SKILL.md"

// Reserved resource directory names
const (
	ScriptsDir    = "scripts"
	ReferencesDir = "references"
	AssetsDir     = "assets"
)

// ResourceDirs lists the reserved resource directories in lexicographic order.
var ResourceDirs = []string{AssetsDir, ReferencesDir, ScriptsDir}

// Recognised metadata keys
const (
	keyName         = "name"
	keyDescription  = "description"
	keyLicense      = "license"
	keyAllowedTools = "allowed-tools"
	keyMetadata     = "metadata"
)

// Descriptor is the parsed form of a SKILL.md file. It is never mutated
// after parsing.
type Descriptor struct {
	Name         string            `json:"name"`                    // Must equal the skill directory name
	Description  string            `json:"description"`             // What the skill does and when to use it
	License      string            `json:"license,omitempty"`       // Optional license identifier
	AllowedTools []string          `json:"allowed-tools,omitempty"` // Optional tool allow-list, order preserved
	Metadata     map[string]string `json:"metadata,omitempty"`      // Free-form properties, including unrecognised keys
	Body         string            `json:"-"`                       // Instructional markdown after the metadata block
}

// Directory is a skill directory as found on disk.
type Directory struct {
	Root            string      // Path of the skill directory
	Name            string      // Base name of Root
	DescriptorFound bool        // Whether SKILL.md exists
	Descriptor      *Descriptor // Nil when SKILL.md is missing or failed to parse
	ParseErr        error       // Parse failure, a *ParseError
	ResourceDirs    []string    // Reserved resource directories present with exact spelling
	TopLevelDirs    []string    // Every top-level directory name, sorted
}

// HasResourceDir reports whether the named reserved directory exists with its
// exact spelling.
func (d *Directory) HasResourceDir(name string) bool {
	for _, dir := range d.ResourceDirs {
		if dir == name {
			return true
		}
	}
	return false
}
