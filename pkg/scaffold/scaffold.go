// Package scaffold creates new skill directories that pass validation as soon
// as they are written.
package scaffold

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
)

// ErrDirectoryExists is returned when the target skill directory is already present.
var ErrDirectoryExists = errors.New("skill directory already exists")

const bodyTemplate = `# {{.Title}}

{{.Description}}

## When to use

Use this skill when a request involves {{.Topic}}.

## Instructions

1. Read the request and confirm it falls within {{.Topic}}.
2. Follow the steps below, adapting them to the user's context.
3. Report what was done and anything left for the user to decide.
{{- if .Resources}}

## Bundled resources
{{range .Resources}}
- ` + "`{{.Dir}}/`" + `: {{.Purpose}}
{{- end}}
{{- end}}
`

var resourcePurposes = map[string]string{
	skills.ScriptsDir:    "executable helpers the agent can run",
	skills.ReferencesDir: "documentation loaded into context on demand",
	skills.AssetsDir:     "files used in output, such as templates or images",
}

var bodyTmpl = template.Must(template.New("skill").Parse(bodyTemplate))

type resource struct {
	Dir     string
	Purpose string
}

type config struct {
	description  string
	license      string
	allowedTools []string
	resources    []string
}

// Option configures Create
type Option func(*config)

// WithDescription sets the description; an empty value keeps the generated one.
func WithDescription(description string) Option {
	return func(c *config) {
		c.description = strings.TrimSpace(description)
	}
}

// WithLicense sets the license field.
func WithLicense(license string) Option {
	return func(c *config) {
		c.license = strings.TrimSpace(license)
	}
}

// WithAllowedTools sets the allowed-tools list.
func WithAllowedTools(tools ...string) Option {
	return func(c *config) {
		c.allowedTools = tools
	}
}

// WithResourceDirs creates the named reserved resource directories, empty.
func WithResourceDirs(dirs ...string) Option {
	return func(c *config) {
		c.resources = dirs
	}
}

// IsValidName reports whether Create would accept name.
func IsValidName(name string) bool {
	return skills.IsValidName(name)
}

// Create writes a new skill called name under parent and returns its path.
// An invalid name fails with *skills.NameError before anything is touched. A
// partially written directory is removed on failure.
func Create(ctx context.Context, name, parent string, opts ...Option) (string, error) {
	if err := skills.ValidateName(name); err != nil {
		return "", err
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	resources, err := resolveResources(cfg.resources)
	if err != nil {
		return "", err
	}

	if parent == "" {
		parent = "."
	}
	target := filepath.Join(parent, name)

	err = telemetry.WithSpan(ctx, "scaffold.create", func(ctx context.Context) error {
		return create(ctx, target, name, cfg, resources)
	}, attribute.String("skill.name", name))
	if err != nil {
		return "", err
	}
	return target, nil
}

func create(ctx context.Context, target, name string, cfg *config, resources []string) (err error) {
	content, err := renderDescriptor(name, cfg, resources)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(target))
	}
	if err := os.Mkdir(target, 0o755); err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(ErrDirectoryExists, "%s", target)
		}
		return errors.Wrapf(err, "failed to create %s", target)
	}

	defer func() {
		if err == nil {
			return
		}
		if rerr := os.RemoveAll(target); rerr != nil {
			err = multierror.Append(err, errors.Wrapf(rerr, "failed to clean up %s", target))
		}
	}()

	if err = os.WriteFile(filepath.Join(target, skills.DescriptorFileName), content, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", skills.DescriptorFileName)
	}
	for _, dir := range resources {
		if err = os.Mkdir(filepath.Join(target, dir), 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s/", dir)
		}
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"skill":     name,
		"path":      target,
		"resources": resources,
	}).Info("created skill")
	return nil
}

func renderDescriptor(name string, cfg *config, resources []string) ([]byte, error) {
	topic := strings.ReplaceAll(name, "-", " ")
	description := cfg.description
	if description == "" {
		description = fmt.Sprintf("Guidance for %s tasks. Use when the user asks for help with %s.", topic, topic)
	}

	data := struct {
		Title       string
		Description string
		Topic       string
		Resources   []resource
	}{
		Title:       title(topic),
		Description: description,
		Topic:       topic,
	}
	for _, dir := range resources {
		data.Resources = append(data.Resources, resource{Dir: dir, Purpose: resourcePurposes[dir]})
	}

	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return nil, errors.Wrap(err, "failed to render skill body")
	}

	d := &skills.Descriptor{
		Name:         name,
		Description:  description,
		License:      cfg.license,
		AllowedTools: cfg.allowedTools,
		Body:         body.String(),
	}
	return d.Render()
}

// resolveResources checks requested directories against the reserved names
// and returns them sorted without duplicates.
func resolveResources(dirs []string) ([]string, error) {
	requested := map[string]bool{}
	for _, dir := range dirs {
		dir = strings.TrimSuffix(strings.TrimSpace(dir), "/")
		if _, ok := resourcePurposes[dir]; !ok {
			return nil, errors.Errorf("unknown resource directory %q, expected one of %s", dir, strings.Join(skills.ResourceDirs, ", "))
		}
		requested[dir] = true
	}

	var resolved []string
	for _, dir := range skills.ResourceDirs {
		if requested[dir] {
			resolved = append(resolved, dir)
		}
	}
	return resolved, nil
}

func title(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
