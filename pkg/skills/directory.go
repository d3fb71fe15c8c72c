package skills

import (
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/pkg/errors"
)

var (
	// ErrSkillNotFound is returned when the skill path does not exist.
	ErrSkillNotFound = errors.New("skill directory not found")
	// ErrNotDirectory is returned when the skill path is not a directory.
	ErrNotDirectory = errors.New("skill path is not a directory")
)

// LoadDirectory reads a skill directory. Problems with the skill itself, such
// as a missing or malformed SKILL.md, are recorded on the returned Directory;
// only operational failures are returned as errors.
func LoadDirectory(root string) (*Directory, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve skill path")
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrSkillNotFound, "%s", root)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrNotDirectory, "%s", root)
	}

	d := &Directory{
		Root: root,
		Name: filepath.Base(absRoot),
	}

	if err := d.scanTopLevel(absRoot); err != nil {
		return nil, err
	}

	descriptorPath := filepath.Join(absRoot, DescriptorFileName)
	descInfo, err := os.Stat(descriptorPath)
	switch {
	case os.IsNotExist(err), errors.Is(err, syscall.ELOOP):
		// A dangling or looping link is no descriptor at all.
		return d, nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to stat %s", DescriptorFileName)
	case !descInfo.Mode().IsRegular():
		return d, nil
	}

	content, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", DescriptorFileName)
	}

	d.DescriptorFound = true
	d.Descriptor, d.ParseErr = ParseDescriptor(content, d.Name)
	return d, nil
}

// scanTopLevel records the top-level directories, following symlinks the same
// way skill discovery does.
func (d *Directory) scanTopLevel(absRoot string) error {
	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return errors.Wrap(err, "failed to read skill directory")
	}

	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(absRoot, entry.Name()))
		if err != nil || !info.IsDir() {
			continue
		}
		d.TopLevelDirs = append(d.TopLevelDirs, entry.Name())
		for _, reserved := range ResourceDirs {
			if entry.Name() == reserved {
				d.ResourceDirs = append(d.ResourceDirs, reserved)
			}
		}
	}

	sort.Strings(d.TopLevelDirs)
	sort.Strings(d.ResourceDirs)
	return nil
}
