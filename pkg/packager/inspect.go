package packager

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/skills"
)

// Member is one file inside an archive.
type Member struct {
	Name           string `json:"name"`
	Size           uint64 `json:"size"`
	CompressedSize uint64 `json:"compressedSize"`
	CRC32          uint32 `json:"crc32"`
	Mode           string `json:"mode"`
}

// Archive is the inspected form of a skill package.
type Archive struct {
	Path       string             `json:"path"`
	SHA256     string             `json:"sha256"`
	Size       int64              `json:"size"`
	Members    []Member           `json:"members"`
	Descriptor *skills.Descriptor `json:"descriptor"`
}

// Inspect opens a skill archive, lists its members in stored order and parses
// its root SKILL.md.
func Inspect(archivePath string) (*Archive, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrArchiveNotFound, "%s", archivePath)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", archivePath)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open archive %s", archivePath)
	}
	defer r.Close()

	archive := &Archive{
		Path:    archivePath,
		Size:    info.Size(),
		Members: make([]Member, 0, len(r.File)),
	}

	var descriptorFile *zip.File
	for _, f := range r.File {
		if !safeMemberName(f.Name) {
			return nil, errors.Errorf("archive member %q escapes the skill root", f.Name)
		}
		archive.Members = append(archive.Members, Member{
			Name:           f.Name,
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
			CRC32:          f.CRC32,
			Mode:           f.Mode().String(),
		})
		if f.Name == skills.DescriptorFileName {
			descriptorFile = f
		}
	}
	if descriptorFile == nil {
		return nil, errors.Wrapf(ErrNoDescriptor, "%s", archivePath)
	}

	content, err := readMember(descriptorFile)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(archivePath), ArchiveExtension)
	if archive.Descriptor, err = skills.ParseDescriptor(content, name); err != nil {
		return nil, errors.Wrap(err, "archive descriptor is invalid")
	}

	if archive.SHA256, err = calculateFileChecksum(archivePath); err != nil {
		return nil, errors.Wrapf(err, "failed to checksum %s", archivePath)
	}
	return archive, nil
}

func safeMemberName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	trimmed := strings.TrimSuffix(name, "/")
	clean := path.Clean(trimmed)
	return clean == trimmed && clean != ".." && !strings.HasPrefix(clean, "../")
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", f.Name)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", f.Name)
	}
	return content, nil
}

func calculateFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
