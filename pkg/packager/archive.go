package packager

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/logger"
)

// memberTime is stamped on every archive member so identical trees produce
// identical bytes. It is the earliest time a zip header can hold.
var memberTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// writeArchive writes members to a temporary file next to dest and moves it
// into place. The temporary file never outlives a failed call. It returns the
// archive's SHA-256 and size.
func writeArchive(ctx context.Context, dest string, overwrite bool, members []member) (sum string, size int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to create temporary archive")
	}
	tmpName := tmp.Name()
	closed := false

	defer func() {
		if err == nil {
			return
		}
		var cleanup *multierror.Error
		if !closed {
			if cerr := tmp.Close(); cerr != nil {
				cleanup = multierror.Append(cleanup, errors.Wrap(cerr, "failed to close temporary archive"))
			}
		}
		if rerr := os.Remove(tmpName); rerr != nil && !os.IsNotExist(rerr) {
			cleanup = multierror.Append(cleanup, errors.Wrap(rerr, "failed to remove temporary archive"))
		}
		if cleanup != nil {
			err = multierror.Append(err, cleanup.Errors...)
		}
	}()

	hasher := sha256.New()
	if err = writeZip(ctx, io.MultiWriter(tmp, hasher), members); err != nil {
		return "", 0, err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return "", 0, errors.Wrap(err, "failed to set archive permissions")
	}
	if err = tmp.Sync(); err != nil {
		return "", 0, errors.Wrap(err, "failed to flush archive")
	}
	info, err := tmp.Stat()
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to stat temporary archive")
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return "", 0, errors.Wrap(err, "failed to close temporary archive")
	}

	if err = moveIntoPlace(ctx, tmpName, dest, overwrite); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), info.Size(), nil
}

// moveIntoPlace renames when overwriting. Otherwise it hard-links so that a
// file created at dest in the meantime is never clobbered, falling back to a
// checked rename where links are unsupported.
func moveIntoPlace(ctx context.Context, tmpName, dest string, overwrite bool) error {
	if overwrite {
		return errors.Wrapf(os.Rename(tmpName, dest), "failed to move archive to %s", dest)
	}

	linkErr := os.Link(tmpName, dest)
	switch {
	case linkErr == nil:
		if err := os.Remove(tmpName); err != nil {
			logger.G(ctx).WithError(err).WithField("path", tmpName).Warn("failed to remove temporary archive")
		}
		return nil
	case os.IsExist(linkErr):
		return errors.Wrapf(ErrDestinationExists, "%s", dest)
	}

	logger.G(ctx).WithError(linkErr).Debug("hard link unavailable, falling back to rename")
	if _, err := os.Lstat(dest); err == nil {
		return errors.Wrapf(ErrDestinationExists, "%s", dest)
	}
	return errors.Wrapf(os.Rename(tmpName, dest), "failed to move archive to %s", dest)
}

func writeZip(ctx context.Context, w io.Writer, members []member) error {
	zw := zip.NewWriter(w)
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addMember(zw, m); err != nil {
			return err
		}
	}
	return errors.Wrap(zw.Close(), "failed to finish archive")
}

func addMember(zw *zip.Writer, m member) error {
	header := &zip.FileHeader{
		Name:     m.name,
		Method:   zip.Deflate,
		Modified: memberTime,
	}
	mode := os.FileMode(0o644)
	if m.executable {
		mode = 0o755
	}
	header.SetMode(mode)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, "failed to add %s", m.name)
	}

	f, err := os.Open(m.path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", m.name)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "failed to write %s", m.name)
	}
	return nil
}
