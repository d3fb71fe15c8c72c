// Package packager builds deterministic zip archives from validated skill
// directories and reads them back for inspection.
package packager

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/validator"
)

// CodePackagingBlocked is reported when a skill with validation errors is
// handed to the builder.
const CodePackagingBlocked = "PackagingBlockedByErrors"

var (
	// ErrPackagingBlocked matches every *BlockedError via errors.Is.
	ErrPackagingBlocked = errors.New("packaging blocked by validation errors")
	// ErrDestinationExists is returned when the archive path is taken and
	// overwriting was not requested.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrArchiveNotFound is returned by Inspect for a missing archive.
	ErrArchiveNotFound = errors.New("archive not found")
	// ErrNoDescriptor is returned by Inspect when the archive has no root SKILL.md.
	ErrNoDescriptor = errors.New("archive has no SKILL.md at its root")
)

// BlockedError carries the report that stopped a build.
type BlockedError struct {
	Report *validator.Report
}

func (e *BlockedError) Error() string {
	n := len(e.Report.Errors)
	noun := "errors"
	if n == 1 {
		noun = "error"
	}
	return fmt.Sprintf("%s: %s has %d validation %s", CodePackagingBlocked, e.Report.Root, n, noun)
}

// Is makes errors.Is(err, ErrPackagingBlocked) hold.
func (e *BlockedError) Is(target error) bool {
	return target == ErrPackagingBlocked
}

// Code returns CodePackagingBlocked.
func (e *BlockedError) Code() string {
	return CodePackagingBlocked
}
