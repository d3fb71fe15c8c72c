package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillkit/pkg/packager"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/validator"
)

// Process exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInvalidName = 2
	exitNotFound    = 3
	exitDestExists  = 4
)

// exitError carries an exit code out of a command. When reported is set the
// command has already told the user what went wrong.
type exitError struct {
	code     int
	reported bool
	err      error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// reportedExit wraps err with its exit code after the command has printed it.
func reportedExit(err error) error {
	return &exitError{code: exitCodeFor(err), reported: true, err: err}
}

// exitCodeFor maps command errors to process exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	var nameErr *skills.NameError
	switch {
	case errors.As(err, &nameErr):
		return exitInvalidName
	case errors.Is(err, validator.ErrSkillNotFound), errors.Is(err, packager.ErrArchiveNotFound):
		return exitNotFound
	case errors.Is(err, packager.ErrDestinationExists):
		return exitDestExists
	default:
		return exitFailure
	}
}
