package main

import (
	"errors"
	"os"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/runner"
)

// Exit codes for the dailynote CLI. A failed git or gh step exits with the
// command's own status instead.
const (
	ExitSuccess = 0
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or empty content
	ExitIO      = 3 // Document or archive could not be read, parsed, or written
)

var (
	ErrConfig    = errors.New("invalid configuration")
	ErrNoContent = errors.New("no content given: use --content, --content-file, or --content-file -")
)

// exitCodeFor returns the appropriate exit code for an error.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var cmdErr *runner.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.ExitCode > 0 {
			return cmdErr.ExitCode
		}
		return ExitGeneral
	}

	if errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrNoContent) ||
		errors.Is(err, apperr.ErrEmptyContent) {
		return ExitUsage
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrMalformedDocument) ||
		errors.Is(err, apperr.ErrArchiveWrite) {
		return ExitIO
	}

	return ExitGeneral
}
