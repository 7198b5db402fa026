package gosh

import (
	"fmt"
	"strings"
)

// ExitError reports a command that ran to completion and failed: a
// nonzero exit status for an external process, or an error returned by
// an in-process command. Cmd holds the reconstructed command text and
// Stderr any diagnostic text observed on the command's standard error.
type ExitError struct {
	Code   int
	Cmd    string
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("running %s exited with code %d", e.Cmd, e.Code)
	if e.Stderr != "" {
		msg += ": " + strings.TrimRight(e.Stderr, "\n")
	}
	return msg
}

// spawnError decorates an OS-level start failure (missing binary,
// permission denied, pipe exhaustion) with the full pipeline text.
func spawnError(fullCmds string, err error) error {
	return fmt.Errorf("spawning %s failed: %w", fullCmds, err)
}
