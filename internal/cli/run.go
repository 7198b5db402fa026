// Package cli implements the gosh command line entry points.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goshlib/gosh"
	"github.com/goshlib/gosh/internal/runlog"
	"github.com/goshlib/gosh/shparse"
)

// RunScript parses and executes one script, returning a process exit
// code. Failures are printed to stderr and, when a run log is
// configured, every execution is recorded there.
func RunScript(src string, logger *runlog.Logger, stderr io.Writer) int {
	script, err := shparse.Parse(src)
	if err != nil {
		fmt.Fprintf(stderr, "gosh: %v\n", err)
		return 2
	}

	start := time.Now()
	err = script.Run()
	duration := time.Since(start)

	exitCode, errMsg := resolveError(err)
	logRun(logger, src, exitCode, errMsg, duration)

	if err != nil {
		fmt.Fprintf(stderr, "gosh: %v\n", err)
	}
	return exitCode
}

// resolveError maps an execution error to an exit code and message.
func resolveError(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var exitErr *gosh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, err.Error()
	}
	return 1, err.Error()
}

func logRun(logger *runlog.Logger, src string, exitCode int, errMsg string, duration time.Duration) {
	if logger == nil {
		return
	}
	cwd, _ := os.Getwd()
	if err := logger.Log(src, exitCode, errMsg, duration, cwd); err != nil {
		fmt.Fprintf(os.Stderr, "gosh: run log: %v\n", err)
	}
}
