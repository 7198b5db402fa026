package gosh

import (
	"io"
	"os"

	"github.com/goshlib/gosh/internal/cmdio"
)

// CmdEnv is the per-invocation environment handed to an in-process
// command: its resolved arguments, variable overrides, working directory
// and the three standard streams it was wired to. It is created fresh
// for each invocation and discarded once the command returns.
type CmdEnv struct {
	stdin  *cmdio.Handle
	stdout *cmdio.Handle
	stderr *cmdio.Handle
	args   []string
	vars   map[string]string
	dir    string
}

// Args returns the arguments for this command. Args[0] is the command
// name.
func (e *CmdEnv) Args() []string {
	return e.args
}

// Var fetches a variable override set for this command.
func (e *CmdEnv) Var(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// CurrentDir returns the working directory for this command.
func (e *CmdEnv) CurrentDir() string {
	if e.dir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return e.dir
}

// Stdin returns the standard input for this command.
func (e *CmdEnv) Stdin() io.Reader { return e.stdin }

// Stdout returns the standard output for this command.
func (e *CmdEnv) Stdout() io.Writer { return e.stdout }

// Stderr returns the standard error for this command.
func (e *CmdEnv) Stderr() io.Writer { return e.stderr }

// close releases the streams once the command has returned. Closing the
// write ends is what lets downstream readers observe EOF.
func (e *CmdEnv) close() {
	e.stdin.Close()
	e.stdout.Close()
	e.stderr.Close()
}
