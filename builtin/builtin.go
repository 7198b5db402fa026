// Package builtin provides the stock in-process commands: trivial text
// helpers that substitute for external executables in pipelines.
package builtin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goshlib/gosh"
)

// RegisterAll registers every stock command with the process-wide
// registry. Call it before building pipelines that reference them.
func RegisterAll() {
	gosh.Register("true", True)
	gosh.Register("echo", Echo)
	gosh.Register("info", Info)
	gosh.Register("warn", Warn)
	gosh.Register("err", Err)
	gosh.Register("die", Die)
}

// True succeeds without doing anything.
func True(env *gosh.CmdEnv) error {
	return nil
}

// Echo writes its arguments joined by spaces to stdout.
func Echo(env *gosh.CmdEnv) error {
	_, err := fmt.Fprintln(env.Stdout(), strings.Join(env.Args()[1:], " "))
	return err
}

// Info writes its arguments to stderr.
func Info(env *gosh.CmdEnv) error {
	_, err := fmt.Fprintln(env.Stderr(), strings.Join(env.Args()[1:], " "))
	return err
}

// Warn writes its arguments to stderr with a WARNING prefix.
func Warn(env *gosh.CmdEnv) error {
	_, err := fmt.Fprintln(env.Stderr(), "WARNING: "+strings.Join(env.Args()[1:], " "))
	return err
}

// Err writes its arguments to stderr with an ERROR prefix.
func Err(env *gosh.CmdEnv) error {
	_, err := fmt.Fprintln(env.Stderr(), "ERROR: "+strings.Join(env.Args()[1:], " "))
	return err
}

// Die writes its arguments to stderr with a FATAL prefix and fails.
func Die(env *gosh.CmdEnv) error {
	msg := "FATAL: " + strings.Join(env.Args()[1:], " ")
	fmt.Fprintln(env.Stderr(), msg)
	return errors.New(msg)
}
