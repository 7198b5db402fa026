// Package gosh runs shell-style pipelines without invoking a shell.
//
// Callers build a Cmd per command, connect Cmds into a Pipeline, and
// collect Pipelines into a Group that shares one working directory.
// Each command either spawns an external process or dispatches to a
// registered in-process function, and the stages of a pipeline are
// connected by OS pipes exactly as a shell would connect them.
package gosh

import (
	"log/slog"
	"os"
)

// Reserved command names recognized by the runtime.
const (
	cdCmd     = "cd"
	ignoreCmd = "ignore"
)

// Environment variables backing the process-wide toggles. They are
// queried at execution time, so the toggles can also be set from
// outside the process.
const (
	debugEnv    = "GOSH_DEBUG"
	pipefailEnv = "GOSH_PIPEFAIL"
)

// SetDebug enables or disables logging of each pipeline's reconstructed
// command text immediately before execution. Disabled by default.
// Setting GOSH_DEBUG=0|1 has the same effect.
func SetDebug(enable bool) {
	os.Setenv(debugEnv, boolFlag(enable))
}

// SetPipefail controls whether a pipeline's result reflects the first
// failing stage (enabled, the default) or only the last stage's outcome.
// Setting GOSH_PIPEFAIL=0|1 has the same effect.
func SetPipefail(enable bool) {
	os.Setenv(pipefailEnv, boolFlag(enable))
}

func boolFlag(enable bool) string {
	if enable {
		return "1"
	}
	return "0"
}

func debugEnabled() bool {
	return os.Getenv(debugEnv) == "1"
}

func pipefailEnabled() bool {
	return os.Getenv(pipefailEnv) != "0"
}

func logger() *slog.Logger {
	return slog.Default()
}
