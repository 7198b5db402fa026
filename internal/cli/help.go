package cli

import (
	"fmt"
	"io"
)

// Help prints usage information.
func Help(w io.Writer) {
	fmt.Fprint(w, `gosh - run shell-style pipelines without a shell

Usage:
  gosh -c 'script'     execute a script string
  gosh file            execute a script file
  gosh                 read scripts from stdin (interactive on a terminal)
  gosh -log-verify     check the run log hash chain and exit
  gosh -log-tail n     print the last n run log entries and exit

Flags:
  -c string            script to execute
  -debug               log each pipeline before execution
  -pipefail            fail a pipeline on any stage failure (default true)

Scripts support pipes (|), sequencing (;, &&, ||), redirects
(<, >, >>, 2>, 2>&1, >&2, &>), leading KEY=VALUE overrides, and a
leading "ignore" marker that suppresses a pipeline's failure.
`)
}
