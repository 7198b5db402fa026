package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/goshlib/gosh/internal/runlog"
)

// REPL reads lines from stdin and executes each as a script, printing a
// prompt when stdin is a terminal. It returns the exit code of the last
// executed line.
func REPL(stdin io.Reader, stderr io.Writer, logger *runlog.Logger, interactive bool) int {
	prompt := color.New(color.FgGreen, color.Bold).SprintFunc()
	scanner := bufio.NewScanner(stdin)
	last := 0
	for {
		if interactive {
			fmt.Fprint(os.Stdout, prompt("gosh> "))
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" {
			return last
		}
		last = RunScript(line, logger, stderr)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "gosh: read: %v\n", err)
		return 1
	}
	return last
}
