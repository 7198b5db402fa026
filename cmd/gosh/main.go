// Command gosh executes shell-style pipelines without invoking a shell.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/goshlib/gosh"
	"github.com/goshlib/gosh/builtin"
	"github.com/goshlib/gosh/internal/cli"
	"github.com/goshlib/gosh/internal/config"
	"github.com/goshlib/gosh/internal/runlog"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		script      = flag.String("c", "", "script to execute")
		debug       = flag.Bool("debug", false, "log each pipeline before execution")
		pipefail    = flag.Bool("pipefail", true, "fail a pipeline on any stage failure")
		logVerify   = flag.Bool("log-verify", false, "check the run log hash chain and exit")
		logTail     = flag.Int("log-tail", 0, "print the last n run log entries and exit")
		showVersion = flag.Bool("version", false, "print version and exit")
		help        = flag.Bool("help", false, "print usage")
	)
	flag.Usage = func() { cli.Help(os.Stderr) }
	flag.Parse()

	if *help {
		cli.Help(os.Stdout)
		return 0
	}
	if *showVersion {
		fmt.Println("gosh", version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gosh: config: %v\n", err)
		return 1
	}
	cfg.Apply()

	// Command-line flags override the config file.
	if *debug {
		gosh.SetDebug(true)
	}
	if !*pipefail {
		gosh.SetPipefail(false)
	}

	if *logVerify {
		if err := runlog.Verify(cfg.RunLog.Path); err != nil {
			fmt.Fprintf(os.Stderr, "gosh: run log: %v\n", err)
			return 1
		}
		fmt.Println("run log OK")
		return 0
	}
	if *logTail > 0 {
		entries, err := runlog.Tail(cfg.RunLog.Path, *logTail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gosh: run log: %v\n", err)
			return 1
		}
		for _, e := range entries {
			fmt.Printf("%s %3d %8.1fms %s\n", e.Time.Format("2006-01-02 15:04:05"), e.ExitCode, e.Duration, e.Cmd)
		}
		return 0
	}

	builtin.RegisterAll()

	var logger *runlog.Logger
	if cfg.RunLog.Enabled {
		logger, err = runlog.NewLogger(cfg.RunLog.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gosh: run log: %v\n", err)
			// Continue without run logging.
			logger = nil
		}
	}

	if *script != "" {
		return cli.RunScript(*script, logger, os.Stderr)
	}

	if flag.NArg() > 0 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "gosh: %v\n", err)
			return 1
		}
		return cli.RunScript(string(data), logger, os.Stderr)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	return cli.REPL(os.Stdin, os.Stderr, logger, interactive)
}
