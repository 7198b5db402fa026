// Package shparse turns shell-like command text into pipeline builder
// calls. It understands pipes, the ;, && and || separators, file and
// stream redirects, leading KEY=VALUE overrides and the leading ignore
// marker. Tokens are split with POSIX quoting rules; operators must be
// separated from their neighbors by whitespace. Word splitting beyond
// quoting, globbing and scripting constructs are not supported.
package shparse

import (
	"fmt"
	"strings"

	shlex "github.com/anmitsu/go-shlex"

	"github.com/goshlib/gosh"
)

// Script is a parsed sequence of pipelines joined by ;, && and ||.
// Like the builders it wraps, a Script is single-use.
type Script struct {
	steps []step
}

type step struct {
	pipeline *gosh.Pipeline
	op       string // separator joining this step to the next, "" on the last
}

// Parse compiles command text into a runnable Script. Newlines separate
// statements the same way ; does.
func Parse(src string) (*Script, error) {
	s := &Script{}
	for _, line := range strings.Split(src, "\n") {
		tokens, err := shlex.Split(line, true)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", line, err)
		}
		if len(tokens) == 0 {
			continue
		}

		var current []string
		for _, tok := range tokens {
			switch tok {
			case ";", "&&", "||":
				if len(current) == 0 {
					return nil, fmt.Errorf("empty pipeline before %s", tok)
				}
				p, err := parsePipeline(current)
				if err != nil {
					return nil, err
				}
				s.steps = append(s.steps, step{pipeline: p, op: tok})
				current = nil
			default:
				current = append(current, tok)
			}
		}
		if len(current) == 0 {
			// A trailing ; is harmless; a dangling && or || is not.
			if op := s.steps[len(s.steps)-1].op; op == "&&" || op == "||" {
				return nil, fmt.Errorf("empty pipeline after %s", op)
			}
			continue
		}
		p, err := parsePipeline(current)
		if err != nil {
			return nil, err
		}
		s.steps = append(s.steps, step{pipeline: p, op: ";"})
	}
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("empty script")
	}
	s.steps[len(s.steps)-1].op = ""
	return s, nil
}

func parsePipeline(tokens []string) (*gosh.Pipeline, error) {
	p := gosh.NewPipeline()
	var current []string
	flush := func() error {
		if len(current) == 0 {
			return fmt.Errorf("empty command around |")
		}
		cmd, err := parseCmd(current)
		if err != nil {
			return err
		}
		p.Pipe(cmd)
		current = nil
		return nil
	}
	for _, tok := range tokens {
		if tok == "|" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		current = append(current, tok)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseCmd(tokens []string) (*gosh.Cmd, error) {
	c := gosh.NewCmd()
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "<", ">", ">>", "1>", "1>>", "2>", "2>>", "&>", "&>>":
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("%s requires a file path", tok)
			}
			i++
			if err := addFileRedirect(c, tok, tokens[i]); err != nil {
				return nil, err
			}
		case "2>&1":
			r, err := gosh.FdAlias(2, 1)
			if err != nil {
				return nil, err
			}
			c.AddRedirect(r)
		case ">&2", "1>&2":
			r, err := gosh.FdAlias(1, 2)
			if err != nil {
				return nil, err
			}
			c.AddRedirect(r)
		default:
			c.AddArg(tok)
		}
	}
	return c, nil
}

func addFileRedirect(c *gosh.Cmd, op, path string) error {
	switch op {
	case "<":
		c.AddRedirect(gosh.FileToStdin{Path: path})
	case ">", "1>", ">>", "1>>":
		r, err := gosh.FdRedirect(1, path, op == ">>" || op == "1>>")
		if err != nil {
			return err
		}
		c.AddRedirect(r)
	case "2>", "2>>":
		r, err := gosh.FdRedirect(2, path, op == "2>>")
		if err != nil {
			return err
		}
		c.AddRedirect(r)
	case "&>", "&>>":
		// The combined form expands to two directives applied as one:
		// stdout to the file, then stderr appending to the same file.
		c.AddRedirect(gosh.StdoutToFile{Path: path, Append: op == "&>>"})
		c.AddRedirect(gosh.StderrToFile{Path: path, Append: true})
	}
	return nil
}

// Run executes the script's pipelines in order, applying the separator
// logic: && runs the next pipeline only on success, || only on failure,
// ; regardless. The working directory persists across pipelines.
func (s *Script) Run() error {
	dir := ""
	var lastErr error
	for i, st := range s.steps {
		if i > 0 && skipStep(s.steps[i-1].op, lastErr) {
			continue
		}
		g := gosh.NewGroup().WithDir(dir).Append(st.pipeline)
		lastErr = g.Run()
		dir = g.Dir()
	}
	return lastErr
}

// Output runs every pipeline but the last for effect, then returns the
// last pipeline's captured text with trailing whitespace trimmed. If
// separator logic skips the last pipeline, the preceding result stands
// and the text is empty.
func (s *Script) Output() (string, error) {
	dir := ""
	var lastErr error
	n := len(s.steps)
	for i, st := range s.steps {
		if i > 0 && skipStep(s.steps[i-1].op, lastErr) {
			if i == n-1 {
				return "", lastErr
			}
			continue
		}
		g := gosh.NewGroup().WithDir(dir).Append(st.pipeline)
		if i == n-1 {
			return g.Output()
		}
		lastErr = g.Run()
		dir = g.Dir()
	}
	return "", lastErr
}

func skipStep(op string, lastErr error) bool {
	switch op {
	case "&&":
		return lastErr != nil
	case "||":
		return lastErr == nil
	}
	return false
}
