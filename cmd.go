package gosh

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/goshlib/gosh/internal/cmdio"
)

// Cmd builds one command of a pipeline: its arguments, variable
// overrides and redirect directives. A leading "ignore" token and
// leading KEY=VALUE tokens are consumed as modifiers rather than passed
// through as arguments. Whether the command dispatches to a registered
// in-process function is decided the moment the command-name argument
// is appended and never re-evaluated.
//
// A Cmd is single-use: once its pipeline has been started it must not
// be reused.
type Cmd struct {
	inCmdMap    bool
	args        []string
	vars        map[string]string
	redirects   []Redirect
	sysProcAttr *syscall.SysProcAttr

	stdinRedirect  *cmdio.Handle
	stdoutRedirect *cmdio.Handle
	stderrRedirect *cmdio.Handle
	stdoutCapture  *cmdio.Handle
	stderrCapture  *cmdio.Handle
}

// NewCmd returns an empty command builder.
func NewCmd() *Cmd {
	return &Cmd{inCmdMap: true, vars: make(map[string]string)}
}

// AddArg appends one argument token. Before the command name is seen,
// "ignore" marks the enclosing pipeline as ignore-error and KEY=VALUE
// tokens become variable overrides; the first other token is the
// command name and resolves in-process dispatch against the registry.
func (c *Cmd) AddArg(arg string) *Cmd {
	if arg != ignoreCmd && !c.hasCmdName() {
		if key, val, ok := splitVarToken(arg); ok {
			if c.vars == nil {
				c.vars = make(map[string]string)
			}
			c.vars[key] = val
			return c
		}
		_, c.inCmdMap = lookupCmd(arg)
	}
	c.args = append(c.args, arg)
	return c
}

// AddArgs appends each argument in order, applying the AddArg rules.
func (c *Cmd) AddArgs(args ...string) *Cmd {
	for _, arg := range args {
		c.AddArg(arg)
	}
	return c
}

// AddRedirect queues a redirect directive. Declaration order is
// significant and preserved.
func (c *Cmd) AddRedirect(r Redirect) *Cmd {
	c.redirects = append(c.redirects, r)
	return c
}

// SetSysProcAttr sets platform-specific process creation attributes for
// the external-process path.
func (c *Cmd) SetSysProcAttr(attr *syscall.SysProcAttr) *Cmd {
	c.sysProcAttr = attr
	return c
}

func (c *Cmd) hasCmdName() bool {
	for _, a := range c.args {
		if a != ignoreCmd {
			return true
		}
	}
	return false
}

func splitVarToken(tok string) (key, val string, ok bool) {
	key, val, ok = strings.Cut(tok, "=")
	if !ok || key == "" {
		return "", "", false
	}
	for _, r := range key {
		switch {
		case r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return "", "", false
		}
	}
	return key, val, true
}

// effectiveArgs returns the arguments with leading ignore markers
// skipped; the first element is the command name.
func (c *Cmd) effectiveArgs() []string {
	i := 0
	for i < len(c.args) && c.args[i] == ignoreCmd {
		i++
	}
	return c.args[i:]
}

// ignoreMarked reports whether the command carries a leading ignore
// marker.
func (c *Cmd) ignoreMarked() bool {
	return len(c.args) > len(c.effectiveArgs())
}

// String reconstructs the command for diagnostics: quoted argv plus any
// variable overrides and redirects.
func (c *Cmd) String() string {
	ret := fmt.Sprintf("%q", c.args)
	var extra []string
	if len(c.vars) > 0 {
		keys := make([]string, 0, len(c.vars))
		for k := range c.vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+c.vars[k])
		}
		extra = append(extra, strings.Join(pairs, " "))
	}
	if len(c.redirects) > 0 {
		strs := make([]string, 0, len(c.redirects))
		for _, r := range c.redirects {
			strs = append(strs, r.String())
		}
		extra = append(extra, strings.Join(strs, " "))
	}
	if len(extra) > 0 {
		ret += "(" + strings.Join(extra, ", ") + ")"
	}
	return ret
}

// setupRedirects wires the command's standard streams: the inter-stage
// pipe ends first, then the optional output-capture pipe, then the
// always-present stderr observation pipe, and finally the queued
// directives in declaration order. The command takes ownership of
// pipeIn and pipeOut.
func (c *Cmd) setupRedirects(pipeIn, pipeOut *cmdio.Handle, capture bool) error {
	if pipeIn != nil {
		c.stdinRedirect = pipeIn
	}
	if pipeOut != nil {
		c.stdoutRedirect = pipeOut
	} else if capture {
		r, w, err := cmdio.NewPipe()
		if err != nil {
			return err
		}
		c.stdoutRedirect = w
		c.stdoutCapture = r
	}
	r, w, err := cmdio.NewPipe()
	if err != nil {
		return err
	}
	c.stderrRedirect = w
	c.stderrCapture = r

	for _, rd := range c.redirects {
		switch rd := rd.(type) {
		case FileToStdin:
			h, err := openRedirectFile(rd.Path, true, false)
			if err != nil {
				return err
			}
			c.replaceStdin(h)
		case StdoutToStderr:
			if c.stderrRedirect != nil {
				c.replaceStdout(c.stderrRedirect.Dup())
			} else {
				c.replaceStdout(cmdio.NewInherit(os.Stderr))
			}
		case StderrToStdout:
			if c.stdoutRedirect != nil {
				c.replaceStderr(c.stdoutRedirect.Dup())
			} else {
				c.replaceStderr(cmdio.NewInherit(os.Stdout))
			}
		case StdoutToFile:
			h, err := openRedirectFile(rd.Path, false, rd.Append)
			if err != nil {
				return err
			}
			c.replaceStdout(h)
		case StderrToFile:
			h, err := openRedirectFile(rd.Path, false, rd.Append)
			if err != nil {
				return err
			}
			c.replaceStderr(h)
		}
	}
	return nil
}

func openRedirectFile(path string, readOnly, appendFile bool) (*cmdio.Handle, error) {
	if path == os.DevNull {
		return cmdio.NewNull(!readOnly)
	}
	if readOnly {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return cmdio.NewFile(f), nil
	}
	flag := os.O_CREATE | os.O_WRONLY
	if appendFile {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return cmdio.NewFile(f), nil
}

func (c *Cmd) replaceStdin(h *cmdio.Handle) {
	if c.stdinRedirect != nil {
		c.stdinRedirect.Close()
	}
	c.stdinRedirect = h
}

func (c *Cmd) replaceStdout(h *cmdio.Handle) {
	if c.stdoutRedirect != nil {
		c.stdoutRedirect.Close()
	}
	c.stdoutRedirect = h
}

func (c *Cmd) replaceStderr(h *cmdio.Handle) {
	if c.stderrRedirect != nil {
		c.stderrRedirect.Close()
	}
	c.stderrRedirect = h
}

// closeStdio releases the parent's copies of the three wired streams.
// Closing the write ends is what delivers EOF to downstream readers.
func (c *Cmd) closeStdio() {
	if c.stdinRedirect != nil {
		c.stdinRedirect.Close()
		c.stdinRedirect = nil
	}
	if c.stdoutRedirect != nil {
		c.stdoutRedirect.Close()
		c.stdoutRedirect = nil
	}
	if c.stderrRedirect != nil {
		c.stderrRedirect.Close()
		c.stderrRedirect = nil
	}
}

// closeCaptures releases the retained capture readers on error paths.
func (c *Cmd) closeCaptures() {
	if c.stdoutCapture != nil {
		c.stdoutCapture.Close()
		c.stdoutCapture = nil
	}
	if c.stderrCapture != nil {
		c.stderrCapture.Close()
		c.stderrCapture = nil
	}
}

// takeCaptures transfers ownership of the capture readers to a child.
func (c *Cmd) takeCaptures() (stdout, stderr *cmdio.Handle) {
	stdout, stderr = c.stdoutCapture, c.stderrCapture
	c.stdoutCapture, c.stderrCapture = nil, nil
	return stdout, stderr
}

// spawn resolves and starts the command. Resolution order: the reserved
// directory-change name, then in-process dispatch, then an external
// process. inline is true only for the sole stage of a non-capturing
// pipeline, where running the function on the calling goroutine cannot
// stall the wiring of later stages.
func (c *Cmd) spawn(currentDir *string, inline bool) (*child, error) {
	args := c.effectiveArgs()
	if len(args) == 0 {
		c.closeStdio()
		c.closeCaptures()
		return nil, errors.New("empty command")
	}
	switch {
	case args[0] == cdCmd:
		return c.spawnCd(args, currentDir)
	case c.inCmdMap:
		return c.spawnFn(args, currentDir, inline)
	default:
		return c.spawnProcess(args, currentDir)
	}
}

// spawnCd changes the shared working directory synchronously; no
// process or goroutine is created.
func (c *Cmd) spawnCd(args []string, currentDir *string) (*child, error) {
	err := c.runCd(args, currentDir)
	stdoutCap, stderrCap := c.takeCaptures()
	c.closeStdio()
	if err != nil {
		if stdoutCap != nil {
			stdoutCap.Close()
		}
		if stderrCap != nil {
			stderrCap.Close()
		}
		return nil, err
	}
	return newDoneChild(nil, c.String(), stdoutCap, stderrCap), nil
}

func (c *Cmd) runCd(args []string, currentDir *string) error {
	if len(args) == 1 {
		return errors.New("cd: missing directory")
	}
	if len(args) > 2 {
		return fmt.Errorf("cd: too many arguments: %s", c.String())
	}

	dir := args[1]
	if !filepath.IsAbs(dir) {
		base := *currentDir
		if base == "" {
			base, _ = os.Getwd()
		}
		dir = filepath.Join(base, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("cd %s: No such file or directory", dir)
	}
	if err := unix.Access(dir, unix.X_OK); err != nil {
		return fmt.Errorf("cd %s: %w", dir, err)
	}
	*currentDir = dir
	return nil
}

// spawnFn invokes the registered in-process function, inline or on its
// own goroutine. The CmdEnv takes ownership of the wired streams and
// closes them when the function returns.
func (c *Cmd) spawnFn(args []string, currentDir *string, inline bool) (*child, error) {
	cmdStr := c.String()
	fn, ok := lookupCmd(args[0])
	if !ok {
		c.closeStdio()
		c.closeCaptures()
		return nil, fmt.Errorf("%s: command not registered", args[0])
	}

	env := &CmdEnv{
		args: args,
		vars: c.vars,
		dir:  *currentDir,
	}
	if c.stdinRedirect != nil {
		env.stdin = c.stdinRedirect
	} else {
		env.stdin = cmdio.NewInherit(os.Stdin)
	}
	if c.stdoutRedirect != nil {
		env.stdout = c.stdoutRedirect
	} else {
		env.stdout = cmdio.NewInherit(os.Stdout)
	}
	if c.stderrRedirect != nil {
		env.stderr = c.stderrRedirect
	} else {
		env.stderr = cmdio.NewInherit(os.Stderr)
	}
	c.stdinRedirect, c.stdoutRedirect, c.stderrRedirect = nil, nil, nil

	stdoutCap, stderrCap := c.takeCaptures()

	if inline {
		// Build the child first so its stderr drain is already running:
		// the function may write more than a pipe buffer to stderr.
		ch := newDoneChild(nil, cmdStr, stdoutCap, stderrCap)
		ch.result = fn(env)
		env.close()
		return ch, nil
	}

	done := make(chan error, 1)
	go func() {
		err := fn(env)
		env.close()
		done <- err
	}()
	return newGoChild(done, cmdStr, stdoutCap, stderrCap), nil
}

// spawnProcess starts an external process with the merged environment,
// the shared working directory and the wired streams. The parent's
// copies of the streams are closed once the process holds its own.
func (c *Cmd) spawnProcess(args []string, currentDir *string) (*child, error) {
	cmd := exec.Command(args[0], args[1:]...)
	if len(c.vars) > 0 {
		env := os.Environ()
		for k, v := range c.vars {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	if *currentDir != "" {
		cmd.Dir = *currentDir
	}
	if c.sysProcAttr != nil {
		cmd.SysProcAttr = c.sysProcAttr
	}

	if c.stdinRedirect != nil {
		cmd.Stdin = c.stdinRedirect.File()
	} else {
		cmd.Stdin = os.Stdin
	}
	if c.stdoutRedirect != nil {
		cmd.Stdout = c.stdoutRedirect.File()
	} else {
		cmd.Stdout = os.Stdout
	}
	if c.stderrRedirect != nil {
		cmd.Stderr = c.stderrRedirect.File()
	} else {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Start()
	c.closeStdio()
	if err != nil {
		c.closeCaptures()
		return nil, err
	}
	stdoutCap, stderrCap := c.takeCaptures()
	return newProcChild(cmd, c.String(), stdoutCap, stderrCap), nil
}
