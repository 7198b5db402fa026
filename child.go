package gosh

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/goshlib/gosh/internal/cmdio"
)

type childKind int

const (
	childProc childKind = iota // started external process
	childGo                    // in-process function on its own goroutine
	childDone                  // already-completed result (cd, inline function)
)

// child is one started stage of a pipeline. The handle is an explicit
// three-case value rather than an interface so the inline, goroutine
// and process paths stay visible at the call site.
type child struct {
	kind   childKind
	proc   *exec.Cmd
	done   chan error
	result error

	cmdStr        string
	stdoutCapture *cmdio.Handle
	stderrTail    chan string
}

func newProcChild(proc *exec.Cmd, cmdStr string, stdoutCap, stderrCap *cmdio.Handle) *child {
	c := &child{kind: childProc, proc: proc, cmdStr: cmdStr, stdoutCapture: stdoutCap}
	c.drainStderr(stderrCap)
	return c
}

func newGoChild(done chan error, cmdStr string, stdoutCap, stderrCap *cmdio.Handle) *child {
	c := &child{kind: childGo, done: done, cmdStr: cmdStr, stdoutCapture: stdoutCap}
	c.drainStderr(stderrCap)
	return c
}

func newDoneChild(result error, cmdStr string, stdoutCap, stderrCap *cmdio.Handle) *child {
	c := &child{kind: childDone, result: result, cmdStr: cmdStr, stdoutCapture: stdoutCap}
	c.drainStderr(stderrCap)
	return c
}

// drainStderr consumes the stage's stderr observation pipe as the stage
// runs, echoing the text to the process stderr and retaining a bounded
// tail for failure diagnostics. Draining continuously keeps the stage
// from blocking on a full pipe buffer.
func (c *child) drainStderr(h *cmdio.Handle) {
	if h == nil {
		return
	}
	tail := make(chan string, 1)
	c.stderrTail = tail
	go func() {
		defer h.Close()
		var tb tailBuffer
		io.Copy(io.MultiWriter(os.Stderr, &tb), h)
		tail <- tb.String()
	}()
}

func (c *child) takeStderrTail() string {
	if c.stderrTail == nil {
		return ""
	}
	t := <-c.stderrTail
	c.stderrTail = nil
	return t
}

// wait blocks until the stage has finished and reports its outcome.
func (c *child) wait() error {
	var err error
	switch c.kind {
	case childProc:
		err = c.proc.Wait()
	case childGo:
		err = <-c.done
	case childDone:
		err = c.result
	}
	tail := c.takeStderrTail()
	if c.stdoutCapture != nil {
		c.stdoutCapture.Close()
		c.stdoutCapture = nil
	}
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return &ExitError{Code: exitErr.ExitCode(), Cmd: c.cmdStr, Stderr: tail}
	}
	return fmt.Errorf("running %s failed: %w", c.cmdStr, err)
}

// Children owns the started stages of one pipeline. Wait must be called
// exactly once.
type Children struct {
	children    []*child
	ignoreError bool
}

// Wait blocks until every stage has finished, left to right, and
// reports the pipeline's aggregate outcome: the first failing stage
// under pipefail (the default), otherwise only the last stage's
// outcome. An ignore-error pipeline reports success regardless.
func (cs *Children) Wait() error {
	err := cs.waitAll()
	if err != nil && cs.ignoreError {
		return nil
	}
	return err
}

func (cs *Children) waitAll() error {
	var firstErr, lastErr error
	for i, ch := range cs.children {
		err := ch.wait()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if i == len(cs.children)-1 {
			lastErr = err
		}
	}
	if pipefailEnabled() {
		return firstErr
	}
	return lastErr
}

func (cs *Children) intoFunChildren() *FunChildren {
	return &FunChildren{children: cs.children, ignoreError: cs.ignoreError}
}

// FunChildren is a Children whose last stage has output capture enabled.
type FunChildren struct {
	children    []*child
	ignoreError bool
}

// WaitWithOutput reads the last stage's captured output to EOF, waits
// for every stage, and returns the text with trailing whitespace
// trimmed. An ignore-error pipeline yields empty text on failure
// instead of the error.
func (fc *FunChildren) WaitWithOutput() (string, error) {
	last := fc.children[len(fc.children)-1]
	var out []byte
	var readErr error
	if last.stdoutCapture != nil {
		out, readErr = io.ReadAll(last.stdoutCapture)
		last.stdoutCapture.Close()
		last.stdoutCapture = nil
	}
	cs := Children{children: fc.children, ignoreError: fc.ignoreError}
	err := cs.waitAll()
	if err == nil {
		err = readErr
	}
	if err != nil {
		if fc.ignoreError {
			return "", nil
		}
		return "", err
	}
	return strings.TrimRight(string(out), " \t\r\n"), nil
}

// tailBuffer keeps the last tailSize bytes written to it.
type tailBuffer struct {
	buf []byte
}

const tailSize = 4096

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
