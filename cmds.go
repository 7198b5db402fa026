package gosh

import (
	"errors"

	"github.com/goshlib/gosh/internal/cmdio"
)

// Pipeline is an ordered sequence of Cmds connected by OS pipes, run as
// one unit. A Pipeline is single-use: it is consumed when started.
type Pipeline struct {
	cmds        []*Cmd
	fullCmds    string
	ignoreError bool
	started     bool
}

// NewPipeline returns an empty pipeline builder.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Pipe appends a command to the pipeline, taking ownership of it. An
// ignore marker is honored only on the first command, where it sets the
// whole pipeline's ignore-error policy.
func (p *Pipeline) Pipe(cmd *Cmd) *Pipeline {
	if p.fullCmds != "" {
		p.fullCmds += " | "
	}
	p.fullCmds += cmd.String()
	if cmd.ignoreMarked() {
		if len(p.cmds) == 0 {
			p.ignoreError = true
		} else {
			logger().Warn("ignore marker after the first pipeline command", "cmd", cmd.String())
		}
	}
	p.cmds = append(p.cmds, cmd)
	return p
}

// String returns the pipeline's reconstructed command text.
func (p *Pipeline) String() string {
	return p.fullCmds
}

// spawn starts every stage left to right without blocking on any
// stage's completion. Stages other than the last write into a fresh OS
// pipe whose read end becomes the next stage's stdin; pipe buffering
// provides all backpressure. When capture is requested the last stage's
// stdout is routed through a retained reader instead.
func (p *Pipeline) spawn(currentDir *string, withOutput bool) (*Children, error) {
	if p.started {
		return nil, errors.New("pipeline already started")
	}
	p.started = true
	if len(p.cmds) == 0 {
		return nil, errors.New("empty pipeline")
	}
	if debugEnabled() {
		logger().Debug("running command", "cmd", p.fullCmds)
	}

	n := len(p.cmds)
	inline := n == 1 && !withOutput
	children := make([]*child, 0, n)
	var prevPipeIn *cmdio.Handle

	// A start failure aborts the stages not yet started; stages already
	// running are reaped so no process or pipe leaks.
	abort := func(err error) (*Children, error) {
		if prevPipeIn != nil {
			prevPipeIn.Close()
		}
		for _, ch := range children {
			ch.wait()
		}
		return nil, err
	}

	for i, cmd := range p.cmds {
		var nextIn, pipeOut *cmdio.Handle
		if i != n-1 {
			r, w, err := cmdio.NewPipe()
			if err != nil {
				cmd.closeStdio()
				cmd.closeCaptures()
				return abort(err)
			}
			nextIn, pipeOut = r, w
		}

		if err := cmd.setupRedirects(prevPipeIn, pipeOut, withOutput && i == n-1); err != nil {
			prevPipeIn = nil
			cmd.closeStdio()
			cmd.closeCaptures()
			if nextIn != nil {
				nextIn.Close()
			}
			return abort(err)
		}
		prevPipeIn = nil

		ch, err := cmd.spawn(currentDir, inline)
		if err != nil {
			if nextIn != nil {
				nextIn.Close()
			}
			return abort(err)
		}
		children = append(children, ch)
		prevPipeIn = nextIn
	}

	return &Children{children: children, ignoreError: p.ignoreError}, nil
}

// run executes the pipeline against the shared working directory and
// waits for every stage.
func (p *Pipeline) run(currentDir *string) error {
	children, err := p.spawn(currentDir, false)
	if err != nil {
		if p.ignoreError {
			return nil
		}
		return spawnError(p.fullCmds, err)
	}
	return children.Wait()
}

// output executes the pipeline with capture enabled on the last stage
// and returns its text.
func (p *Pipeline) output(currentDir *string) (string, error) {
	children, err := p.spawn(currentDir, true)
	if err != nil {
		if p.ignoreError {
			return "", nil
		}
		return "", spawnError(p.fullCmds, err)
	}
	return children.intoFunChildren().WaitWithOutput()
}

// Run executes the pipeline in the process working directory and waits
// for every stage.
func (p *Pipeline) Run() error {
	dir := ""
	return p.run(&dir)
}

// Output executes the pipeline and returns the last stage's output with
// trailing whitespace trimmed.
func (p *Pipeline) Output() (string, error) {
	dir := ""
	return p.output(&dir)
}
