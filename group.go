package gosh

import "errors"

// Group is an ordered sequence of independent pipelines sharing one
// mutable working directory. Pipelines execute strictly one after
// another; a directory change made by one persists for the rest. A
// Group is single-use.
type Group struct {
	pipelines  []*Pipeline
	currentDir string
}

// NewGroup returns an empty group. The working directory starts as the
// process working directory.
func NewGroup() *Group {
	return &Group{}
}

// WithDir seeds the group's working directory, letting a caller thread
// the directory across separately built groups.
func (g *Group) WithDir(dir string) *Group {
	g.currentDir = dir
	return g
}

// Dir returns the group's working directory, reflecting any directory
// changes made by pipelines that have run.
func (g *Group) Dir() string {
	return g.currentDir
}

// Append adds a pipeline to the group, taking ownership of it.
func (g *Group) Append(p *Pipeline) *Group {
	g.pipelines = append(g.pipelines, p)
	return g
}

// Run executes each pipeline in order. A failing pipeline aborts the
// group unless that pipeline is ignore-error, in which case the group
// continues with the next one.
func (g *Group) Run() error {
	for _, p := range g.pipelines {
		if err := p.run(&g.currentDir); err != nil {
			return err
		}
	}
	return nil
}

// Output runs every pipeline but the last for effect only, then returns
// the last pipeline's captured text. If the last pipeline fails and is
// ignore-error the group yields empty text.
func (g *Group) Output() (string, error) {
	if len(g.pipelines) == 0 {
		return "", errors.New("empty group")
	}
	last := g.pipelines[len(g.pipelines)-1]
	for _, p := range g.pipelines[:len(g.pipelines)-1] {
		if err := p.run(&g.currentDir); err != nil {
			return "", err
		}
	}
	return last.output(&g.currentDir)
}

// Start begins execution without waiting. It is defined only for a
// group holding exactly one pipeline and returns a live, waitable
// handle. A start failure carries the pipeline's reconstructed text
// unless the pipeline is ignore-error.
func (g *Group) Start() (*Children, error) {
	p, err := g.solePipeline()
	if err != nil {
		return nil, err
	}
	children, err := p.spawn(&g.currentDir, false)
	if err != nil && !p.ignoreError {
		return nil, spawnError(p.fullCmds, err)
	}
	return children, err
}

// StartWithOutput is Start with output capture enabled on the
// pipeline's last stage.
func (g *Group) StartWithOutput() (*FunChildren, error) {
	p, err := g.solePipeline()
	if err != nil {
		return nil, err
	}
	children, err := p.spawn(&g.currentDir, true)
	if err != nil {
		if !p.ignoreError {
			return nil, spawnError(p.fullCmds, err)
		}
		return nil, err
	}
	return children.intoFunChildren(), nil
}

func (g *Group) solePipeline() (*Pipeline, error) {
	if len(g.pipelines) != 1 {
		return nil, errors.New("start requires a group holding exactly one pipeline")
	}
	return g.pipelines[0], nil
}
