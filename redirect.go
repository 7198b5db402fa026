package gosh

import "fmt"

// Redirect is one I/O redirection directive for a single command. The
// set of directives is closed: FileToStdin, StdoutToStderr,
// StderrToStdout, StdoutToFile and StderrToFile. Directives are applied
// in declaration order, stdin first, then stdout, then stderr; the two
// cross-stream directives duplicate whatever the opposite stream
// resolves to at the moment they are applied.
type Redirect interface {
	fmt.Stringer
	redirect()
}

// FileToStdin feeds the command's stdin from a file.
type FileToStdin struct {
	Path string
}

// StdoutToStderr points stdout at the command's stderr sink (>&2).
type StdoutToStderr struct{}

// StderrToStdout points stderr at the command's stdout sink (2>&1).
type StderrToStdout struct{}

// StdoutToFile writes stdout to a file, optionally appending.
type StdoutToFile struct {
	Path   string
	Append bool
}

// StderrToFile writes stderr to a file, optionally appending.
type StderrToFile struct {
	Path   string
	Append bool
}

func (FileToStdin) redirect()    {}
func (StdoutToStderr) redirect() {}
func (StderrToStdout) redirect() {}
func (StdoutToFile) redirect()   {}
func (StderrToFile) redirect()   {}

func (r FileToStdin) String() string  { return "< " + r.Path }
func (StdoutToStderr) String() string { return ">&2" }
func (StderrToStdout) String() string { return "2>&1" }

func (r StdoutToFile) String() string {
	if r.Append {
		return "1>> " + r.Path
	}
	return "1> " + r.Path
}

func (r StderrToFile) String() string {
	if r.Append {
		return "2>> " + r.Path
	}
	return "2> " + r.Path
}

// FdRedirect builds the directive that redirects the numbered stream
// (0=stdin, 1=stdout, 2=stderr) to a file path.
func FdRedirect(fd int, path string, appendFile bool) (Redirect, error) {
	switch fd {
	case 0:
		return FileToStdin{Path: path}, nil
	case 1:
		return StdoutToFile{Path: path, Append: appendFile}, nil
	case 2:
		return StderrToFile{Path: path, Append: appendFile}, nil
	default:
		return nil, fmt.Errorf("unsupported redirect stream %d", fd)
	}
}

// FdAlias builds the directive that points oldFd at newFd's current
// sink. Only 1>&2 and 2>&1 are meaningful.
func FdAlias(oldFd, newFd int) (Redirect, error) {
	switch {
	case oldFd == 1 && newFd == 2:
		return StdoutToStderr{}, nil
	case oldFd == 2 && newFd == 1:
		return StderrToStdout{}, nil
	default:
		return nil, fmt.Errorf("unsupported stream alias %d>&%d", oldFd, newFd)
	}
}
