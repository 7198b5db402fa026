package builtin_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goshlib/gosh"
	"github.com/goshlib/gosh/builtin"
)

func TestMain(m *testing.M) {
	builtin.RegisterAll()
	os.Exit(m.Run())
}

func output(t *testing.T, args ...string) string {
	t.Helper()
	out, err := gosh.NewPipeline().Pipe(gosh.NewCmd().AddArgs(args...)).Output()
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// stderrOf runs the command with stderr redirected to a file and
// returns the file's contents.
func stderrOf(t *testing.T, args ...string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "stderr")
	cmd := gosh.NewCmd().AddArgs(args...).
		AddRedirect(gosh.StderrToFile{Path: file})
	if err := gosh.NewPipeline().Pipe(cmd).Run(); err != nil {
		t.Fatal(err)
	}
	data, readErr := os.ReadFile(file)
	if readErr != nil {
		t.Fatal(readErr)
	}
	return string(data)
}

func TestTrue(t *testing.T) {
	if err := gosh.NewPipeline().Pipe(gosh.NewCmd().AddArgs("true")).Run(); err != nil {
		t.Fatal(err)
	}
}

func TestEcho(t *testing.T) {
	if got := output(t, "echo", "hello", "world"); got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestEchoEmpty(t *testing.T) {
	if got := output(t, "echo"); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestInfoWritesStderr(t *testing.T) {
	if got := stderrOf(t, "info", "note"); got != "note\n" {
		t.Errorf("got %q", got)
	}
}

func TestWarnPrefix(t *testing.T) {
	if got := stderrOf(t, "warn", "low disk"); got != "WARNING: low disk\n" {
		t.Errorf("got %q", got)
	}
}

func TestErrPrefix(t *testing.T) {
	if got := stderrOf(t, "err", "bad input"); got != "ERROR: bad input\n" {
		t.Errorf("got %q", got)
	}
}

func TestDieFails(t *testing.T) {
	err := gosh.NewPipeline().Pipe(gosh.NewCmd().AddArgs("die", "fatal", "problem")).Run()
	if err == nil {
		t.Fatal("die should fail the pipeline")
	}
	if !strings.Contains(err.Error(), "FATAL: fatal problem") {
		t.Errorf("got %v", err)
	}
}

func TestDieIgnored(t *testing.T) {
	err := gosh.NewPipeline().Pipe(gosh.NewCmd().AddArgs("ignore", "die", "but", "carry", "on")).Run()
	if err != nil {
		t.Errorf("ignored die leaked: %v", err)
	}
}

func TestEchoPipedIntoExternal(t *testing.T) {
	out, err := gosh.NewPipeline().
		Pipe(gosh.NewCmd().AddArgs("echo", "shout")).
		Pipe(gosh.NewCmd().AddArgs("tr", "a-z", "A-Z")).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != "SHOUT" {
		t.Errorf("got %q", out)
	}
}
