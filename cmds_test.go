package gosh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunAllStagesSucceed(t *testing.T) {
	p := NewPipeline().
		Pipe(NewCmd().AddArgs("echo", "hello")).
		Pipe(NewCmd().AddArgs("grep", "hello"))
	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestOutputTrimsTrailingWhitespace(t *testing.T) {
	out, err := NewPipeline().Pipe(NewCmd().AddArgs("echo", "rust")).Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != "rust" {
		t.Errorf("got %q, want %q", out, "rust")
	}
}

func TestOutputPipedStages(t *testing.T) {
	out, err := NewPipeline().
		Pipe(NewCmd().AddArgs("echo", "rust")).
		Pipe(NewCmd().AddArgs("wc", "-c")).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "5" {
		t.Errorf("got %q, want 5", out)
	}
}

func TestPipefailReportsFirstFailure(t *testing.T) {
	p := NewPipeline().
		Pipe(NewCmd().AddArgs("sh", "-c", "exit 3")).
		Pipe(NewCmd().AddArgs("true"))
	err := p.Run()
	if err == nil {
		t.Fatal("expected the first stage failure to surface")
	}
	var exit *ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exit.Code != 3 {
		t.Errorf("got exit code %d, want 3", exit.Code)
	}
}

func TestPipefailDisabledReportsLastStage(t *testing.T) {
	t.Setenv(pipefailEnv, "0")
	p := NewPipeline().
		Pipe(NewCmd().AddArgs("sh", "-c", "exit 3")).
		Pipe(NewCmd().AddArgs("true"))
	if err := p.Run(); err != nil {
		t.Fatalf("last stage succeeded, expected no error, got %v", err)
	}
}

func TestIgnoreSwallowsFailure(t *testing.T) {
	p := NewPipeline().Pipe(NewCmd().AddArgs("ignore", "false"))
	if err := p.Run(); err != nil {
		t.Fatalf("ignored failure leaked: %v", err)
	}

	out, err := NewPipeline().
		Pipe(NewCmd().AddArgs("ignore", "sh", "-c", "echo partial; exit 1")).
		Output()
	if err != nil {
		t.Fatalf("ignored failure leaked: %v", err)
	}
	if out != "" {
		t.Errorf("ignored failing capture should be empty, got %q", out)
	}
}

func TestStdoutToFileRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.txt")

	p := NewPipeline().Pipe(NewCmd().
		AddArgs("echo", "rust").
		AddRedirect(StdoutToFile{Path: file}))
	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	out, err := NewPipeline().Pipe(NewCmd().AddArgs("cat", file)).Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != "rust" {
		t.Errorf("got %q, want %q", out, "rust")
	}
}

func TestAppendRedirect(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.txt")
	for _, word := range []string{"one", "two"} {
		p := NewPipeline().Pipe(NewCmd().
			AddArgs("echo", word).
			AddRedirect(StdoutToFile{Path: file, Append: true}))
		if err := p.Run(); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo\n" {
		t.Errorf("got %q", data)
	}
}

func TestFileToStdin(t *testing.T) {
	file := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(file, []byte("alpha\nbeta\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := NewPipeline().Pipe(NewCmd().
		AddArgs("wc", "-l").
		AddRedirect(FileToStdin{Path: file})).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "2" {
		t.Errorf("got %q, want 2", out)
	}
}

func TestDevNullRedirect(t *testing.T) {
	err := NewPipeline().Pipe(NewCmd().
		AddArgs("echo", "discarded").
		AddRedirect(StdoutToFile{Path: os.DevNull})).
		Run()
	if err != nil {
		t.Fatal(err)
	}
}

func TestStderrToStdoutCapture(t *testing.T) {
	out, err := NewPipeline().Pipe(NewCmd().
		AddArgs("sh", "-c", "echo out; echo err 1>&2").
		AddRedirect(StderrToStdout{})).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "out") || !strings.Contains(out, "err") {
		t.Errorf("expected both streams in capture, got %q", out)
	}
}

func TestEnvVarOverride(t *testing.T) {
	out, err := NewPipeline().Pipe(NewCmd().
		AddArgs("GOSH_TEST_VAR=from-builder", "sh", "-c", "echo $GOSH_TEST_VAR")).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != "from-builder" {
		t.Errorf("got %q", out)
	}
}

func TestEmptyPipeline(t *testing.T) {
	if err := NewPipeline().Run(); err == nil {
		t.Error("running an empty pipeline should fail")
	}
}

func TestPipelineSingleUse(t *testing.T) {
	p := NewPipeline().Pipe(NewCmd().AddArgs("true"))
	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(); err == nil {
		t.Error("second run of the same pipeline should fail")
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := NewPipeline().Pipe(NewCmd().AddArgs("sh", "-c", "exit 2")).Run()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exited with code 2") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestSpawnUnknownCommand(t *testing.T) {
	err := NewPipeline().Pipe(NewCmd().AddArgs("gosh-no-such-binary-xyz")).Run()
	if err == nil {
		t.Fatal("expected spawn failure")
	}
	if !strings.Contains(err.Error(), "spawning") {
		t.Errorf("unexpected message: %v", err)
	}
}

// Two registered commands piped together with more data than a kernel
// pipe buffer holds. Each side runs on its own goroutine, so the write
// end drains while the read end consumes.
func TestRegisteredCommandsLargePipe(t *testing.T) {
	const total = 1 << 20
	Register("gosh-test-spew", func(env *CmdEnv) error {
		chunk := strings.Repeat("x", 8192)
		written := 0
		for written < total {
			n, err := io.WriteString(env.Stdout(), chunk)
			if err != nil {
				return err
			}
			written += n
		}
		return nil
	})
	Register("gosh-test-count", func(env *CmdEnv) error {
		n, err := io.Copy(io.Discard, env.Stdin())
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout(), n)
		return nil
	})

	out, err := NewPipeline().
		Pipe(NewCmd().AddArgs("gosh-test-spew")).
		Pipe(NewCmd().AddArgs("gosh-test-count")).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != fmt.Sprint(total) {
		t.Errorf("got %q, want %d", out, total)
	}
}

// A sole-stage registered command runs on the calling goroutine, so its
// stderr observation pipe must already have a live reader: a write
// larger than a kernel pipe buffer would otherwise block forever.
func TestInlineCommandLargeStderr(t *testing.T) {
	const total = 256 * 1024
	Register("gosh-test-stderr-spew", func(env *CmdEnv) error {
		chunk := strings.Repeat("e", 8192)
		written := 0
		for written < total {
			n, err := io.WriteString(env.Stderr(), chunk)
			if err != nil {
				return err
			}
			written += n
		}
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- NewPipeline().Pipe(NewCmd().AddArgs("gosh-test-stderr-spew")).Run()
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("inline command blocked writing stderr")
	}
}

func TestRegisteredCommandFailure(t *testing.T) {
	Register("gosh-test-fail", func(env *CmdEnv) error {
		return errors.New("boom")
	})
	err := NewPipeline().Pipe(NewCmd().AddArgs("gosh-test-fail")).Run()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRegisterOverwrite(t *testing.T) {
	Register("gosh-test-dup", func(env *CmdEnv) error {
		fmt.Fprint(env.Stdout(), "first")
		return nil
	})
	Register("gosh-test-dup", func(env *CmdEnv) error {
		fmt.Fprint(env.Stdout(), "second")
		return nil
	})
	out, err := NewPipeline().Pipe(NewCmd().AddArgs("gosh-test-dup")).Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != "second" {
		t.Errorf("got %q, want the later registration", out)
	}
}

func TestRegisteredCommandPipedWithExternal(t *testing.T) {
	Register("gosh-test-upper-src", func(env *CmdEnv) error {
		fmt.Fprintln(env.Stdout(), "mixed pipeline")
		return nil
	})
	out, err := NewPipeline().
		Pipe(NewCmd().AddArgs("gosh-test-upper-src")).
		Pipe(NewCmd().AddArgs("tr", "a-z", "A-Z")).
		Output()
	if err != nil {
		t.Fatal(err)
	}
	if out != "MIXED PIPELINE" {
		t.Errorf("got %q", out)
	}
}
