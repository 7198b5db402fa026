package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := l.Log(`["echo" "hi"]`, 0, "", 12*time.Millisecond, "/tmp"); err != nil {
		t.Fatal(err)
	}
	if err := l.Log(`["false"]`, 1, "exited with code 1", time.Millisecond, "/tmp"); err != nil {
		t.Fatal(err)
	}

	if err := Verify(path); err != nil {
		t.Errorf("expected valid chain, got: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Log(`["true"]`, 0, "", time.Millisecond, "/"); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the second line's cmd field.
	tampered := strings.Replace(string(data), `["true"]`, `["trux"]`, 2)
	tampered = strings.Replace(tampered, `["trux"]`, `["true"]`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Verify(path); err == nil {
		t.Error("expected verification failure after tampering")
	}
}

func TestVerifyDetectsShortenedHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Log(`["true"]`, 0, "", time.Millisecond, "/"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entry Entry
	if err := json.Unmarshal(splitLines(data)[0], &entry); err != nil {
		t.Fatal(err)
	}
	// Replace the hash with something shorter than the abbreviation the
	// error message prints.
	entry.Hash = "beef"
	tampered, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append(tampered, '\n'), 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "hash mismatch") {
		t.Errorf("expected hash mismatch, got: %v", err)
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Log(`["true"]`, 0, "", time.Millisecond, "/"); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	// Drop the middle entry.
	trimmed := lines[0] + lines[2]
	if err := os.WriteFile(path, []byte(trimmed), 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(path)
	if err == nil || !strings.Contains(err.Error(), "sequence gap") {
		t.Errorf("expected sequence gap, got: %v", err)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := Verify(path); err != nil {
		t.Errorf("empty log should verify clean, got: %v", err)
	}
}

func TestLoggerResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")

	l1, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l1.Log(`["echo" "one"]`, 0, "", time.Millisecond, "/"); err != nil {
		t.Fatal(err)
	}

	l2, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l2.Log(`["echo" "two"]`, 0, "", time.Millisecond, "/"); err != nil {
		t.Fatal(err)
	}

	if err := Verify(path); err != nil {
		t.Errorf("chain broken across logger restarts: %v", err)
	}
	entries, err := Tail(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Seq != 2 {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runlog.jsonl")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := l.Log(`["true"]`, 0, "", time.Millisecond, "/"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Tail(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Seq != 4 || entries[1].Seq != 5 {
		t.Errorf("got seqs %d, %d; want 4, 5", entries[0].Seq, entries[1].Seq)
	}
}
