// Package runlog records executed pipelines in an append-only,
// hash-chained JSONL log so a run history can be inspected and checked
// for tampering.
package runlog

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const genesisInput = "gosh-genesis"

// Entry is a single run log record.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	RunID    string    `json:"run_id"`            // unique id for this execution
	Cmd      string    `json:"cmd"`               // reconstructed pipeline text
	ExitCode int       `json:"exit_code"`         // 0 = success
	Error    string    `json:"error,omitempty"`   // error message if failed
	Duration float64   `json:"duration_ms"`       // execution time in milliseconds
	Cwd      string    `json:"cwd"`               // working directory
	Hash     string    `json:"hash"`              // SHA-256 of this entry (with hash field empty)
}

// Logger is an append-only, hash-chained run log writer.
type Logger struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
}

// NewLogger opens or creates a run log at the given path. It reads the
// last entry to resume the hash chain.
func NewLogger(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}

	l := &Logger{
		path:     path,
		prevHash: genesisHash(),
	}

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		lines := splitLines(data)
		if len(lines) > 0 {
			var last Entry
			if err := json.Unmarshal(lines[len(lines)-1], &last); err == nil {
				l.seq = last.Seq
				l.prevHash = last.Hash
			}
		}
	}

	return l, nil
}

// Log appends one run record.
func (l *Logger) Log(cmd string, exitCode int, errMsg string, duration time.Duration, cwd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	entry := Entry{
		Seq:      l.seq,
		Time:     time.Now().UTC(),
		PrevHash: l.prevHash,
		RunID:    uuid.NewString(),
		Cmd:      cmd,
		ExitCode: exitCode,
		Error:    errMsg,
		Duration: float64(duration.Microseconds()) / 1000.0,
		Cwd:      cwd,
	}

	entry.Hash = computeHash(entry)
	l.prevHash = entry.Hash

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal run log entry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}

func genesisHash() string {
	sum := sha256.Sum256([]byte(genesisInput))
	return fmt.Sprintf("%x", sum)
}

func computeHash(entry Entry) string {
	entry.Hash = ""
	data, _ := json.Marshal(entry)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
