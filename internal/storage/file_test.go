package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tbourn/go-contact-intake/internal/domain"
)

func sampleSubmission(id string) *domain.Submission {
	return &domain.Submission{
		ID:          id,
		Name:        "Ann",
		Email:       "ann@x.com",
		Message:     "hi <b>there</b> ünïcode",
		SubmittedAt: "2024-05-06T07:08:09Z",
		IP:          "203.0.113.7",
	}
}

func readLines(t *testing.T, path string) []domain.Submission {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out []domain.Submission
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var s domain.Submission
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestFileAppender_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.jsonl")
	fa := NewFileAppender(path)
	if fa.Name() != "file" {
		t.Fatalf("Name() = %q", fa.Name())
	}

	in := sampleSubmission("0123456789abcdef0123456789abcdef")
	id, err := fa.Write(context.Background(), in)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if id != in.ID {
		t.Fatalf("id = %q, want local token %q", id, in.ID)
	}

	lines := readLines(t, path)
	if len(lines) != 1 || lines[0] != *in {
		t.Fatalf("round trip mismatch: %+v", lines)
	}

	raw, _ := os.ReadFile(path)
	if !json.Valid(raw[:len(raw)-1]) || raw[len(raw)-1] != '\n' {
		t.Fatalf("expected one newline-terminated JSON line, got %q", raw)
	}
	if bytes.Contains(raw, []byte(`\u003c`)) || !bytes.Contains(raw, []byte("<b>")) || !bytes.Contains(raw, []byte("ünïcode")) {
		t.Fatalf("HTML and non-ASCII text should be written unescaped: %s", raw)
	}
}

func TestFileAppender_AppendsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.jsonl")
	fa := NewFileAppender(path)
	for i := 0; i < 3; i++ {
		if _, err := fa.Write(context.Background(), sampleSubmission(fmt.Sprintf("id-%d", i))); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	lines := readLines(t, path)
	if len(lines) != 3 || lines[0].ID != "id-0" || lines[2].ID != "id-2" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestFileAppender_ConcurrentWritesDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.jsonl")
	fa := NewFileAppender(path)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := sampleSubmission(fmt.Sprintf("id-%02d", i))
			if _, err := fa.Write(context.Background(), s); err != nil {
				t.Errorf("Write: %v", err)
			}
		}(i)
	}
	wg.Wait()

	lines := readLines(t, path)
	if len(lines) != n {
		t.Fatalf("got %d lines, want %d", len(lines), n)
	}
	seen := map[string]bool{}
	for _, l := range lines {
		seen[l.ID] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestFileAppender_OpenFailureIsWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "submissions.jsonl")
	_, err := NewFileAppender(path).Write(context.Background(), sampleSubmission("x"))
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected *WriteError, got %T %v", err, err)
	}
	if we.Backend != "file" || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected write error: %+v", we)
	}
	if err.Error() != we.Err.Error() {
		t.Fatalf("message should be the underlying failure, got %q", err.Error())
	}
}
