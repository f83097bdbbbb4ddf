package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/domain"
)

// FileAppender appends one JSON line per submission to a local file. The file
// is opened and closed on every write; no handle is held between calls.
// Writes from concurrent requests are serialized so lines never interleave.
type FileAppender struct {
	path string
	mu   sync.Mutex
}

// NewFileAppender returns a FileAppender writing to path. The file is created
// on first write.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path}
}

// Name implements Backend.
func (*FileAppender) Name() string { return config.BackendFile }

// Write implements Backend. The identifier is the submission's local token.
func (f *FileAppender) Write(_ context.Context, s *domain.Submission) (string, error) {
	line, err := encodeLine(s)
	if err != nil {
		return "", writeErr(config.BackendFile, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.appendLine(line); err != nil {
		return "", writeErr(config.BackendFile, err)
	}
	return s.ID, nil
}

func (f *FileAppender) appendLine(line []byte) (err error) {
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = fh.Write(line)
	return err
}

// encodeLine renders s as a single newline-terminated JSON object, leaving
// HTML characters and non-ASCII text unescaped.
func encodeLine(s *domain.Submission) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
