package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MessagedFile holds authors who were sent a message.
	MessagedFile = "messaged_authors.txt"
	// NoChatFile holds authors without a chat channel or rejected by the classifier.
	NoChatFile = "no_chat_authors.txt"
)

// FileStore keeps each partition as a newline-delimited text file.
type FileStore struct {
	messagedPath string
	noChatPath   string
}

// NewFileStore creates a store with both partition files inside dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		messagedPath: filepath.Join(dir, MessagedFile),
		noChatPath:   filepath.Join(dir, NoChatFile),
	}
}

// Load reads both files. A missing or unreadable file counts as empty.
func (s *FileStore) Load(ctx context.Context) ([]Record, error) {
	var records []Record
	for _, part := range []struct {
		path    string
		outcome Outcome
	}{
		{s.messagedPath, Messaged},
		{s.noChatPath, NoChatAvailable},
	} {
		names, err := readLines(part.path)
		if err != nil {
			slog.Warn("skipping unreadable ledger partition", "path", part.path, "error", err)
			continue
		}
		for _, name := range names {
			records = append(records, Record{Username: name, Outcome: part.outcome})
		}
	}
	return records, nil
}

// Append writes one username line to the partition file for rec.Outcome.
func (s *FileStore) Append(ctx context.Context, rec Record) error {
	var path string
	switch rec.Outcome {
	case Messaged:
		path = s.messagedPath
	case NoChatAvailable:
		path = s.noChatPath
	default:
		return fmt.Errorf("unknown outcome %d", rec.Outcome)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(rec.Username + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Close is a no-op; files are opened per append.
func (s *FileStore) Close() error {
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			lines = append(lines, name)
		}
	}
	return lines, scanner.Err()
}
