package file

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

	"go.uber.org/zap"
)

// maxLineSize bounds a single stored record
const maxLineSize = 4 * 1024 * 1024

// Storage appends records as JSON lines to a single file
type Storage struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// New creates a JSON-lines storage at path. The file and its directory are
// created on the first Append.
func New(path string, logger *zap.Logger) *Storage {
	return &Storage{path: path, logger: logger}
}

// Path returns the backing file
func (s *Storage) Path() string {
	return s.path
}

// Append writes record as one line at the end of the file
func (s *Storage) Append(ctx context.Context, record map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open storage file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// ReadAll returns every decodable line. Malformed lines are skipped.
func (s *Storage) ReadAll(ctx context.Context) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage file: %w", err)
	}
	defer f.Close()

	records := make([]map[string]any, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil || record == nil {
			s.logger.Warn("Skipping malformed record",
				zap.String("path", s.path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	return records, nil
}

// Close does nothing, the file is opened per call
func (s *Storage) Close() error {
	return nil
}
