package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/macromover/internal/engine"
)

// Read loads and validates the portable document at path.
// Failures are reported as FILE_READ errors.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.NewFileReadError(path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, engine.NewFileReadError(path, err)
	}
	return doc, nil
}

// Parse validates data against the document schema and decodes it.
// Unknown fields are ignored; null scalars decode as their zero value.
func Parse(data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// Encode renders doc as indented JSON with a trailing newline.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc.normalized()); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes doc to path, creating the parent directory if needed.
// Failures are reported as FILE_WRITE errors.
func Write(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return engine.NewFileWriteError(path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return engine.NewFileWriteError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return engine.NewFileWriteError(path, err)
	}
	return nil
}

// DefaultFileName names a retrieve output file after t:
// macro-retrieve-<month>-<day>-<year>-<hour>-<minute>-<second>.json,
// with the calendar month (1-12) and the day of the month.
func DefaultFileName(t time.Time) string {
	return fmt.Sprintf("macro-retrieve-%d-%d-%d-%d-%d-%d.json",
		int(t.Month()), t.Day(), t.Year(), t.Hour(), t.Minute(), t.Second())
}

// Destination returns the output path for a retrieve into dir.
// An explicit name gets a .json extension unless it already has one;
// an empty name falls back to DefaultFileName(now).
func Destination(dir, name string, now time.Time) string {
	if name == "" {
		return filepath.Join(dir, DefaultFileName(now))
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return filepath.Join(dir, name)
}
