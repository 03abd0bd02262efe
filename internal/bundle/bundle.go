// Package bundle reads and writes the per-category JSON files of a backup
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// backupDirPattern matches the timestamped directory names of backup runs
var backupDirPattern = regexp.MustCompile(`^\d{14}$`)

// FileName returns the file name of a category: {item}_{endpoint}.json, or
// {item}.json when there is no endpoint
func FileName(item, endpoint string) string {
	if endpoint == "" {
		return item + ".json"
	}
	return item + "_" + endpoint + ".json"
}

// Reader loads categories from a backup directory
type Reader struct {
	dir string
}

// NewReader creates a reader over dir
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Read returns the entries of a category. A missing file or an empty array
// returns nil without error; a file that is not a JSON array is an error.
func (r *Reader) Read(category string) ([]json.RawMessage, error) {
	path := filepath.Join(r.dir, category+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON in %s", path)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("expected a JSON array in %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries, nil
}

// Writer stores fetched categories in a backup directory
type Writer struct {
	dir string
}

// NewWriter creates the backup directory if needed
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write stores a raw JSON body as an indented file. It returns false without
// writing when the body is empty or holds an empty array or object.
func (w *Writer) Write(item, endpoint string, body []byte) (bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "    "); err != nil {
		return false, fmt.Errorf("invalid JSON for %s/%s: %w", item, endpoint, err)
	}

	path := filepath.Join(w.dir, FileName(item, endpoint))
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// Latest returns the newest timestamped backup directory under root
func Latest(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to list backups in %s: %w", root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && backupDirPattern.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no backups found in %s", root)
	}

	sort.Strings(names)
	return filepath.Join(root, names[len(names)-1]), nil
}
