package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source yields the raw records of one input document.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string
	// Records returns every raw record in the document. A document holding
	// a single object is normalized to a one-element slice.
	Records(ctx context.Context) ([]map[string]interface{}, error)
}

// FileSource reads one JSON document from the local filesystem.
type FileSource struct{ Path string }

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Records(ctx context.Context) ([]map[string]interface{}, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return decodeRecords(f, s.Path)
}

// DirSources lists every .json file in a directory as a FileSource,
// sorted by name for a stable processing order.
func DirSources(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, FileSource{Path: filepath.Join(dir, name)})
	}
	return sources, nil
}

// decodeRecords parses a JSON document that is either an array of objects
// or a single object.
func decodeRecords(r io.Reader, name string) ([]map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []map[string]interface{}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return records, nil
	}

	var record map[string]interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return []map[string]interface{}{record}, nil
}
