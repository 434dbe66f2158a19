package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IngestDir loads every .txt and .json file under dir into the store.
// A .txt file becomes one document; a .json file holds an array of
// documents. Returns the number of documents added.
func IngestDir(ctx context.Context, store *Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read documents dir: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return 0, fmt.Errorf("read %s: %w", entry.Name(), err)
			}
			text := strings.TrimSpace(string(data))
			if text == "" {
				continue
			}
			docs = append(docs, Document{ID: uuid.NewString(), Text: text, Source: entry.Name()})
		case ".json":
			data, err := os.ReadFile(path)
			if err != nil {
				return 0, fmt.Errorf("read %s: %w", entry.Name(), err)
			}
			var fileDocs []Document
			if err := json.Unmarshal(data, &fileDocs); err != nil {
				return 0, fmt.Errorf("parse %s: %w", entry.Name(), err)
			}
			for i := range fileDocs {
				if fileDocs[i].ID == "" {
					fileDocs[i].ID = uuid.NewString()
				}
				if fileDocs[i].Source == "" {
					fileDocs[i].Source = entry.Name()
				}
			}
			docs = append(docs, fileDocs...)
		}
	}

	if len(docs) == 0 {
		return 0, nil
	}
	if err := store.Add(ctx, docs...); err != nil {
		return 0, err
	}
	return len(docs), nil
}
