// Package pending persists the durable queue of leads between pipeline runs.
//
// The queue is a flat JSON object mapping document id to lead, fully
// rewritten on every save. Saves go through a temp file plus rename so a
// reader only ever observes the previous complete state or the next one.
package pending

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sariahshoe/coldcase-ingest/internal/ingest"
)

// DefaultPath is where the queue lives relative to the working directory.
const DefaultPath = "ingest/pending_cases.json"

// Load reads the queue from disk. A missing file is not an error: the
// pipeline starts from an empty queue on its first run.
func Load(path string) (map[string]ingest.Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ingest.Lead{}, nil
		}
		return nil, fmt.Errorf("read pending queue: %w", err)
	}

	leads := map[string]ingest.Lead{}
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("decode pending queue %s: %w", path, err)
	}
	return leads, nil
}

// Save atomically replaces the persisted queue with the given mapping.
func Save(path string, leads map[string]ingest.Lead) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending queue: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pending-*.json")
	if err != nil {
		return fmt.Errorf("create queue temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write queue temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close queue temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace pending queue: %w", err)
	}
	return nil
}

// Remove deletes the given keys from the in-memory mapping and returns it.
// The deletion is durable only after a subsequent Save.
func Remove(leads map[string]ingest.Lead, keys []string) map[string]ingest.Lead {
	for _, key := range keys {
		delete(leads, key)
	}
	return leads
}
