package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// RunStore implements ports.RunStore on the local filesystem.
// Each run is one indented JSON file named <run_id>.json under BasePath.
type RunStore struct {
	BasePath string
}

// NewRunStore creates a RunStore rooted at basePath.
// If basePath is empty, it defaults to ".stepgraph/runs".
func NewRunStore(basePath string) *RunStore {
	if basePath == "" {
		basePath = filepath.Join(".stepgraph", "runs")
	}
	return &RunStore{BasePath: basePath}
}

// Save writes the record atomically: temp file, fsync, rename.
func (s *RunStore) Save(_ context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return errors.New("run record is nil")
	}
	if err := checkID(rec.RunID); err != nil {
		return err
	}
	return writeJSON(s.BasePath, rec.RunID, rec)
}

// Get reads a run record.
func (s *RunStore) Get(_ context.Context, runID string) (*domain.RunRecord, error) {
	if err := checkID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.BasePath, runID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", domain.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %q: %w", runID, err)
	}
	return &rec, nil
}

// List returns the stored run ids, sorted.
func (s *RunStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a run file.
func (s *RunStore) Delete(_ context.Context, runID string) error {
	if err := checkID(runID); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.BasePath, runID+".json"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

// tempPrefix marks in-flight writes; List skips it so ids may not use it.
const tempPrefix = "tmp-"

// checkID rejects ids that cannot name a run file. Such a run can never
// exist, so the error matches domain.ErrRunNotFound.
func checkID(id string) error {
	if id == "" {
		return errors.New("run id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasPrefix(id, tempPrefix) {
		return fmt.Errorf("%w: invalid run id %q", domain.ErrRunNotFound, id)
	}
	return nil
}

func writeJSON(dir, id string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", id, err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, tempPrefix+id+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, id+".json")); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
