package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/stepgraph/internal/dto"
	"github.com/aretw0/stepgraph/pkg/domain"
	"gopkg.in/yaml.v3"
)

// LoadGraph reads a graph definition from a YAML or JSON file.
// The format is chosen by extension; anything but .json is parsed as YAML.
func LoadGraph(path string) (*domain.GraphDefinition, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	g, err := dto.DecodeGraph(raw)
	if err != nil {
		return nil, fmt.Errorf("graph %s: %w", path, err)
	}
	return g, nil
}

// LoadGraphDir loads every .yaml, .yml and .json file in dir as a graph.
// Files are read in name order.
func LoadGraphDir(dir string) ([]*domain.GraphDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	graphs := make([]*domain.GraphDefinition, 0, len(names))
	for _, name := range names {
		g, err := LoadGraph(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// LoadState reads an initial state document from a YAML or JSON file.
// An empty path yields an empty state.
func LoadState(path string) (domain.State, error) {
	if path == "" {
		return domain.State{}, nil
	}
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return domain.State(raw), nil
}

// ParseState parses a state document held in memory.
func ParseState(data []byte, format string) (domain.State, error) {
	raw, err := parseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return domain.State(raw), nil
}

func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	raw, err := parseDocument(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func parseDocument(data []byte, format string) (map[string]any, error) {
	raw := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}
