package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/stepgraph/pkg/schema"
	"gopkg.in/yaml.v3"
)

// ProcessConfig describes one allow-listed external tool.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Timeout is a Go duration string such as "30s". Empty means no limit.
	Timeout string `yaml:"timeout" json:"timeout"`
	// Inputs declares the state keys the command needs, as schema type
	// strings ("string", "?float", "[string]").
	Inputs map[string]string `yaml:"inputs" json:"inputs"`
}

// ConfigFile is the structure of tools.yaml.
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a tools file (YAML, or JSON by extension) and returns the
// configs keyed by name. A missing file means no external tools.
func LoadTools(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	tools := make(map[string]ProcessConfig, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if tool.Command == "" {
			return nil, fmt.Errorf("tool %q: command is empty", tool.Name)
		}
		if _, err := tool.timeout(); err != nil {
			return nil, fmt.Errorf("tool %q: %w", tool.Name, err)
		}
		if _, err := schema.ParseTypeMap(tool.Inputs); err != nil {
			return nil, fmt.Errorf("tool %q inputs: %w", tool.Name, err)
		}
		tools[tool.Name] = tool
	}
	return tools, nil
}

func (c ProcessConfig) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
