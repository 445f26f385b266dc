package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/schema"
)

// EnvToolName is set in the child environment to the tool's registered name.
const EnvToolName = "STEPGRAPH_TOOL"

// Tool runs an allow-listed command as a registry.Tool.
//
// The current state is written to the command's stdin as a JSON object. If
// the command prints a JSON object on stdout, its keys are merged into a copy
// of the state; empty output leaves the state unchanged. A non-zero exit is a
// tool error carrying stderr.
type Tool struct {
	cfg     ProcessConfig
	inputs  schema.Schema
	dir     string
	timeout time.Duration
}

// Option configures a Tool.
type Option func(*Tool)

// WithBaseDir sets the working directory of the command.
func WithBaseDir(dir string) Option {
	return func(t *Tool) {
		t.dir = dir
	}
}

// WithTimeout bounds a single execution. A timeout in the config takes precedence.
func WithTimeout(d time.Duration) Option {
	return func(t *Tool) {
		t.timeout = d
	}
}

// New creates a Tool from its config.
func New(cfg ProcessConfig, opts ...Option) *Tool {
	t := &Tool{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if d, err := cfg.timeout(); err == nil && d > 0 {
		t.timeout = d
	}
	// LoadTools rejects bad type strings; hand-built configs skip the check.
	if inputs, err := schema.ParseTypeMap(cfg.Inputs); err == nil {
		t.inputs = inputs
	}
	return t
}

// Description implements registry.Describer.
func (t *Tool) Description() string {
	if t.cfg.Description != "" {
		return t.cfg.Description
	}
	return strings.TrimSpace(t.cfg.Command + " " + strings.Join(t.cfg.Args, " "))
}

// Transform runs the command once.
func (t *Tool) Transform(ctx context.Context, state domain.State) (domain.State, error) {
	if err := schema.Validate(t.inputs, state); err != nil {
		return nil, fmt.Errorf("process %q input: %w", t.cfg.Name, err)
	}

	input, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state for %q: %w", t.cfg.Name, err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	// Arguments come only from the allow-listed config, never from the state.
	cmd := exec.CommandContext(ctx, t.cfg.Command, t.cfg.Args...)
	cmd.Dir = t.dir
	cmd.Env = append(cmd.Environ(), t.env()...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("process %q interrupted: %w", t.cfg.Name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("process %q exited with code %d: %s", t.cfg.Name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("process %q failed to start: %w", t.cfg.Name, err)
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return state, nil
	}

	var patch map[string]any
	if err := json.Unmarshal(out, &patch); err != nil {
		return nil, fmt.Errorf("process %q: stdout is not a JSON object: %w", t.cfg.Name, err)
	}
	return state.Merge(patch), nil
}

func (t *Tool) env() []string {
	env := []string{EnvToolName + "=" + t.cfg.Name}
	keys := make([]string, 0, len(t.cfg.Environment))
	for k := range t.cfg.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+t.cfg.Environment[k])
	}
	return env
}

// RegisterAll registers one Tool per config.
func RegisterAll(reg *registry.Registry, tools map[string]ProcessConfig, opts ...Option) error {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := tools[name]
		cfg.Name = name
		if err := reg.Register(name, New(cfg, opts...)); err != nil {
			return err
		}
	}
	return nil
}
