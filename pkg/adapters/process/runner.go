// Package process exposes local executables as registry tools.
//
// The run state is written to the process as a JSON object on stdin, and its
// scalar top-level keys are also exported as STEPGRAPH_ARG_<KEY> variables.
// A JSON object printed on stdout is merged into the state; any other output
// is stored under OutputKey. A non-zero exit fails the step.
package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// EnvPrefix is prepended to the upper-cased state key of every exported variable.
const EnvPrefix = "STEPGRAPH_ARG_"

// OutputKey receives stdout when it is not a JSON object.
const OutputKey = "output"

// Runner executes local processes registered on an allow-list.
type Runner struct {
	registry map[string]RegisteredProcess
	baseDir  string
	timeout  time.Duration
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			r.registry[name] = RegisteredProcess{
				Command: tool.Command,
				Args:    tool.Args,
				Env:     tool.Environment,
				Timeout: tool.Timeout,
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds every execution that has no timeout of its own.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredProcess),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Names returns the registered tool names in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install registers every allowed process as a tool in reg.
// Existing tools with the same name are replaced.
func (r *Runner) Install(reg *registry.Registry) {
	for _, name := range r.Names() {
		reg.Register(name, r.Tool(name))
	}
}

// Tool returns a registry tool running the named process.
func (r *Runner) Tool(name string) registry.ToolFunction {
	return func(ctx context.Context, state domain.State) (domain.State, error) {
		return r.Execute(ctx, name, state)
	}
}

// Execute runs the named process against state and returns the new state.
func (r *Runner) Execute(ctx context.Context, name string, state domain.State) (domain.State, error) {
	proc, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("process tool not registered: %s", name)
	}

	timeout := proc.Timeout
	if timeout == 0 {
		timeout = r.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	input, err := xjson.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state for %s: %w", name, err)
	}

	// State reaches the process through stdin and env only, never as flags.
	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(cmd.Environ(), environment(state, proc.Env)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("execution failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	out := state.Copy()
	trimmed := strings.TrimSpace(stdout.String())
	if strings.HasPrefix(trimmed, "{") {
		var patch map[string]any
		if err := xjson.Unmarshal([]byte(trimmed), &patch); err == nil {
			for k, v := range patch {
				out[k] = v
			}
			return out, nil
		}
	}
	out[OutputKey] = trimmed
	return out, nil
}

func environment(state domain.State, fixed map[string]string) []string {
	env := make([]string, 0, len(state)+len(fixed))
	for k, v := range fixed {
		env = append(env, k+"="+v)
	}
	for k, v := range state {
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			// Complex values go as JSON.
			if data, err := xjson.Marshal(v); err == nil {
				val = string(data)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, EnvPrefix+envName(k)+"="+val)
	}
	return env
}

// envName upper-cases key and replaces anything outside [A-Z0-9_] with '_'.
func envName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, key)
}
