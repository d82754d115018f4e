package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use sh")
	}
}

func TestRunner_Execute(t *testing.T) {
	requireShell(t)
	runner := NewRunner()
	ctx := context.Background()

	t.Run("Merges JSON Object Output", func(t *testing.T) {
		runner.Register("tag", "sh", "-c", `echo '{"tagged": true, "count": 2}'`)
		out, err := runner.Execute(ctx, "tag", domain.State{"count": 1, "keep": "me"})
		require.NoError(t, err)
		assert.Equal(t, true, out["tagged"])
		assert.EqualValues(t, 2, out["count"])
		assert.Equal(t, "me", out["keep"])
	})

	t.Run("Stores Plain Output", func(t *testing.T) {
		runner.Register("hello", "echo", "hello")
		out, err := runner.Execute(ctx, "hello", domain.State{})
		require.NoError(t, err)
		assert.Equal(t, "hello", out[OutputKey])
	})

	t.Run("Passes State on Stdin", func(t *testing.T) {
		runner.Register("cat", "cat")
		out, err := runner.Execute(ctx, "cat", domain.State{"msg": "SecretMessage"})
		require.NoError(t, err)
		assert.Equal(t, "SecretMessage", out["msg"])
	})

	t.Run("Passes Scalars via Env Vars", func(t *testing.T) {
		runner.Register("echo_env", "sh", "-c", `echo "$STEPGRAPH_ARG_MSG $STEPGRAPH_ARG_LIST_VALUES"`)
		out, err := runner.Execute(ctx, "echo_env", domain.State{"msg": "SecretMessage", "list-values": []int{1, 2}})
		require.NoError(t, err)
		assert.Equal(t, "SecretMessage [1,2]", out[OutputKey])
	})

	t.Run("Does Not Modify Input", func(t *testing.T) {
		in := domain.State{"count": 1}
		_, err := runner.Execute(ctx, "tag", in)
		require.NoError(t, err)
		assert.Equal(t, domain.State{"count": 1}, in)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Execute(ctx, "hacker_script", domain.State{})
		assert.ErrorContains(t, err, "not registered")
	})

	t.Run("Fails On Non-Zero Exit", func(t *testing.T) {
		runner.Register("fail", "sh", "-c", "echo broken >&2; exit 3")
		_, err := runner.Execute(ctx, "fail", domain.State{})
		assert.ErrorContains(t, err, "broken")
	})
}

func TestRunner_Timeout(t *testing.T) {
	requireShell(t)
	runner := NewRunner(WithTimeout(50 * time.Millisecond))
	runner.Register("slow", "sleep", "5")

	start := time.Now()
	_, err := runner.Execute(context.Background(), "slow", domain.State{})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunner_Install(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	tools := map[string]ProcessConfig{
		"where": {Name: "where", Command: "pwd"},
		"greet": {Name: "greet", Command: "sh", Args: []string{"-c", "echo $GREETING"}, Environment: map[string]string{"GREETING": "hi"}},
	}
	runner := NewRunner(WithRegistry(tools), WithBaseDir(dir))
	assert.Equal(t, []string{"greet", "where"}, runner.Names())

	reg := registry.NewRegistry()
	runner.Install(reg)
	require.True(t, reg.Has("where"))

	out, err := reg.Execute(context.Background(), "greet", domain.State{})
	require.NoError(t, err)
	assert.Equal(t, "hi", out[OutputKey])

	out, err = reg.Execute(context.Background(), "where", domain.State{})
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, []string{dir, resolved}, out[OutputKey])
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()

	missing, err := LoadTools(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	yamlPath := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
tools:
  - name: lint
    command: golangci-lint
    args: [run]
    timeout: 30s
  - command: ignored-without-name
`), 0o644))
	tools, err := LoadTools(yamlPath)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, []string{"run"}, tools["lint"].Args)
	assert.Equal(t, 30*time.Second, tools["lint"].Timeout)

	jsonPath := filepath.Join(dir, "tools.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"tools":[{"name":"x","command":"true"}]}`), 0o644))
	tools, err = LoadTools(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "true", tools["x"].Command)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("tools:\n  - name: nocmd\n"), 0o644))
	_, err = LoadTools(badPath)
	assert.ErrorContains(t, err, "command is required")
}
