package hooksconfig_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/hooksconfig"
	"github.com/agentmesh/collabcore/collab/telemetry"
)

func TestLoadLayers_ConcatenatesLayersLowestPrecedenceFirst(t *testing.T) {
	user := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.pre_tool_use]]
name = "user-pre"
command = "echo pre"

[[hooks.stop]]
name = "user-stop"
command = "echo stop"
`}
	project := hooksconfig.Layer{Name: "project", TOML: `
[[hooks.stop]]
name = "project-stop"
command = "echo stop"
`}

	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{user, project})
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Count(hooks.EventPreToolUse))
	assert.Equal(t, 2, reg.Count(hooks.EventStop))

	matches := reg.Matching(hooks.EventStop, hooks.SessionStartEvent{})
	require.Len(t, matches, 2)
	assert.Equal(t, "user-stop", matches[0].Name)
	assert.Equal(t, "project-stop", matches[1].Name)
}

func TestLoadLayers_RejectsUnknownKeysNamingTheLayer(t *testing.T) {
	bad := hooksconfig.Layer{Name: "project", TOML: `
[[hooks.stop]]
name = "x"
comand = "typo"
`}
	_, err := hooksconfig.LoadLayers([]hooksconfig.Layer{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}

func TestLoadLayers_ShellStringWrapsAsShDashC(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.session_start]]
name = "greet"
command = "echo hello"
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	matches := reg.Matching(hooks.EventSessionStart, hooks.SessionStartEvent{})
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"sh", "-c", "echo hello"}, matches[0].Argv)
}

func TestLoadLayers_ArgvArrayPassesThrough(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.session_start]]
name = "argv"
command = ["touch", "/tmp/x"]
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	matches := reg.Matching(hooks.EventSessionStart, hooks.SessionStartEvent{})
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"touch", "/tmp/x"}, matches[0].Argv)
}

func TestLoadLayers_EmptyCommandYieldsEmptyArgv(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.session_start]]
name = "noop"
command = "   "
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	matches := reg.Matching(hooks.EventSessionStart, hooks.SessionStartEvent{})
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].Argv)
}

func TestLoadLayers_PromptEntryBecomesPromptHook(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.user_prompt_submit]]
name = "verifier"
prompt = "Is this prompt safe?"
model = "gpt-5"
timeout = 15
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	matches := reg.Matching(hooks.EventUserPromptSubmit, hooks.UserPromptSubmitEvent{Text: "hi"})
	require.Len(t, matches, 1)
	assert.Equal(t, hooks.HandlerPrompt, matches[0].Handler)
	assert.Equal(t, "Is this prompt safe?", matches[0].Prompt)
	assert.Equal(t, "gpt-5", matches[0].Model)
	assert.Equal(t, uint64(15), matches[0].TimeoutSec)
}

func TestLoadLayers_AgentKindCarriesPromptAndModel(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.task_completed]]
name = "acceptance"
kind = "agent"
prompt = "Verify the task's output actually exists."
model = "gpt-5"
timeout = 90
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	matches := reg.Matching(hooks.EventTaskCompleted, hooks.TaskCompletedEvent{TaskID: "t1"})
	require.Len(t, matches, 1)
	assert.Equal(t, hooks.HandlerAgent, matches[0].Handler)
	assert.Equal(t, "Verify the task's output actually exists.", matches[0].Prompt)
	assert.Equal(t, "gpt-5", matches[0].Model)
}

func TestLoadLayers_ModelAloneInfersAgentKind(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.task_completed]]
name = "acceptance"
model = "gpt-5"
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	matches := reg.Matching(hooks.EventTaskCompleted, hooks.TaskCompletedEvent{TaskID: "t1"})
	require.Len(t, matches, 1)
	assert.Equal(t, hooks.HandlerAgent, matches[0].Handler)
}

func TestLoadLayers_RejectsUnknownKind(t *testing.T) {
	layer := hooksconfig.Layer{Name: "project", TOML: `
[[hooks.stop]]
name = "x"
kind = "subprocess"
`}
	_, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subprocess")
}

func TestLoadLayers_MatcherPredicatesAreApplied(t *testing.T) {
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.pre_tool_use]]
name = "shell-only"
command = "echo"
[hooks.pre_tool_use.matcher]
tool_name = "shell"
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	assert.Len(t, reg.Matching(hooks.EventPreToolUse, hooks.PreToolUseEvent{Tool: "shell"}), 1)
	assert.Empty(t, reg.Matching(hooks.EventPreToolUse, hooks.PreToolUseEvent{Tool: "browser"}))
}

// TestLoadLayers_SessionStartHookExecutesFromTOML loads a session_start
// command hook purely from a TOML layer and dispatches it, asserting the
// configured command actually ran via its filesystem side effect.
func TestLoadLayers_SessionStartHookExecutesFromTOML(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "fired")
	layer := hooksconfig.Layer{Name: "user", TOML: `
[[hooks.session_start]]
name = "touch-marker"
command = "touch ` + marker + `"
`}
	reg, err := hooksconfig.LoadLayers([]hooksconfig.Layer{layer})
	require.NoError(t, err)

	d := hooks.NewDispatcher(reg, hooks.Executors{}, telemetry.NewNoopBundle())
	out := d.Dispatch(context.Background(), hooks.Envelope{Event: hooks.SessionStartEvent{Source: "cli"}})
	require.False(t, out.Aborted)
	require.Empty(t, out.Errors)

	_, err = os.Stat(marker)
	assert.NoError(t, err)
}
