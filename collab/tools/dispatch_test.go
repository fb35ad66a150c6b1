package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

func TestDispatch_RoutesByToolName(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())

	out, err := tools.Dispatch(context.Background(), env, tools.ToolSpawnAgent, caller, "call-1", argsJSON(t, map[string]any{
		"message": "go",
	}))
	require.NoError(t, err)
	assert.NotEmpty(t, out.Body)
}

func TestDispatch_RejectsUnknownTool(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())

	_, err := tools.Dispatch(context.Background(), env, "not_a_real_tool", caller, "call-1", nil)
	assert.Error(t, err)
}
