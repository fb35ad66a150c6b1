package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

func spawnOne(t *testing.T, env *tools.Env, caller tools.Caller, message string) ids.ThreadID {
	t.Helper()
	out, err := tools.SpawnAgent(context.Background(), env, caller, "setup", argsJSON(t, map[string]any{"message": message}))
	require.NoError(t, err)
	res := decode[map[string]string](t, out.Body)
	id, err := ids.ParseThreadID(res["agent_id"])
	require.NoError(t, err)
	return id
}

func TestSendInput_DeliversToExistingAgent(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	agentID := spawnOne(t, env, caller, "hello")

	out, err := tools.SendInput(context.Background(), env, argsJSON(t, map[string]any{
		"id":      agentID.String(),
		"message": "follow up",
	}))
	require.NoError(t, err)
	res := decode[map[string]string](t, out.Body)
	assert.NotEmpty(t, res["submission_id"])
}

func TestSendInput_RejectsUnknownAgent(t *testing.T) {
	env, _, _ := newHarness(t)

	_, err := tools.SendInput(context.Background(), env, argsJSON(t, map[string]any{
		"id":      ids.NewThreadID().String(),
		"message": "hi",
	}))
	assert.Error(t, err)
}

func TestSendInput_RejectsMalformedAgentID(t *testing.T) {
	env, _, _ := newHarness(t)

	_, err := tools.SendInput(context.Background(), env, argsJSON(t, map[string]any{
		"id":      "not-a-uuid",
		"message": "hi",
	}))
	assert.Error(t, err)
}
