package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

func TestWaitTeam_AllModeWaitsForEveryMember(t *testing.T) {
	env, fake, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, caller, "alice", "bob")
	for _, m := range team.Members {
		id, err := ids.ParseThreadID(m.AgentID)
		require.NoError(t, err)
		fake.SetRollout(id, "/tmp/"+m.Name+".jsonl", "done")
	}

	out, err := tools.WaitTeam(context.Background(), env, caller, "wait-team-1", argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	res := decode[map[string]any](t, out.Body)
	assert.True(t, res["completed"].(bool))
	assert.Equal(t, "all", res["mode"])
	assert.Len(t, res["member_statuses"], 2)
}

func TestWaitTeam_AnyModeReportsTriggeredMember(t *testing.T) {
	env, fake, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, caller, "alice", "bob")
	firstID, err := ids.ParseThreadID(team.Members[0].AgentID)
	require.NoError(t, err)
	fake.SetRollout(firstID, "/tmp/alice.jsonl", "done")

	out, err := tools.WaitTeam(context.Background(), env, caller, "wait-team-1", argsJSON(t, map[string]any{
		"team_id": team.TeamID,
		"mode":    "any",
	}))
	require.NoError(t, err)
	res := decode[map[string]any](t, out.Body)
	assert.True(t, res["completed"].(bool))
	triggered := res["triggered_member"].(map[string]any)
	assert.Equal(t, team.Members[0].Name, triggered["name"])
}

func TestWaitTeam_RejectsUnknownTeam(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())

	_, err := tools.WaitTeam(context.Background(), env, caller, "wait-team-1", argsJSON(t, map[string]any{
		"team_id": "does-not-exist",
	}))
	assert.Error(t, err)
}
