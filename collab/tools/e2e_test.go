package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

// TestEndToEnd_SpawnWaitMessageTaskClose runs a realistic lead/team
// lifecycle through the public tool surface: stand up a team, message a
// member, have it claim and complete its task, wait for it to go idle, then
// close and clean up the team.
func TestEndToEnd_SpawnWaitMessageTaskClose(t *testing.T) {
	env, fake, sink := newHarness(t)
	lead := testCaller(ids.NewThreadID())

	team := spawnTestTeam(t, env, lead, "alice", "bob")
	aliceID, err := ids.ParseThreadID(team.Members[0].AgentID)
	require.NoError(t, err)
	bobID, err := ids.ParseThreadID(team.Members[1].AgentID)
	require.NoError(t, err)

	_, err = tools.TeamMessage(context.Background(), env, lead, argsJSON(t, map[string]any{
		"team_id":     team.TeamID,
		"member_name": "alice",
		"message":     "please start on your task",
	}))
	require.NoError(t, err)

	aliceCaller := testCaller(aliceID)
	popOut, err := tools.TeamInboxPop(context.Background(), env, aliceCaller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	pop := decode[map[string]any](t, popOut.Body)
	assert.Len(t, pop["messages"], 1)

	claimOut, err := tools.TeamTaskClaim(context.Background(), env, aliceCaller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
		"task_id": aliceID.String(),
	}))
	require.NoError(t, err)
	assert.True(t, decode[map[string]any](t, claimOut.Body)["claimed"].(bool))

	completeOut, err := tools.TeamTaskComplete(context.Background(), env, aliceCaller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
		"task_id": aliceID.String(),
	}))
	require.NoError(t, err)
	assert.True(t, decode[map[string]any](t, completeOut.Body)["completed"].(bool))

	fake.SetRollout(aliceID, "/tmp/alice-final.jsonl", "all done")
	fake.SetRollout(bobID, "/tmp/bob-final.jsonl", "all done")

	waitOut, err := tools.WaitTeam(context.Background(), env, lead, "wait-team-e2e", argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	assert.True(t, decode[map[string]any](t, waitOut.Body)["completed"].(bool))

	closeOut, err := tools.CloseTeam(context.Background(), env, lead, "close-e2e", argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	closed := decode[map[string]any](t, closeOut.Body)["closed"].([]any)
	assert.Len(t, closed, 2)

	cleanupOut, err := tools.TeamCleanup(context.Background(), env, lead, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	assert.True(t, decode[map[string]any](t, cleanupOut.Body)["removed_from_registry"].(bool))

	_, ok := env.Teams.Get(lead.ThreadID, team.TeamID)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, sink.waitingBegin, 3)
}
