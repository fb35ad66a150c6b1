package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

func TestTeamCleanup_RemovesTeamOnceEveryMemberIsFinal(t *testing.T) {
	env, fake, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, caller, "alice")
	memberID, err := ids.ParseThreadID(team.Members[0].AgentID)
	require.NoError(t, err)
	require.NoError(t, fake.ShutdownAgent(context.Background(), memberID))

	out, err := tools.TeamCleanup(context.Background(), env, caller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	res := decode[map[string]any](t, out.Body)
	assert.True(t, res["removed_from_registry"].(bool))

	_, ok := env.Teams.Get(caller.ThreadID, team.TeamID)
	assert.False(t, ok)
}

func TestTeamCleanup_BlocksWhileAMemberIsStillActive(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, caller, "alice")

	_, err := tools.TeamCleanup(context.Background(), env, caller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	assert.Error(t, err)

	_, ok := env.Teams.Get(caller.ThreadID, team.TeamID)
	assert.True(t, ok, "a blocked cleanup must not mutate the registry")
}
