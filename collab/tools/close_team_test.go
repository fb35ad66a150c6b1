package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

func TestCloseTeam_ShutsDownSelectedMembersAndRemovesThemFromTheRecord(t *testing.T) {
	env, _, sink := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, caller, "alice", "bob")

	out, err := tools.CloseTeam(context.Background(), env, caller, "close-1", argsJSON(t, map[string]any{
		"team_id": team.TeamID,
		"members": []string{"alice"},
	}))
	require.NoError(t, err)
	res := decode[map[string]any](t, out.Body)
	closed := res["closed"].([]any)
	require.Len(t, closed, 1)
	entry := closed[0].(map[string]any)
	assert.Equal(t, "alice", entry["name"])
	assert.True(t, entry["ok"].(bool))
	assert.Equal(t, 1, sink.closeEnd)

	rec, ok := env.Teams.Get(caller.ThreadID, team.TeamID)
	require.True(t, ok)
	assert.Len(t, rec.Members, 1)
	assert.Equal(t, "bob", rec.Members[0].Name)
}

func TestCloseTeam_RejectsUnknownMemberName(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, caller, "alice")

	_, err := tools.CloseTeam(context.Background(), env, caller, "close-1", argsJSON(t, map[string]any{
		"team_id": team.TeamID,
		"members": []string{"carol"},
	}))
	assert.Error(t, err)
}
