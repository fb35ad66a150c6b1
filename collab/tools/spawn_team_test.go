package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

type spawnTeamWire struct {
	TeamID  string `json:"team_id"`
	Members []struct {
		Name    string `json:"name"`
		AgentID string `json:"agent_id"`
	} `json:"members"`
}

func spawnTestTeam(t *testing.T, env *tools.Env, caller tools.Caller, names ...string) spawnTeamWire {
	t.Helper()
	members := make([]map[string]any, len(names))
	for i, n := range names {
		members[i] = map[string]any{"name": n, "task": "work on " + n}
	}
	out, err := tools.SpawnTeam(context.Background(), env, caller, "spawn-team-1", argsJSON(t, map[string]any{
		"members": members,
	}))
	require.NoError(t, err)
	return decode[spawnTeamWire](t, out.Body)
}

func TestSpawnTeam_SpawnsEveryMemberAndSeedsTasks(t *testing.T) {
	env, _, sink := newHarness(t)
	caller := testCaller(ids.NewThreadID())

	team := spawnTestTeam(t, env, caller, "alice", "bob")
	assert.NotEmpty(t, team.TeamID)
	require.Len(t, team.Members, 2)
	assert.Equal(t, 1, sink.waitingBegin)
	assert.Equal(t, 1, sink.waitingEnd)

	rec, ok := env.Teams.Get(caller.ThreadID, team.TeamID)
	require.True(t, ok)
	assert.Len(t, rec.Members, 2)
}

func TestSpawnTeam_RejectsDuplicateMemberNames(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())

	_, err := tools.SpawnTeam(context.Background(), env, caller, "spawn-team-1", argsJSON(t, map[string]any{
		"members": []map[string]any{
			{"name": "alice", "task": "a"},
			{"name": "alice", "task": "b"},
		},
	}))
	assert.Error(t, err)
}

func TestSpawnTeam_RejectsEmptyMembers(t *testing.T) {
	env, _, _ := newHarness(t)
	caller := testCaller(ids.NewThreadID())

	_, err := tools.SpawnTeam(context.Background(), env, caller, "spawn-team-1", argsJSON(t, map[string]any{
		"members": []map[string]any{},
	}))
	assert.Error(t, err)
}
