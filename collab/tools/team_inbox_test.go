package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/tools"
)

func TestTeamInboxPopAck_RoundTrips(t *testing.T) {
	env, _, _ := newHarness(t)
	lead := testCaller(ids.NewThreadID())
	team := spawnTestTeam(t, env, lead, "alice")
	memberID, err := ids.ParseThreadID(team.Members[0].AgentID)
	require.NoError(t, err)

	_, err = tools.TeamMessage(context.Background(), env, lead, argsJSON(t, map[string]any{
		"team_id":     team.TeamID,
		"member_name": "alice",
		"message":     "first",
	}))
	require.NoError(t, err)

	memberCaller := testCaller(memberID)
	out, err := tools.TeamInboxPop(context.Background(), env, memberCaller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	pop := decode[map[string]any](t, out.Body)
	messages := pop["messages"].([]any)
	require.Len(t, messages, 1)
	ackToken := pop["ackToken"].(string)
	require.NotEmpty(t, ackToken)

	ackOut, err := tools.TeamInboxAck(context.Background(), env, memberCaller, argsJSON(t, map[string]any{
		"team_id":   team.TeamID,
		"ack_token": ackToken,
	}))
	require.NoError(t, err)
	ack := decode[map[string]any](t, ackOut.Body)
	assert.True(t, ack["acked"].(bool))

	popAgain, err := tools.TeamInboxPop(context.Background(), env, memberCaller, argsJSON(t, map[string]any{
		"team_id": team.TeamID,
	}))
	require.NoError(t, err)
	again := decode[map[string]any](t, popAgain.Body)
	assert.Empty(t, again["messages"])
}

func TestTeamInboxAck_BlankTokenSucceedsWithoutAuth(t *testing.T) {
	env, _, _ := newHarness(t)
	stranger := testCaller(ids.NewThreadID())

	out, err := tools.TeamInboxAck(context.Background(), env, stranger, argsJSON(t, map[string]any{
		"team_id":   "some-team-no-one-persisted",
		"ack_token": "",
	}))
	require.NoError(t, err)
	res := decode[map[string]any](t, out.Body)
	assert.False(t, res["acked"].(bool))
}
