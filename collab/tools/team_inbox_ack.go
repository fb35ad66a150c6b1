package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/inbox"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamInboxAckArgs struct {
	TeamID   string `json:"team_id"`
	AckToken string `json:"ack_token"`
}

type teamInboxAckResult struct {
	TeamID   string `json:"teamId"`
	ThreadID string `json:"threadId"`
	Acked    bool   `json:"acked"`
}

// TeamInboxAck acknowledges a previously popped batch of inbox entries. A
// blank ack_token is treated as a trivial success before any auth check,
// so a caller that has nothing new to pop can always ack "nothing" safely.
func TeamInboxAck(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamInboxAckArgs](raw)
	if err != nil {
		return Output{}, err
	}
	teamID, err := team.NormalizeTeamID(args.TeamID)
	if err != nil {
		return Output{}, err
	}

	if strings.TrimSpace(args.AckToken) == "" {
		return marshalOutput(teamInboxAckResult{
			TeamID:   teamID,
			ThreadID: caller.ThreadID.String(),
			Acked:    false,
		})
	}

	cfg, err := team.ReadPersistedConfig(env.Home, teamID)
	if err != nil {
		return Output{}, err
	}
	if err := team.AssertMemberOrLead(cfg, caller.ThreadID); err != nil {
		return Output{}, err
	}

	var token model.InboxAckToken
	if err := json.Unmarshal([]byte(args.AckToken), &token); err != nil {
		return Output{}, collaberr.Validation("invalid ack_token: %v", err)
	}
	if token.TeamID != teamID {
		return Output{}, collaberr.Validation("ack_token team_id does not match `%s`", teamID)
	}
	if token.ThreadID != caller.ThreadID {
		return Output{}, collaberr.Validation("ack_token thread_id does not match the calling thread")
	}

	if err := inbox.Ack(ctx, env.Home, token); err != nil {
		return Output{}, err
	}

	return marshalOutput(teamInboxAckResult{
		TeamID:   teamID,
		ThreadID: caller.ThreadID.String(),
		Acked:    true,
	})
}
