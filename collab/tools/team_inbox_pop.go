package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/inbox"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

const (
	defaultInboxPopLimit = 50
	maxInboxPopLimit     = 500
)

type teamInboxPopArgs struct {
	TeamID string `json:"team_id"`
	Limit  *int   `json:"limit"`
}

type teamInboxMessage struct {
	ID         string            `json:"id"`
	CreatedAt  int64             `json:"createdAt"`
	FromThread string            `json:"fromThreadId"`
	FromName   string            `json:"fromName,omitempty"`
	InputItems []model.InputItem `json:"inputItems"`
	Prompt     string            `json:"prompt"`
}

type teamInboxPopResult struct {
	TeamID   string             `json:"teamId"`
	ThreadID string             `json:"threadId"`
	Messages []teamInboxMessage `json:"messages"`
	AckToken string             `json:"ackToken"`
}

func clampLimit(raw *int) int {
	if raw == nil {
		return defaultInboxPopLimit
	}
	limit := *raw
	if limit < 1 {
		return 1
	}
	if limit > maxInboxPopLimit {
		return maxInboxPopLimit
	}
	return limit
}

// TeamInboxPop reads up to limit unacknowledged entries from the caller's
// own inbox. The returned ack token is a JSON-encoded string embedded as a
// string field, handed back verbatim to TeamInboxAck.
func TeamInboxPop(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamInboxPopArgs](raw)
	if err != nil {
		return Output{}, err
	}
	teamID, err := team.NormalizeTeamID(args.TeamID)
	if err != nil {
		return Output{}, err
	}
	cfg, err := team.ReadPersistedConfig(env.Home, teamID)
	if err != nil {
		return Output{}, err
	}
	if err := team.AssertMemberOrLead(cfg, caller.ThreadID); err != nil {
		return Output{}, err
	}

	limit := clampLimit(args.Limit)
	entries, token, err := inbox.Pop(ctx, env.Home, teamID, caller.ThreadID, limit)
	if err != nil {
		return Output{}, err
	}

	messages := make([]teamInboxMessage, len(entries))
	for i, e := range entries {
		messages[i] = teamInboxMessage{
			ID:         e.ID.String(),
			CreatedAt:  e.CreatedAt,
			FromThread: e.FromThreadID.String(),
			FromName:   e.FromName,
			InputItems: e.InputItems,
			Prompt:     e.Prompt,
		}
	}

	var ackTokenStr string
	if token != nil {
		buf, err := json.Marshal(token)
		if err != nil {
			return Output{}, collaberr.Wrap(err)
		}
		ackTokenStr = string(buf)
	}

	return marshalOutput(teamInboxPopResult{
		TeamID:   teamID,
		ThreadID: caller.ThreadID.String(),
		Messages: messages,
		AckToken: ackTokenStr,
	})
}
