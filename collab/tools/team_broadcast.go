package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/inbox"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamBroadcastArgs struct {
	TeamID    string            `json:"team_id"`
	Message   *string           `json:"message"`
	Items     []model.InputItem `json:"items"`
	Interrupt bool              `json:"interrupt"`
}

type teamBroadcastEntry struct {
	MemberName   string `json:"member_name"`
	AgentID      string `json:"agent_id"`
	SubmissionID string `json:"submission_id,omitempty"`
	InboxEntryID string `json:"inbox_entry_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

type teamBroadcastResult struct {
	TeamID string               `json:"team_id"`
	Sent   []teamBroadcastEntry `json:"sent"`
	Failed []teamBroadcastEntry `json:"failed"`
}

// TeamBroadcast fans a message out to every member of a team. Unlike
// TeamMessage, the overall call never fails: each member's inbox-append and
// delivery are attempted independently and any failure is reported per
// member.
func TeamBroadcast(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamBroadcastArgs](raw)
	if err != nil {
		return Output{}, err
	}
	teamID, err := team.NormalizeTeamID(args.TeamID)
	if err != nil {
		return Output{}, err
	}
	rec, ok := env.Teams.Get(caller.ThreadID, teamID)
	if !ok {
		return Output{}, collaberr.Validation("team `%s` not found", teamID)
	}
	items, err := parseCollabInput(args.Message, args.Items)
	if err != nil {
		return Output{}, err
	}
	prompt := inputPreview(items)

	var sent, failed []teamBroadcastEntry
	for _, member := range rec.Members {
		entryID, err := inbox.Append(ctx, env.Home, teamID, member.AgentID, caller.ThreadID, "lead", items, prompt)
		if err != nil {
			failed = append(failed, teamBroadcastEntry{
				MemberName: member.Name,
				AgentID:    member.AgentID.String(),
				Error:      err.Error(),
			})
			continue
		}

		submissionID, err := sendInputToMember(ctx, env, member.AgentID, items, args.Interrupt)
		entry := teamBroadcastEntry{
			MemberName:   member.Name,
			AgentID:      member.AgentID.String(),
			InboxEntryID: entryID,
		}
		if err != nil {
			entry.Error = err.Error()
			failed = append(failed, entry)
			continue
		}
		entry.SubmissionID = submissionID
		sent = append(sent, entry)
	}

	return marshalOutput(teamBroadcastResult{TeamID: teamID, Sent: sent, Failed: failed})
}
