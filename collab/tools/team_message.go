package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/inbox"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamMessageArgs struct {
	TeamID     string            `json:"team_id"`
	MemberName string            `json:"member_name"`
	Message    *string           `json:"message"`
	Items      []model.InputItem `json:"items"`
	Interrupt  bool              `json:"interrupt"`
}

type teamMessageResult struct {
	TeamID       string `json:"team_id"`
	MemberName   string `json:"member_name"`
	AgentID      string `json:"agent_id"`
	SubmissionID string `json:"submission_id,omitempty"`
	Delivered    bool   `json:"delivered"`
	InboxEntryID string `json:"inbox_entry_id"`
	Error        string `json:"error,omitempty"`
}

// TeamMessage delivers a message to one named team member, committing it
// to the member's inbox before attempting live delivery so a delivery
// failure never loses the message.
func TeamMessage(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamMessageArgs](raw)
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
	member, err := team.FindMember(rec, args.MemberName)
	if err != nil {
		return Output{}, err
	}
	items, err := parseCollabInput(args.Message, args.Items)
	if err != nil {
		return Output{}, err
	}
	prompt := inputPreview(items)

	entryID, err := inbox.Append(ctx, env.Home, teamID, member.AgentID, caller.ThreadID, "lead", items, prompt)
	if err != nil {
		return Output{}, err
	}

	result := teamMessageResult{
		TeamID:       teamID,
		MemberName:   member.Name,
		AgentID:      member.AgentID.String(),
		InboxEntryID: entryID,
	}
	submissionID, err := sendInputToMember(ctx, env, member.AgentID, items, args.Interrupt)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Delivered = true
		result.SubmissionID = submissionID
	}

	return marshalOutput(result)
}
