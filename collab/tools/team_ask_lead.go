package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/inbox"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamAskLeadArgs struct {
	TeamID    string            `json:"team_id"`
	Message   *string           `json:"message"`
	Items     []model.InputItem `json:"items"`
	Interrupt bool              `json:"interrupt"`
}

type teamAskLeadResult struct {
	TeamID       string `json:"team_id"`
	LeadThreadID string `json:"lead_thread_id"`
	SubmissionID string `json:"submission_id,omitempty"`
	Delivered    bool   `json:"delivered"`
	InboxEntryID string `json:"inbox_entry_id"`
	Error        string `json:"error,omitempty"`
}

// TeamAskLead lets a team member message its lead, the reverse direction of
// TeamMessage. The lead itself may not call this; the caller's own name (as
// a persisted member) is attached as the inbox entry's sender.
func TeamAskLead(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamAskLeadArgs](raw)
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
	if caller.ThreadID == cfg.LeadThreadID {
		return Output{}, collaberr.Validation("team_ask_lead cannot be called by the lead")
	}
	var senderName string
	for _, m := range cfg.Members {
		if m.AgentID == caller.ThreadID {
			senderName = m.Name
			break
		}
	}
	if senderName == "" {
		return Output{}, collaberr.Validation("caller is not a member of this team")
	}

	items, err := parseCollabInput(args.Message, args.Items)
	if err != nil {
		return Output{}, err
	}
	prompt := inputPreview(items)

	entryID, err := inbox.Append(ctx, env.Home, teamID, cfg.LeadThreadID, caller.ThreadID, senderName, items, prompt)
	if err != nil {
		return Output{}, err
	}

	result := teamAskLeadResult{
		TeamID:       teamID,
		LeadThreadID: cfg.LeadThreadID.String(),
		InboxEntryID: entryID,
	}
	submissionID, err := sendInputToMember(ctx, env, cfg.LeadThreadID, items, args.Interrupt)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Delivered = true
		result.SubmissionID = submissionID
	}

	return marshalOutput(result)
}
