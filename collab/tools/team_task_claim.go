package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/taskboard"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamTaskClaimArgs struct {
	TeamID string `json:"team_id"`
	TaskID string `json:"task_id"`
}

type teamTaskClaimResult struct {
	TeamID  string              `json:"team_id"`
	Claimed bool                `json:"claimed"`
	Task    model.PersistedTask `json:"task"`
}

// TeamTaskClaim claims one pending task for the caller, or for the lead
// acting on a teammate's behalf.
func TeamTaskClaim(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamTaskClaimArgs](raw)
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

	isLead := caller.ThreadID == cfg.LeadThreadID
	validMembers := make(map[ids.ThreadID]bool, len(cfg.Members))
	for _, m := range cfg.Members {
		validMembers[m.AgentID] = true
	}

	task, err := taskboard.Claim(ctx, env.Home, teamID, args.TaskID, caller.ThreadID, isLead, validMembers)
	if err != nil {
		return Output{}, err
	}

	return marshalOutput(teamTaskClaimResult{TeamID: teamID, Claimed: true, Task: task})
}
