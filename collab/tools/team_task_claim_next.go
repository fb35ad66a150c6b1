package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/taskboard"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamTaskClaimNextArgs struct {
	TeamID     string  `json:"team_id"`
	MemberName *string `json:"member_name"`
}

type teamTaskClaimNextResult struct {
	TeamID  string               `json:"team_id"`
	Claimed bool                 `json:"claimed"`
	Task    *model.PersistedTask `json:"task,omitempty"`
}

// TeamTaskClaimNext claims whichever eligible pending task comes first in
// board order, optionally restricted to one named member. Membership is
// validated against the persisted config, the same source TeamTaskClaim
// uses, rather than the in-memory registry, unifying the two handlers onto
// one validity source.
func TeamTaskClaimNext(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamTaskClaimNextArgs](raw)
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

	validMembers := make(map[ids.ThreadID]bool, len(cfg.Members))
	for _, m := range cfg.Members {
		validMembers[m.AgentID] = true
	}

	var filter *model.TaskAssignee
	if args.MemberName != nil {
		name := *args.MemberName
		var agentID ids.ThreadID
		found := false
		for _, m := range cfg.Members {
			if m.Name == name {
				agentID = m.AgentID
				found = true
				break
			}
		}
		if !found {
			return Output{}, collaberr.Validation("no team member named `%s`", name)
		}
		filter = &model.TaskAssignee{Name: name, AgentID: agentID}
	}

	task, ok, err := taskboard.ClaimNext(ctx, env.Home, teamID, filter, validMembers)
	if err != nil {
		return Output{}, err
	}
	if !ok {
		return marshalOutput(teamTaskClaimNextResult{TeamID: teamID, Claimed: false})
	}
	return marshalOutput(teamTaskClaimNextResult{TeamID: teamID, Claimed: true, Task: &task})
}
