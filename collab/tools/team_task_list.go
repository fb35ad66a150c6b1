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

type teamTaskListArgs struct {
	TeamID string `json:"team_id"`
}

type teamTaskListResult struct {
	TeamID string                `json:"team_id"`
	Tasks  []model.PersistedTask `json:"tasks"`
}

// TeamTaskList lists every task currently assigned to a live member of the
// caller's own team. It reads the in-memory registry rather than the
// persisted config, so it is scoped to the lead that actually holds the
// team record; a teammate calling this under its own thread id will find
// no team.
func TeamTaskList(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamTaskListArgs](raw)
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

	validMembers := make(map[ids.ThreadID]bool, len(rec.Members))
	for _, m := range rec.Members {
		validMembers[m.AgentID] = true
	}

	tasks, err := taskboard.List(env.Home, teamID, validMembers)
	if err != nil {
		return Output{}, err
	}

	return marshalOutput(teamTaskListResult{TeamID: teamID, Tasks: tasks})
}
