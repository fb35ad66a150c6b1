package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamCleanupArgs struct {
	TeamID string `json:"team_id"`
}

type teamCleanupClosedEntry struct {
	Name    string     `json:"name"`
	AgentID string     `json:"agent_id"`
	OK      bool       `json:"ok"`
	Status  statusWire `json:"status"`
}

type teamCleanupResult struct {
	TeamID              string                   `json:"team_id"`
	RemovedFromRegistry bool                     `json:"removed_from_registry"`
	RemovedTeamConfig   bool                     `json:"removed_team_config"`
	RemovedTaskDir      bool                     `json:"removed_task_dir"`
	Closed              []teamCleanupClosedEntry `json:"closed"`
}

// TeamCleanup removes a team's registry entry and on-disk state once every
// persisted member has reached a final status. Only the lead may call it;
// if any member is still active, team.Cleanup reports the blockers and
// performs no mutation.
func TeamCleanup(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamCleanupArgs](raw)
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

	statusOf := func(ctx context.Context, agent ids.ThreadID) model.AgentStatus {
		return env.control().GetStatus(ctx, agent)
	}

	closed := make([]teamCleanupClosedEntry, len(cfg.Members))
	for i, m := range cfg.Members {
		status := statusOf(ctx, m.AgentID)
		closed[i] = teamCleanupClosedEntry{
			Name:    m.Name,
			AgentID: m.AgentID.String(),
			OK:      status.IsFinal(),
			Status:  wireStatus(status),
		}
	}

	if err := team.Cleanup(ctx, env.Home, env.Teams, caller.ThreadID, teamID, statusOf); err != nil {
		return Output{}, err
	}

	return marshalOutput(teamCleanupResult{
		TeamID:              teamID,
		RemovedFromRegistry: true,
		RemovedTeamConfig:   true,
		RemovedTaskDir:      true,
		Closed:              closed,
	})
}
