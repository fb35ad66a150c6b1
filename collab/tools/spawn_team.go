package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/fsutil"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/spawn"
	"github.com/agentmesh/collabcore/collab/taskboard"
	"github.com/agentmesh/collabcore/collab/team"
)

type spawnTeamMemberArg struct {
	Name          string  `json:"name"`
	Task          string  `json:"task"`
	AgentType     *string `json:"agent_type"`
	ModelProvider *string `json:"model_provider"`
	Model         *string `json:"model"`
	Worktree      bool    `json:"worktree"`
	Background    bool    `json:"background"`
}

type spawnTeamArgs struct {
	TeamID  *string              `json:"team_id"`
	Members []spawnTeamMemberArg `json:"members"`
}

type spawnTeamMemberResult struct {
	Name    string     `json:"name"`
	AgentID string     `json:"agent_id"`
	Status  statusWire `json:"status"`
}

type spawnTeamResult struct {
	TeamID  string                  `json:"team_id"`
	Members []spawnTeamMemberResult `json:"members"`
}

// SpawnTeam spawns a named group of agents as a single team in one call,
// persisting the team record and seeding one task per member only once
// every member has spawned successfully. Any failure partway through the
// per-member loop tears down every member spawned so far and leaves no
// team behind.
func SpawnTeam(ctx context.Context, env *Env, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[spawnTeamArgs](raw)
	if err != nil {
		return Output{}, err
	}
	if len(args.Members) == 0 {
		return Output{}, collaberr.Validation("members must be non-empty")
	}
	seenNames := make(map[string]bool, len(args.Members))
	for _, m := range args.Members {
		name := optionalNonEmpty(&m.Name)
		if name == "" {
			return Output{}, collaberr.Validation("every member must have a non-empty name")
		}
		if seenNames[name] {
			return Output{}, collaberr.Validation("duplicate member name `%s`", name)
		}
		seenNames[name] = true
		if optionalNonEmpty(&m.Task) == "" {
			return Output{}, collaberr.Validation("member `%s` must have a non-empty task", name)
		}
	}

	var teamID string
	if args.TeamID != nil {
		teamID, err = team.NormalizeTeamID(*args.TeamID)
		if err != nil {
			return Output{}, err
		}
	} else {
		teamID = ids.NewThreadID().String()
	}

	createdAt := fsutil.NowUnixSeconds()
	eventCallID := prefixedTeamCallID(teamSpawnCallPrefix, callID)

	env.sink().WaitingBegin(ctx, events.WaitingBegin{
		CallID:         eventCallID,
		SenderThreadID: caller.ThreadID,
	})

	var spawned []model.TeamMember
	statuses := make(map[ids.ThreadID]model.AgentStatus)
	names := make(map[ids.ThreadID]string)

	cleanupSpawned := func() {
		for _, m := range spawned {
			_ = env.control().ShutdownAgent(ctx, m.AgentID)
			if env.Spawn.Worktree != nil {
				_ = env.Spawn.Worktree.Teardown(ctx, m.AgentID)
			}
		}
	}
	endEvent := func() {
		env.sink().WaitingEnd(ctx, events.WaitingEnd{
			CallID:         eventCallID,
			SenderThreadID: caller.ThreadID,
			Statuses:       statuses,
			ReceiverNames:  names,
		})
	}

	d := env.Spawn
	d.Sink = env.sink()

	for _, member := range args.Members {
		req := spawn.Request{
			CallID:         eventCallID + ":" + member.Name,
			SenderThreadID: caller.ThreadID,
			RootSessionID:  caller.RootSessionID,
			Depth:          caller.ChildDepth,
			Cwd:            caller.Cwd,
			Role:           optionalNonEmpty(member.AgentType),
			ModelProvider:  optionalNonEmpty(member.ModelProvider),
			Model:          optionalNonEmpty(member.Model),
			InputItems:     []model.InputItem{{Kind: model.InputText, Text: member.Task}},
			Prompt:         inputPreview([]model.InputItem{{Kind: model.InputText, Text: member.Task}}),
		}
		if member.Worktree {
			req.WorktreeOrigin = caller.Cwd
		}

		result, err := spawn.One(ctx, d, req)
		if err != nil {
			cleanupSpawned()
			endEvent()
			return Output{}, err
		}

		if member.Background {
			maybeStartBackgroundAgentCleanup(result.AgentID)
		}

		spawned = append(spawned, model.TeamMember{
			Name:       member.Name,
			AgentID:    result.AgentID,
			AgentType:  optionalNonEmpty(member.AgentType),
			Background: member.Background,
		})
		statuses[result.AgentID] = result.Status
		names[result.AgentID] = member.Name
	}

	rec := model.TeamRecord{Members: spawned, CreatedAt: createdAt}
	env.Teams.Put(caller.ThreadID, teamID, rec)

	cfg := model.PersistedTeamConfig{LeadThreadID: caller.ThreadID, Members: spawned, CreatedAt: createdAt}
	if err := team.WritePersistedConfig(env.Home, teamID, cfg); err != nil {
		env.Teams.Delete(caller.ThreadID, teamID)
		cleanupSpawned()
		endEvent()
		return Output{}, err
	}

	tasks := make([]model.PersistedTask, 0, len(args.Members))
	for i, member := range args.Members {
		assignee := spawned[i]
		tasks = append(tasks, model.PersistedTask{
			ID:        assignee.AgentID.String(),
			Title:     member.Task,
			Assignee:  model.TaskAssignee{Name: assignee.Name, AgentID: assignee.AgentID},
			State:     model.TaskPending,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
	}
	if err := taskboard.Seed(ctx, env.Home, teamID, tasks); err != nil {
		env.Teams.Delete(caller.ThreadID, teamID)
		if rmErr := team.RemovePersistence(env.Home, teamID); rmErr != nil {
			env.logger().Warn(ctx, "failed to remove team persistence after seed failure", "team_id", teamID, "error", rmErr)
		}
		cleanupSpawned()
		endEvent()
		return Output{}, err
	}

	endEvent()

	members := make([]spawnTeamMemberResult, len(spawned))
	for i, m := range spawned {
		status, ok := statuses[m.AgentID]
		if !ok {
			status = model.AgentStatus{Kind: model.AgentNotFound}
		}
		members[i] = spawnTeamMemberResult{Name: m.Name, AgentID: m.AgentID.String(), Status: wireStatus(status)}
	}

	return marshalOutput(spawnTeamResult{TeamID: teamID, Members: members})
}
