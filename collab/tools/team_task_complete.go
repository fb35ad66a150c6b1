package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/taskboard"
	"github.com/agentmesh/collabcore/collab/team"
)

type teamTaskCompleteArgs struct {
	TeamID string `json:"team_id"`
	TaskID string `json:"task_id"`
}

type teamTaskCompleteResult struct {
	TeamID    string              `json:"team_id"`
	Completed bool                `json:"completed"`
	Task      model.PersistedTask `json:"task"`
}

// TeamTaskComplete transitions a task to completed, firing the
// task_completed hook between the task-board's authorization check and the
// actual state write; a hook that aborts leaves the task's state
// untouched. taskboard.Complete re-validates both before and after the
// hook runs, so a concurrent mutation racing the hook dispatch is still
// caught.
func TeamTaskComplete(ctx context.Context, env *Env, caller Caller, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[teamTaskCompleteArgs](raw)
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

	onPreCommit := func(task model.PersistedTask) error {
		return dispatchHook(ctx, env, caller.ThreadID, caller.Cwd, hooks.TaskCompletedEvent{
			TeamID: teamID,
			TaskID: task.ID,
			Title:  task.Title,
		})
	}

	task, err := taskboard.Complete(ctx, env.Home, teamID, args.TaskID, caller.ThreadID, isLead, validMembers, onPreCommit)
	if err != nil {
		return Output{}, err
	}

	return marshalOutput(teamTaskCompleteResult{TeamID: teamID, Completed: true, Task: task})
}
