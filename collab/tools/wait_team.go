package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
	"github.com/agentmesh/collabcore/collab/wait"
)

type waitTeamArgs struct {
	TeamID    string  `json:"team_id"`
	Mode      *string `json:"mode"`
	TimeoutMs *int64  `json:"timeout_ms"`
}

type teamMemberStatus struct {
	Name    string     `json:"name"`
	AgentID string     `json:"agent_id"`
	State   statusWire `json:"state"`
}

type triggeredMember struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
}

type waitTeamResult struct {
	Completed       bool               `json:"completed"`
	Mode            string             `json:"mode"`
	TriggeredMember *triggeredMember   `json:"triggered_member,omitempty"`
	MemberStatuses  []teamMemberStatus `json:"member_statuses"`
}

func parseWaitMode(raw *string) (wait.Mode, string, error) {
	if raw == nil {
		return wait.All, "all", nil
	}
	switch *raw {
	case "any":
		return wait.Any, "any", nil
	case "all":
		return wait.All, "all", nil
	default:
		return wait.All, "", collaberr.Validation("mode must be \"any\" or \"all\"")
	}
}

// WaitTeam waits on some or all of a team's members, then dispatches a
// teammate_idle hook for every member that became final. The end event
// fires unconditionally before the idle-hook loop, but a hook failure in
// that loop still fails the call.
func WaitTeam(ctx context.Context, env *Env, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[waitTeamArgs](raw)
	if err != nil {
		return Output{}, err
	}
	teamID, err := team.NormalizeTeamID(args.TeamID)
	if err != nil {
		return Output{}, err
	}
	mode, modeName, err := parseWaitMode(args.Mode)
	if err != nil {
		return Output{}, err
	}

	rec, ok := env.Teams.Get(caller.ThreadID, teamID)
	if !ok || len(rec.Members) == 0 {
		return Output{}, collaberr.Validation("team `%s` has no members", teamID)
	}

	receivers := make([]ids.ThreadID, len(rec.Members))
	names := make(map[ids.ThreadID]string, len(rec.Members))
	for i, m := range rec.Members {
		receivers[i] = m.AgentID
		names[m.AgentID] = m.Name
	}

	eventCallID := prefixedTeamCallID(teamWaitCallPrefix, callID)
	env.sink().WaitingBegin(ctx, events.WaitingBegin{
		CallID:            eventCallID,
		SenderThreadID:    caller.ThreadID,
		ReceiverThreadIDs: receivers,
		ReceiverNames:     names,
	})

	timeout := wait.NormalizeTimeout(args.TimeoutMs)
	result, err := wait.ForAgents(ctx, env.control(), receivers, timeout, mode)
	if err != nil {
		failed := receivers[0]
		status := env.control().GetStatus(ctx, failed)
		env.sink().WaitingEnd(ctx, events.WaitingEnd{
			CallID:         eventCallID,
			SenderThreadID: caller.ThreadID,
			Statuses:       map[ids.ThreadID]model.AgentStatus{failed: status},
			ReceiverNames:  names,
		})
		return Output{}, collabAgentError(failed, err)
	}

	finalStatuses := make(map[ids.ThreadID]model.AgentStatus, len(result.Statuses))
	for _, pair := range result.Statuses {
		finalStatuses[pair.ID] = pair.Status
	}
	env.sink().WaitingEnd(ctx, events.WaitingEnd{
		CallID:         eventCallID,
		SenderThreadID: caller.ThreadID,
		Statuses:       finalStatuses,
		ReceiverNames:  names,
	})

	for _, pair := range result.Statuses {
		if !pair.Status.IsFinal() {
			continue
		}
		name := names[pair.ID]
		if err := dispatchHook(ctx, env, pair.ID, caller.Cwd, hooks.TeammateIdleEvent{
			TeamID:  teamID,
			Member:  name,
			AgentID: pair.ID,
			Status:  pair.Status.Kind.String(),
		}); err != nil {
			return Output{}, err
		}
	}

	memberStatuses := make([]teamMemberStatus, len(rec.Members))
	for i, m := range rec.Members {
		status, ok := finalStatuses[m.AgentID]
		if !ok {
			status = env.control().GetStatus(ctx, m.AgentID)
		}
		memberStatuses[i] = teamMemberStatus{Name: m.Name, AgentID: m.AgentID.String(), State: wireStatus(status)}
	}

	var triggered *triggeredMember
	if mode == wait.Any && len(result.Statuses) > 0 {
		first := result.Statuses[0]
		if name, ok := names[first.ID]; ok {
			triggered = &triggeredMember{Name: name, AgentID: first.ID.String()}
		}
	}

	completed := false
	switch mode {
	case wait.Any:
		completed = !result.TimedOut && len(result.Statuses) > 0
	case wait.All:
		completed = !result.TimedOut
		if completed {
			for _, m := range rec.Members {
				status, ok := finalStatuses[m.AgentID]
				if !ok {
					status = env.control().GetStatus(ctx, m.AgentID)
				}
				if !status.IsFinal() {
					completed = false
					break
				}
			}
		}
	}

	return marshalOutput(waitTeamResult{
		Completed:       completed,
		Mode:            modeName,
		TriggeredMember: triggered,
		MemberStatuses:  memberStatuses,
	})
}
