package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/team"
)

type closeTeamArgs struct {
	TeamID  string   `json:"team_id"`
	Members []string `json:"members"`
}

type closeTeamClosedEntry struct {
	Name    string     `json:"name"`
	AgentID string     `json:"agent_id"`
	OK      bool       `json:"ok"`
	Status  statusWire `json:"status"`
	Error   string     `json:"error,omitempty"`
}

type closeTeamResult struct {
	TeamID string                 `json:"team_id"`
	Closed []closeTeamClosedEntry `json:"closed"`
}

// CloseTeam shuts down some or all of a team's members and removes
// confirmed-closed ones from the team record.
// Two distinct statuses are tracked per member: status_before (the only
// one ever surfaced in a member's result entry) and a separately-computed
// event_status fed only to the WaitingEnd event.
func CloseTeam(ctx context.Context, env *Env, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[closeTeamArgs](raw)
	if err != nil {
		return Output{}, err
	}
	teamID, err := team.NormalizeTeamID(args.TeamID)
	if err != nil {
		return Output{}, err
	}
	rec, ok := env.Teams.Get(caller.ThreadID, teamID)
	if !ok || len(rec.Members) == 0 {
		return Output{}, collaberr.Validation("team `%s` has no members", teamID)
	}

	var selected []model.TeamMember
	if args.Members == nil {
		selected = rec.Members
	} else {
		want := make(map[string]bool, len(args.Members))
		for _, name := range args.Members {
			want[name] = true
		}
		for _, m := range rec.Members {
			if want[m.Name] {
				selected = append(selected, m)
			}
		}
		if len(selected) == 0 {
			return Output{}, collaberr.Validation("no matching members found to close in team `%s`", teamID)
		}
	}

	eventCallID := prefixedTeamCallID(teamCloseCallPrefix, callID)
	receivers := make([]ids.ThreadID, len(selected))
	names := make(map[ids.ThreadID]string, len(selected))
	for i, m := range selected {
		receivers[i] = m.AgentID
		names[m.AgentID] = m.Name
	}
	env.sink().WaitingBegin(ctx, events.WaitingBegin{
		CallID:            eventCallID,
		SenderThreadID:    caller.ThreadID,
		ReceiverThreadIDs: receivers,
		ReceiverNames:     names,
	})

	closed := make([]closeTeamClosedEntry, len(selected))
	eventStatuses := make(map[ids.ThreadID]model.AgentStatus, len(selected))
	toRemove := make(map[string]bool)

	for i, m := range selected {
		statusBefore := env.control().GetStatus(ctx, m.AgentID)

		var closeErr error
		if statusBefore.Kind == model.AgentShutdown || statusBefore.Kind == model.AgentNotFound {
			_ = env.control().ShutdownAgent(ctx, m.AgentID)
		} else {
			closeErr = env.control().ShutdownAgent(ctx, m.AgentID)
		}
		statusAfter := env.control().GetStatus(ctx, m.AgentID)

		eventStatus := closeTeamEventStatus(statusBefore, closeErr, statusAfter)
		eventStatuses[m.AgentID] = eventStatus

		var cleanupErr error
		if env.Spawn.Worktree != nil {
			lease, leased := env.Spawn.Worktree.Lookup(m.AgentID)
			cleanupErr = env.Spawn.Worktree.Teardown(ctx, m.AgentID)
			if leased && cleanupErr == nil {
				_ = dispatchHook(ctx, env, m.AgentID, caller.Cwd, hooks.WorktreeRemoveEvent{
					AgentID:      m.AgentID,
					WorktreePath: lease.WorktreePath,
				})
			}
		}

		entry := closeTeamClosedEntry{
			Name:    m.Name,
			AgentID: m.AgentID.String(),
			Status:  wireStatus(statusBefore),
		}
		switch {
		case closeErr != nil && cleanupErr != nil:
			entry.Error = fmt.Sprintf("%s; %s", closeErr, cleanupErr)
		case closeErr != nil:
			entry.Error = closeErr.Error()
		case cleanupErr != nil:
			entry.Error = cleanupErr.Error()
		}
		entry.OK = closeErr == nil && cleanupErr == nil
		closed[i] = entry
		if entry.OK {
			toRemove[m.Name] = true
		}
	}

	var persistErr error
	if len(toRemove) > 0 {
		if _, _, err := env.Teams.RemoveMembers(caller.ThreadID, teamID, toRemove); err != nil {
			persistErr = err
		} else {
			cfg, readErr := team.ReadPersistedConfig(env.Home, teamID)
			if readErr != nil {
				persistErr = readErr
			} else {
				remaining := cfg.Members[:0:0]
				for _, m := range cfg.Members {
					if !toRemove[m.Name] {
						remaining = append(remaining, m)
					}
				}
				cfg.Members = remaining
				persistErr = team.WritePersistedConfig(env.Home, teamID, cfg)
			}
			if persistErr != nil {
				env.Teams.Put(caller.ThreadID, teamID, rec)
			}
		}
	}

	env.sink().WaitingEnd(ctx, events.WaitingEnd{
		CallID:         eventCallID,
		SenderThreadID: caller.ThreadID,
		Statuses:       eventStatuses,
		ReceiverNames:  names,
	})
	env.sink().CloseEnd(ctx, events.CloseEnd{
		CallID:   eventCallID,
		TeamID:   teamID,
		Statuses: eventStatuses,
	})

	if persistErr != nil {
		return Output{}, persistErr
	}

	return marshalOutput(closeTeamResult{TeamID: teamID, Closed: closed})
}

// closeTeamEventStatus computes the status fed only to the WaitingEnd
// event, a priority-ordered match distinct from a member's reported
// status_before: an error during close reports status_after outright;
// otherwise a status_before of Shutdown or NotFound wins (a Completed or
// Errored status_before does not, and falls through); a close that drove the
// agent to NotFound is reported as Shutdown (a successful close, not a
// disappearance); anything else reports status_after.
func closeTeamEventStatus(before model.AgentStatus, closeErr error, after model.AgentStatus) model.AgentStatus {
	if closeErr != nil {
		return after
	}
	if before.Kind == model.AgentNotFound {
		return before
	}
	if before.Kind == model.AgentShutdown {
		return before
	}
	if after.Kind == model.AgentNotFound {
		return model.AgentStatus{Kind: model.AgentShutdown}
	}
	return after
}
