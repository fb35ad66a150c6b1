package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/wait"
)

type waitArgs struct {
	IDs       []string `json:"ids"`
	TimeoutMs *int64   `json:"timeout_ms"`
}

type waitResult struct {
	Status   map[string]statusWire `json:"status"`
	TimedOut bool                  `json:"timed_out"`
}

// Wait blocks until any one of the given agents reaches a final status or
// the timeout elapses. Unlike every other handler in this package, a
// successful call leaves Output.Success unset — the bare wait tool never
// reports success explicitly.
func Wait(ctx context.Context, env *Env, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[waitArgs](raw)
	if err != nil {
		return Output{}, err
	}
	if len(args.IDs) == 0 {
		return Output{}, collaberr.Validation("ids must be non-empty")
	}
	receivers := make([]ids.ThreadID, 0, len(args.IDs))
	for _, raw := range args.IDs {
		id, err := parseAgentID(raw)
		if err != nil {
			return Output{}, err
		}
		receivers = append(receivers, id)
	}
	timeout := wait.NormalizeTimeout(args.TimeoutMs)

	env.sink().WaitingBegin(ctx, events.WaitingBegin{
		CallID:            callID,
		SenderThreadID:    caller.ThreadID,
		ReceiverThreadIDs: receivers,
	})

	result, err := wait.ForAgents(ctx, env.control(), receivers, timeout, wait.Any)
	if err != nil {
		failed := receivers[0]
		status := env.control().GetStatus(ctx, failed)
		env.sink().WaitingEnd(ctx, events.WaitingEnd{
			CallID:         callID,
			SenderThreadID: caller.ThreadID,
			Statuses:       map[ids.ThreadID]model.AgentStatus{failed: status},
		})
		return Output{}, collabAgentError(failed, err)
	}

	statuses := make(map[ids.ThreadID]model.AgentStatus, len(result.Statuses))
	for _, pair := range result.Statuses {
		statuses[pair.ID] = pair.Status
	}
	env.sink().WaitingEnd(ctx, events.WaitingEnd{
		CallID:         callID,
		SenderThreadID: caller.ThreadID,
		Statuses:       statuses,
	})

	wire := make(map[string]statusWire, len(statuses))
	for id, status := range statuses {
		wire[id.String()] = wireStatus(status)
	}
	body, err := json.Marshal(waitResult{Status: wire, TimedOut: result.TimedOut})
	if err != nil {
		return Output{}, collaberr.Wrap(err)
	}
	return Output{Body: string(body)}, nil
}
