package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/spawn"
)

type resumeAgentArgs struct {
	ID string `json:"id"`
}

type resumeAgentResult struct {
	Status statusWire `json:"status"`
}

// ResumeAgent reactivates a closed agent thread from its rollout: a
// still-live thread is returned as-is, and a resume attempt retries once
// after a reap on AgentLimitReached.
func ResumeAgent(ctx context.Context, env *Env, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[resumeAgentArgs](raw)
	if err != nil {
		return Output{}, err
	}
	id, err := parseAgentID(args.ID)
	if err != nil {
		return Output{}, err
	}

	d := env.Spawn
	d.Sink = env.sink()
	result, err := spawn.Resume(ctx, d, spawn.ResumeRequest{
		CallID:         callID,
		SenderThreadID: caller.ThreadID,
		RootSessionID:  caller.RootSessionID,
		Depth:          caller.ChildDepth,
		AgentID:        id,
		Cwd:            caller.Cwd,
	})
	if err != nil {
		return Output{}, err
	}
	return marshalOutput(resumeAgentResult{Status: wireStatus(result.Status)})
}
