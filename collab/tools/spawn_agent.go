package tools

import (
	"context"
	"encoding/json"

	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/spawn"
)

type spawnAgentArgs struct {
	Message       *string           `json:"message"`
	Items         []model.InputItem `json:"items"`
	AgentType     *string           `json:"agent_type"`
	ModelProvider *string           `json:"model_provider"`
	Model         *string           `json:"model"`
	Worktree      bool              `json:"worktree"`
	Background    bool              `json:"background"`
}

type spawnAgentResult struct {
	AgentID string `json:"agent_id"`
}

// SpawnAgent spawns a single child agent thread and delivers it its first
// turn's input.
func SpawnAgent(ctx context.Context, env *Env, caller Caller, callID string, raw json.RawMessage) (Output, error) {
	args, err := parseArgs[spawnAgentArgs](raw)
	if err != nil {
		return Output{}, err
	}
	items, err := parseCollabInput(args.Message, args.Items)
	if err != nil {
		return Output{}, err
	}

	req := spawn.Request{
		CallID:         callID,
		SenderThreadID: caller.ThreadID,
		RootSessionID:  caller.RootSessionID,
		Depth:          caller.ChildDepth,
		Cwd:            caller.Cwd,
		Role:           optionalNonEmpty(args.AgentType),
		ModelProvider:  optionalNonEmpty(args.ModelProvider),
		Model:          optionalNonEmpty(args.Model),
		InputItems:     items,
		Prompt:         inputPreview(items),
	}
	if args.Worktree {
		req.WorktreeOrigin = caller.Cwd
	}

	d := env.Spawn
	d.Sink = env.sink()
	result, err := spawn.One(ctx, d, req)
	if err != nil {
		return Output{}, err
	}
	if args.Background {
		maybeStartBackgroundAgentCleanup(result.AgentID)
	}

	return marshalOutput(spawnAgentResult{AgentID: result.AgentID.String()})
}
