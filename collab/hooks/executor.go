package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/prompttpl"
	"github.com/agentmesh/collabcore/collab/rollout"
)

const (
	// PromptHookDefaultTimeout is used when a prompt hook configures none.
	PromptHookDefaultTimeout = 30 * time.Second
	// AgentHookDefaultTimeout is used when an agent hook configures none.
	AgentHookDefaultTimeout = 60 * time.Second
)

// ModelClient is the minimal model-calling surface a prompt hook needs: one
// call, with a fixed output schema, returning the concatenated text-delta
// stream once the model signals completion. The real model streaming
// client lives outside this module; this interface is its boundary.
type ModelClient interface {
	Complete(ctx context.Context, model, systemInstructions, userText string, jsonSchema []byte) (string, error)
}

// AgentSpawner is the minimal surface an agent hook needs to spawn a
// verifier child, wait for it to finish, and read its answer.
type AgentSpawner interface {
	SpawnVerifier(ctx context.Context, prompt, model string) (ids.ThreadID, error)
	AwaitFinalStatus(ctx context.Context, id ids.ThreadID, timeout time.Duration) (model.AgentStatus, bool)
	RolloutPath(ctx context.Context, id ids.ThreadID) (string, bool, error)
	Shutdown(ctx context.Context, id ids.ThreadID) error
}

// Executors bundles the collaborators the Command/Prompt/Agent executors
// need, beyond what's in the HookConfig/Payload themselves.
type Executors struct {
	Model   ModelClient
	Spawner AgentSpawner
	// DefaultModel is used when a Prompt/Agent hook configures no model.
	DefaultModel string
}

// ExecuteCommand runs a Command hook: the configured argv, capturing
// stdout/stderr, honoring the configured timeout. An empty argv (the
// product of an empty shell string) is a no-op success.
func ExecuteCommand(ctx context.Context, h HookConfig, stdin []byte) Result {
	if len(h.Argv) == 0 {
		return Result{Outcome: OutcomeOK}
	}
	timeout := time.Duration(h.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = PromptHookDefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Argv[0], h.Argv[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{Outcome: OutcomeError, Err: fmt.Errorf("command hook %q timed out", h.Name)}
		}
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("command hook %q failed: %w: %s", h.Name, err, stderr.String())}
	}
	return Result{Outcome: OutcomeOK}
}

// ExecutePrompt runs a Prompt hook: render the prompt, call the model with
// the fixed decision schema, parse the result.
func (e Executors) ExecutePrompt(ctx context.Context, h HookConfig, payloadJSON []byte) Result {
	if e.Model == nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("prompt hook %q: no model client configured", h.Name)}
	}
	timeout := time.Duration(h.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = PromptHookDefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rendered := prompttpl.RenderWithArguments(h.Prompt, string(payloadJSON))
	modelName := h.Model
	if modelName == "" {
		modelName = e.DefaultModel
	}

	out, err := e.Model.Complete(ctx, modelName,
		`Return JSON only: {"ok": true} or {"ok": false, "reason": "..."}. No extra text.`,
		rendered, []byte(decisionSchemaJSON))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{Outcome: OutcomeError, Err: fmt.Errorf("prompt hook %q timed out", h.Name)}
		}
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("prompt hook %q request failed: %w", h.Name, err)}
	}

	decision, err := ParseDecision(out)
	if err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("prompt hook %q returned invalid decision: %w", h.Name, err)}
	}
	return resultFromDecision(decision)
}

// ExecuteAgent runs an Agent hook: spawn a verifier child with approval
// forced to "never", wait for a final status, read its rollout's last
// assistant message, parse it as the decision object.
func (e Executors) ExecuteAgent(ctx context.Context, h HookConfig, payloadJSON []byte) Result {
	if e.Spawner == nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q: no agent spawner configured", h.Name)}
	}
	timeout := time.Duration(h.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = AgentHookDefaultTimeout
	}

	modelName := h.Model
	if modelName == "" {
		modelName = e.DefaultModel
	}
	rendered := prompttpl.RenderWithArguments(h.Prompt, string(payloadJSON))
	fullPrompt := "You are running an agent hook verifier. You may use tools to verify conditions. " +
		`Return JSON only as the final message: {"ok": true} or {"ok": false, "reason": "..."}.` +
		"\n\n" + rendered

	spawnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	agentID, err := e.Spawner.SpawnVerifier(spawnCtx, fullPrompt, modelName)
	if err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q failed to spawn: %w", h.Name, err)}
	}

	status, ok := e.Spawner.AwaitFinalStatus(spawnCtx, agentID, timeout)
	if !ok {
		_ = e.Spawner.Shutdown(ctx, agentID)
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q timed out", h.Name)}
	}
	if !status.IsFinal() {
		_ = e.Spawner.Shutdown(ctx, agentID)
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q ended unexpectedly", h.Name)}
	}

	path, found, err := e.Spawner.RolloutPath(ctx, agentID)
	if err != nil {
		_ = e.Spawner.Shutdown(ctx, agentID)
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q rollout lookup failed: %w", h.Name, err)}
	}
	if !found {
		_ = e.Spawner.Shutdown(ctx, agentID)
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q rollout not found", h.Name)}
	}

	lastMessage, err := rollout.LastAssistantMessage(path)
	if err != nil {
		_ = e.Spawner.Shutdown(ctx, agentID)
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q rollout read failed: %w", h.Name, err)}
	}
	_ = e.Spawner.Shutdown(ctx, agentID)

	decision, err := ParseDecision(lastMessage)
	if err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("agent hook %q returned invalid decision: %w", h.Name, err)}
	}
	return resultFromDecision(decision)
}
