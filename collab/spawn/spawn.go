// Package spawn implements the spawn/resume state machine shared by
// spawn_agent, the per-member loop inside spawn_team, and resume_agent:
// Parsed -> DepthChecked -> ConfigBuilt -> RoleApplied -> ModelOverridden ->
// (WorktreeLeased?) -> ThreadSpawned (possibly after one reap+retry) ->
// HookContextInjected -> SpawnInputSent -> LeaseRegistered -> Succeeded.
// Any failure after WorktreeLeased tears the lease back down; any failure
// after ThreadSpawned shuts the new thread back down.
package spawn

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentmesh/collabcore/collab/agentcontrol"
	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/worktree"
)

// Reaper shuts down every agent already in a final status, returning how
// many it reaped. Spawn and resume each retry exactly once after a reap
// when the control surface reports AgentLimitReached.
type Reaper func(ctx context.Context) int

// Deps bundles the collaborators a spawn or resume attempt needs, trimmed
// to what this state machine touches.
type Deps struct {
	Control  agentcontrol.Control
	Worktree *worktree.Manager // nil disables worktree leasing
	Hooks    *hooks.Dispatcher // nil disables subagent_start dispatch
	Sink     events.Sink       // nil is treated as events.NoopSink
	MaxDepth int
	Reap     Reaper // nil disables the reap-and-retry path
}

func (d Deps) sink() events.Sink {
	if d.Sink == nil {
		return events.NoopSink{}
	}
	return d.Sink
}

// Request describes one spawn attempt: either a standalone spawn_agent call
// or one member of a spawn_team fan-out.
type Request struct {
	CallID           string
	SenderThreadID   ids.ThreadID
	RootSessionID    ids.ThreadID
	Depth            int
	BaseInstructions string
	Cwd              string
	ModelProvider    string
	Model            string
	Role             string
	ApprovalNever    bool
	// WorktreeOrigin, when non-empty, requests a leased copy of that
	// directory for the new agent's lifetime.
	WorktreeOrigin string
	// DeveloperPreface, when non-empty, is injected as a developer message
	// right after the thread spawns and before SpawnInputSent — the
	// HookContextInjected step's payload (e.g. subagent_start hook
	// instructions, team role briefing).
	DeveloperPreface string
	InputItems       []model.InputItem
	Prompt           string
}

// Result is the outcome of a completed spawn or resume attempt.
type Result struct {
	AgentID ids.ThreadID
	Status  model.AgentStatus
}

// One runs the full spawn state machine for req.
func One(ctx context.Context, d Deps, req Request) (Result, error) {
	d.sink().AgentSpawnBegin(ctx, events.AgentSpawnBegin{
		CallID:         req.CallID,
		SenderThreadID: req.SenderThreadID,
		Prompt:         req.Prompt,
	})

	result, err := spawnInner(ctx, d, req)

	end := events.AgentSpawnEnd{
		CallID:         req.CallID,
		SenderThreadID: req.SenderThreadID,
		Prompt:         req.Prompt,
		Status:         result.Status,
	}
	if err == nil {
		id := result.AgentID
		end.NewThreadID = &id
	}
	d.sink().AgentSpawnEnd(ctx, end)
	return result, err
}

func notFoundResult() Result {
	return Result{Status: model.AgentStatus{Kind: model.AgentNotFound}}
}

func spawnInner(ctx context.Context, d Deps, req Request) (Result, error) {
	// DepthChecked
	if req.Depth > d.MaxDepth {
		return notFoundResult(), collaberr.ErrDepthLimitReached
	}

	// ConfigBuilt, RoleApplied, ModelOverridden
	cfg := agentcontrol.Config{
		BaseInstructions: req.BaseInstructions,
		Cwd:              req.Cwd,
		ModelProvider:    req.ModelProvider,
		Model:            req.Model,
		Role:             req.Role,
		Depth:            req.Depth,
		ApprovalNever:    req.ApprovalNever,
		DeveloperPreface: req.DeveloperPreface,
	}

	// WorktreeLeased? The agent thread doesn't exist yet, so the lease is
	// built under a provisional key and re-keyed to the real agent id once
	// ThreadSpawned succeeds (LeaseRegistered below).
	var lease *model.WorktreeLease
	cwd := req.Cwd
	if req.WorktreeOrigin != "" {
		if d.Worktree == nil {
			return notFoundResult(), collaberr.Fatalf("worktree requested but no worktree manager is configured")
		}
		built, err := d.Worktree.Create(ctx, ids.NewThreadID(), req.WorktreeOrigin)
		if err != nil {
			return notFoundResult(), err
		}
		lease = &built
		cfg.Cwd = built.WorktreePath
		cwd = built.WorktreePath
	}
	abandonLease := func() {
		if lease != nil {
			_ = d.Worktree.Abandon(*lease)
		}
	}

	// ThreadSpawned, possibly after one reap+retry.
	source := &agentcontrol.SpawnSource{RootSessionID: req.RootSessionID, Depth: req.Depth}
	agentID, notification, err := d.Control.SpawnAgentThread(ctx, cfg, source)
	if errors.Is(err, agentcontrol.ErrAgentLimitReached) && d.Reap != nil {
		d.Reap(ctx)
		agentID, notification, err = d.Control.SpawnAgentThread(ctx, cfg, source)
	}
	if err != nil {
		abandonLease()
		if errors.Is(err, agentcontrol.ErrAgentLimitReached) {
			return notFoundResult(), collaberr.Validation("agent limit reached; no capacity available to spawn this agent")
		}
		return notFoundResult(), collaberr.Persistence("failed to spawn agent thread", err)
	}

	// HookContextInjected
	if d.Hooks != nil {
		outcome := d.Hooks.Dispatch(ctx, hooks.Envelope{
			SessionID: agentID,
			Cwd:       cwd,
			Event:     hooks.SubagentStartEvent{ThreadID: agentID, Role: req.Role},
		})
		if outcome.Aborted {
			_ = d.Control.ShutdownAgent(ctx, agentID)
			abandonLease()
			return notFoundResult(), collaberr.Validation("subagent_start hook blocked spawn: %s", outcome.Reason)
		}
	}
	if req.DeveloperPreface != "" {
		if err := d.Control.InjectDeveloperMessageWithoutTurn(ctx, agentID, req.DeveloperPreface); err != nil {
			_ = d.Control.ShutdownAgent(ctx, agentID)
			abandonLease()
			return notFoundResult(), collaberr.Persistence(fmt.Sprintf("failed to inject hook context for agent %s", agentID.Short()), err)
		}
	}

	// SpawnInputSent
	if err := d.Control.SendSpawnInput(ctx, agentID, req.InputItems, notification); err != nil {
		_ = d.Control.ShutdownAgent(ctx, agentID)
		abandonLease()
		return notFoundResult(), collaberr.Persistence(fmt.Sprintf("failed to deliver spawn input to agent %s", agentID.Short()), err)
	}

	// LeaseRegistered
	if lease != nil {
		lease.AgentID = agentID
		d.Worktree.Register(*lease)
		if d.Hooks != nil {
			d.Hooks.Dispatch(ctx, hooks.Envelope{
				SessionID: agentID,
				Cwd:       cwd,
				Event:     hooks.WorktreeCreateEvent{AgentID: agentID, WorktreePath: lease.WorktreePath},
			})
		}
	}

	// Succeeded
	return Result{AgentID: agentID, Status: d.Control.GetStatus(ctx, agentID)}, nil
}

// ResumeRequest describes a resume_agent attempt.
type ResumeRequest struct {
	CallID         string
	SenderThreadID ids.ThreadID
	RootSessionID  ids.ThreadID
	Depth          int
	AgentID        ids.ThreadID
	Cwd            string
	ModelProvider  string
	Model          string
	Role           string
}

// Resume runs resume_agent's state machine for req.
func Resume(ctx context.Context, d Deps, req ResumeRequest) (Result, error) {
	d.sink().ResumeBegin(ctx, events.ResumeBegin{
		CallID:           req.CallID,
		SenderThreadID:   req.SenderThreadID,
		ReceiverThreadID: req.AgentID,
	})

	result, err := resumeInner(ctx, d, req)

	d.sink().ResumeEnd(ctx, events.ResumeEnd{
		CallID:           req.CallID,
		SenderThreadID:   req.SenderThreadID,
		ReceiverThreadID: req.AgentID,
		Status:           result.Status,
	})
	return result, err
}

func resumeInner(ctx context.Context, d Deps, req ResumeRequest) (Result, error) {
	// Both the "still active" and the "resume from rollout" paths check the
	// depth limit before doing anything else.
	if req.Depth > d.MaxDepth {
		return notFoundResult(), collaberr.ErrDepthLimitReached
	}

	status := d.Control.GetStatus(ctx, req.AgentID)
	if status.Kind != model.AgentNotFound && status.Kind != model.AgentShutdown {
		return Result{AgentID: req.AgentID, Status: status}, nil
	}

	cfg := agentcontrol.Config{
		Cwd:           req.Cwd,
		ModelProvider: req.ModelProvider,
		Model:         req.Model,
		Role:          req.Role,
		Depth:         req.Depth,
	}
	source := agentcontrol.SpawnSource{RootSessionID: req.RootSessionID, Depth: req.Depth}

	newID, err := d.Control.ResumeAgentFromRollout(ctx, cfg, req.AgentID, source)
	if errors.Is(err, agentcontrol.ErrAgentLimitReached) && d.Reap != nil {
		d.Reap(ctx)
		newID, err = d.Control.ResumeAgentFromRollout(ctx, cfg, req.AgentID, source)
	}
	if err != nil {
		if errors.Is(err, agentcontrol.ErrAgentLimitReached) {
			return notFoundResult(), collaberr.Validation("agent limit reached; unable to resume agent `%s`", req.AgentID.Short())
		}
		return notFoundResult(), collaberr.Persistence(fmt.Sprintf("failed to resume agent %s", req.AgentID.Short()), err)
	}

	return Result{AgentID: newID, Status: d.Control.GetStatus(ctx, newID)}, nil
}
