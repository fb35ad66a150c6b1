// Package agentcontrol defines the agent control surface the rest of the
// collaboration core spawns, drives, and tears down child agents through.
// The real per-agent execution engine (the model loop that turns input
// into tool calls and a rollout file) lives outside this module; this
// package is only the boundary interface plus an in-memory fake used by
// tests and by cmd/collabserve's standalone demo mode.
package agentcontrol

import (
	"context"
	"errors"
	"time"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

// SpawnSource identifies where in the spawn tree a new thread originates:
// the root session plus the depth of the spawn that is about to happen.
type SpawnSource struct {
	RootSessionID ids.ThreadID
	Depth         int
}

// NotificationSource is an opaque token the control surface hands back from
// a spawn so the caller can later target send_spawn_input at the exact
// notification channel the new agent is listening on.
type NotificationSource struct {
	Token string
}

// Config is the subset of an agent's launch configuration the core needs to
// build and pass through: base instructions, working directory, model
// overrides, and the depth it is spawning at. The full per-agent
// configuration (sandbox policy, approval policy, etc.) is assembled by the
// execution engine this core treats as external.
type Config struct {
	BaseInstructions string
	Cwd              string
	ModelProvider    string
	Model            string
	Role             string
	Depth            int
	// ApprovalNever forces approval policy to "never", used for hook
	// verifier sub-agents.
	ApprovalNever bool
	// DeveloperPreface is injected as a developer message before any spawn
	// input, used by both subagent_start hook context and agent-hook
	// verifier instructions.
	DeveloperPreface string
}

// ErrAgentLimitReached is returned by SpawnAgentThread/ResumeAgentFromRollout
// when no capacity slot is currently available; callers retry once after
// reaping finished agents.
var ErrAgentLimitReached = errors.New("agent limit reached")

// Control is the interface the core consumes to spawn, drive, and observe
// child agent threads.
type Control interface {
	// SpawnAgentThread allocates a new agent thread from cfg, returning its
	// id and a notification source to target follow-up input at. Returns
	// ErrAgentLimitReached when no slot is available.
	SpawnAgentThread(ctx context.Context, cfg Config, source *SpawnSource) (ids.ThreadID, NotificationSource, error)

	// SendSpawnInput delivers the first turn's input to a freshly spawned
	// agent, using the notification source returned by SpawnAgentThread.
	SendSpawnInput(ctx context.Context, id ids.ThreadID, items []model.InputItem, source NotificationSource) error

	// SendInput delivers input to an already-running agent; interrupt asks
	// the agent to abandon its current turn first.
	SendInput(ctx context.Context, id ids.ThreadID, items []model.InputItem, interrupt bool) (submissionID string, err error)

	// GetStatus returns the current status of id; a thread this control
	// surface has never heard of reports AgentNotFound rather than erroring.
	GetStatus(ctx context.Context, id ids.ThreadID) model.AgentStatus

	// SubscribeStatus returns a Watch with latest-value semantics: callers
	// borrow the current status, then await a change before borrowing
	// again.
	SubscribeStatus(ctx context.Context, id ids.ThreadID) (*Watch, error)

	// ShutdownAgent terminates id's thread. Idempotent: shutting down an
	// already-Shutdown or NotFound thread succeeds.
	ShutdownAgent(ctx context.Context, id ids.ThreadID) error

	// ResumeAgentFromRollout reconstructs a closed agent's session from its
	// rollout file under a new Config, preserving its thread id. Returns
	// ErrAgentLimitReached under the same retry contract as spawn.
	ResumeAgentFromRollout(ctx context.Context, cfg Config, id ids.ThreadID, source SpawnSource) (ids.ThreadID, error)

	// InjectDeveloperMessageWithoutTurn appends a developer-role message to
	// id's rollout without triggering a model turn — used to deliver
	// subagent_start hook context right after spawn.
	InjectDeveloperMessageWithoutTurn(ctx context.Context, id ids.ThreadID, text string) error

	// RolloutPath returns the on-disk path to id's rollout file, used by
	// the Agent hook executor and by resume to read the last assistant
	// message. found is false if no rollout exists for id.
	RolloutPath(ctx context.Context, id ids.ThreadID) (path string, found bool, err error)
}

// Watch exposes the latest-value status stream contract: Current returns
// the most recently observed status without blocking; Changed blocks until
// the next update published after Changed is called (or ctx/timeout
// expiry), so an update landing between a Current call and a Changed call
// is not reported by that Changed call.
type Watch struct {
	mu      chan struct{} // guards current via a 1-buffered mutex idiom, avoiding sync.Mutex + sync.Cond coupling
	current model.AgentStatus
	changed chan struct{} // replaced (closed + recreated) on every update
}

func newWatch(initial model.AgentStatus) *Watch {
	w := &Watch{
		mu:      make(chan struct{}, 1),
		current: initial,
		changed: make(chan struct{}),
	}
	w.mu <- struct{}{}
	return w
}

// Current returns the most recently published status.
func (w *Watch) Current() model.AgentStatus {
	<-w.mu
	v := w.current
	w.mu <- struct{}{}
	return v
}

// Changed blocks until the status changes or ctx is done, then reports
// which happened.
func (w *Watch) Changed(ctx context.Context) (model.AgentStatus, bool) {
	<-w.mu
	ch := w.changed
	w.mu <- struct{}{}
	select {
	case <-ch:
		return w.Current(), true
	case <-ctx.Done():
		return model.AgentStatus{}, false
	}
}

func (w *Watch) set(status model.AgentStatus) {
	<-w.mu
	w.current = status
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu <- struct{}{}
}

// WaitFinal blocks until w's status IsFinal() or timeout elapses.
func WaitFinal(ctx context.Context, w *Watch, timeout time.Duration) (model.AgentStatus, bool) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	for {
		<-w.mu
		status, ch := w.current, w.changed
		w.mu <- struct{}{}
		if status.IsFinal() {
			return status, true
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return w.Current(), false
		}
	}
}
