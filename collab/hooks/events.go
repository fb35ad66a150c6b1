// Package hooks implements the user-extension hook pipeline: the typed
// event taxonomy, matcher predicates, the three executor kinds (command,
// prompt, agent), and the dispatcher that fires matching hooks in
// configuration order.
package hooks

import (
	"time"

	"github.com/agentmesh/collabcore/collab/ids"
)

// EventKind enumerates every hook trigger point.
type EventKind string

const (
	EventSessionStart     EventKind = "session_start"
	EventSessionEnd       EventKind = "session_end"
	EventUserPromptSubmit EventKind = "user_prompt_submit"
	EventPreToolUse       EventKind = "pre_tool_use"
	EventPermissionReq    EventKind = "permission_request"
	EventNotification     EventKind = "notification"
	EventPostToolUse      EventKind = "post_tool_use"
	EventPostToolUseFail  EventKind = "post_tool_use_failure"
	EventStop             EventKind = "stop"
	EventTeammateIdle     EventKind = "teammate_idle"
	EventTaskCompleted    EventKind = "task_completed"
	EventConfigChange     EventKind = "config_change"
	EventSubagentStart    EventKind = "subagent_start"
	EventSubagentStop     EventKind = "subagent_stop"
	EventPreCompact       EventKind = "pre_compact"
	EventWorktreeCreate   EventKind = "worktree_create"
	EventWorktreeRemove   EventKind = "worktree_remove"

	// legacy aliases kept for the notify hook and older configs.
	eventAfterAgent   EventKind = "after_agent"
	eventAfterToolUse EventKind = "after_tool_use"
)

// ToolKind classifies the tool named by pre/post_tool_use events.
type ToolKind string

const (
	ToolFunction   ToolKind = "function"
	ToolCustom     ToolKind = "custom"
	ToolLocalShell ToolKind = "local_shell"
	ToolMCP        ToolKind = "mcp"
)

// Event is implemented by every concrete event payload. The two optional
// accessors feed the matcher predicates: an event without a tool name
// trivially fails tool predicates, and likewise for prompts.
type Event interface {
	Kind() EventKind
	ToolName() (string, bool)
	Prompt() (string, bool)
}

// Envelope wraps a concrete Event with the fields every payload carries:
// the triggering session, its cwd, and the wall-clock time it fired.
type Envelope struct {
	SessionID   ids.ThreadID
	Cwd         string
	TriggeredAt time.Time
	Event       Event
}

func (e Envelope) EventName() string { return string(e.Event.Kind()) }

type baseEvent struct{}

func (baseEvent) ToolName() (string, bool) { return "", false }
func (baseEvent) Prompt() (string, bool)   { return "", false }

// SessionStartEvent fires when a new lead session begins.
type SessionStartEvent struct {
	baseEvent
	Source string
}

func (SessionStartEvent) Kind() EventKind { return EventSessionStart }

// SessionEndEvent fires when a lead session ends.
type SessionEndEvent struct {
	baseEvent
	Source string
}

func (SessionEndEvent) Kind() EventKind { return EventSessionEnd }

// UserPromptSubmitEvent fires when the lead submits a new prompt.
type UserPromptSubmitEvent struct {
	baseEvent
	TurnID string
	Text   string
}

func (UserPromptSubmitEvent) Kind() EventKind          { return EventUserPromptSubmit }
func (e UserPromptSubmitEvent) Prompt() (string, bool) { return e.Text, true }

// ToolInput is the tagged payload of a tool invocation, used by the
// pre/post_tool_use family of events.
type ToolInput struct {
	InputType string
	Arguments string // Function, Custom, Mcp
	Server    string // Mcp only
	Tool      string // Mcp only
	Command   []string
	Workdir   string
}

// PreToolUseEvent fires before a tool call executes.
type PreToolUseEvent struct {
	baseEvent
	TurnID        string
	CallID        string
	Tool          string
	ToolKindValue ToolKind
	Input         ToolInput
	Mutating      bool
	Sandbox       string
	SandboxPolicy string
}

func (PreToolUseEvent) Kind() EventKind            { return EventPreToolUse }
func (e PreToolUseEvent) ToolName() (string, bool) { return e.Tool, e.Tool != "" }

// PostToolUseEvent fires after a tool call completes, successfully or not.
type PostToolUseEvent struct {
	baseEvent
	TurnID        string
	CallID        string
	Tool          string
	ToolKindValue ToolKind
	Input         ToolInput
	Executed      bool
	Success       bool
	DurationMs    int64
	Mutating      bool
	Sandbox       string
	SandboxPolicy string
	OutputPreview string
}

func (PostToolUseEvent) Kind() EventKind            { return EventPostToolUse }
func (e PostToolUseEvent) ToolName() (string, bool) { return e.Tool, e.Tool != "" }

// PostToolUseFailureEvent fires when a tool call's execution itself errors
// (distinct from a tool that runs and reports a non-success result).
type PostToolUseFailureEvent struct {
	baseEvent
	TurnID string
	CallID string
	Tool   string
	Error  string
}

func (PostToolUseFailureEvent) Kind() EventKind            { return EventPostToolUseFail }
func (e PostToolUseFailureEvent) ToolName() (string, bool) { return e.Tool, e.Tool != "" }

// PermissionRequestEvent fires when a tool call needs elevated approval.
type PermissionRequestEvent struct {
	baseEvent
	TurnID string
	CallID string
	Tool   string
	Reason string
}

func (PermissionRequestEvent) Kind() EventKind            { return EventPermissionReq }
func (e PermissionRequestEvent) ToolName() (string, bool) { return e.Tool, e.Tool != "" }

// NotificationEvent fires for any UI-facing notification the runtime wants
// hooks to observe (distinct from the legacy notify hook in notify.go).
type NotificationEvent struct {
	baseEvent
	Title   string
	Message string
}

func (NotificationEvent) Kind() EventKind { return EventNotification }

// AfterAgentEvent is shared by Stop and SubagentStop: it carries the
// completed thread's id, turn, input, and final assistant message.
type AfterAgentEvent struct {
	baseEvent
	ThreadID             ids.ThreadID
	TurnID               string
	InputMessages        []string
	LastAssistantMessage string
	subagent             bool
}

func (e AfterAgentEvent) Kind() EventKind {
	if e.subagent {
		return EventSubagentStop
	}
	return EventStop
}

// NewStopEvent builds the stop-kind AfterAgentEvent.
func NewStopEvent(e AfterAgentEvent) AfterAgentEvent { e.subagent = false; return e }

// NewSubagentStopEvent builds the subagent_stop-kind AfterAgentEvent.
func NewSubagentStopEvent(e AfterAgentEvent) AfterAgentEvent { e.subagent = true; return e }

// TeammateIdleEvent fires when a wait coordinator observes a member reach a
// final status.
type TeammateIdleEvent struct {
	baseEvent
	TeamID  string
	Member  string
	AgentID ids.ThreadID
	Status  string
}

func (TeammateIdleEvent) Kind() EventKind { return EventTeammateIdle }

// TaskCompletedEvent fires before a task board completion is persisted,
// while the task is still observable in its pre-completion state.
type TaskCompletedEvent struct {
	baseEvent
	TeamID string
	TaskID string
	Title  string
}

func (TaskCompletedEvent) Kind() EventKind { return EventTaskCompleted }

// ConfigChangeEvent fires when a hooks config layer is reloaded.
type ConfigChangeEvent struct {
	baseEvent
	Layer string
}

func (ConfigChangeEvent) Kind() EventKind { return EventConfigChange }

// SubagentStartEvent fires right after a child agent thread spawns,
// before any spawn input is sent.
type SubagentStartEvent struct {
	baseEvent
	ThreadID ids.ThreadID
	Role     string
}

func (SubagentStartEvent) Kind() EventKind { return EventSubagentStart }

// PreCompactEvent fires before a rollout is compacted.
type PreCompactEvent struct {
	baseEvent
	TurnID string
	Model  string
}

func (PreCompactEvent) Kind() EventKind { return EventPreCompact }

// WorktreeCreateEvent fires after a worktree lease is acquired.
type WorktreeCreateEvent struct {
	baseEvent
	AgentID      ids.ThreadID
	WorktreePath string
}

func (WorktreeCreateEvent) Kind() EventKind { return EventWorktreeCreate }

// WorktreeRemoveEvent fires after a worktree lease is torn down.
type WorktreeRemoveEvent struct {
	baseEvent
	AgentID      ids.ThreadID
	WorktreePath string
}

func (WorktreeRemoveEvent) Kind() EventKind { return EventWorktreeRemove }
