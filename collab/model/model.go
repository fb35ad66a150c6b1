// Package model defines the data types shared across the collaboration
// core's components: agent status, team membership, tasks, inbox entries,
// and worktree leases.
package model

import (
	"github.com/agentmesh/collabcore/collab/ids"
)

// AgentStatusKind tags the variant of AgentStatus.
type AgentStatusKind int

const (
	AgentPendingInit AgentStatusKind = iota
	AgentRunning
	AgentCompleted
	AgentErrored
	AgentShutdown
	AgentNotFound
)

func (k AgentStatusKind) String() string {
	switch k {
	case AgentPendingInit:
		return "pending_init"
	case AgentRunning:
		return "running"
	case AgentCompleted:
		return "completed"
	case AgentErrored:
		return "errored"
	case AgentShutdown:
		return "shutdown"
	case AgentNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// AgentStatus is the tagged-variant status of one agent thread. Message
// carries the optional final assistant message (Completed) or the error
// text (Errored); it is empty for every other kind.
type AgentStatus struct {
	Kind    AgentStatusKind
	Message string
}

// IsFinal reports whether the status will never change again: Completed,
// Errored, Shutdown, and NotFound are all final.
func (s AgentStatus) IsFinal() bool {
	switch s.Kind {
	case AgentCompleted, AgentErrored, AgentShutdown, AgentNotFound:
		return true
	default:
		return false
	}
}

// TeamMember is one entry in a TeamRecord's member list.
type TeamMember struct {
	Name      string       `json:"name"`
	AgentID   ids.ThreadID `json:"agent_id"`
	AgentType string       `json:"agent_type,omitempty"`
	// Background marks a member spawned with the "background" flag. It is
	// recorded and persisted, but no cleanup path reads it: background
	// members are cleaned up like any other member, and they still
	// participate in wait_team.
	Background bool `json:"background,omitempty"`
}

// TeamRecord is the in-memory, per-lead-conversation representation of a
// team. Key is (lead conversation id, normalized team id), held by the
// registry in collab/team.
type TeamRecord struct {
	Members   []TeamMember `json:"members"`
	CreatedAt int64        `json:"created_at"`
}

// PersistedTeamConfig is the on-disk mirror of a TeamRecord, written
// atomically to <home>/teams/<team_id>/team.json on every change.
type PersistedTeamConfig struct {
	LeadThreadID ids.ThreadID `json:"lead_thread_id"`
	Members      []TeamMember `json:"members"`
	CreatedAt    int64        `json:"created_at"`
}

// TaskState is the lifecycle state of a PersistedTask. Transitions only go
// Pending -> Claimed -> Completed.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskClaimed   TaskState = "claimed"
	TaskCompleted TaskState = "completed"
)

// TaskAssignee names who a task is assigned to.
type TaskAssignee struct {
	Name    string       `json:"name"`
	AgentID ids.ThreadID `json:"agent_id"`
}

// PersistedTask is one task file under a team's tasks/ directory.
type PersistedTask struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Assignee     TaskAssignee    `json:"assignee"`
	Dependencies map[string]bool `json:"dependencies,omitempty"`
	State        TaskState       `json:"state"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
}

// InputKind tags the variant of an InputItem.
type InputKind string

// InputText is currently the only populated InputKind; the type leaves room
// for future variants (images, file references).
const InputText InputKind = "text"

// InputItem is one typed user-input part carried by an InboxEntry.
type InputItem struct {
	Kind         InputKind `json:"type"`
	Text         string    `json:"text,omitempty"`
	TextElements []string  `json:"text_elements,omitempty"`
}

// InboxEntry is one message appended to a receiver's inbox log.
type InboxEntry struct {
	ID           ids.ThreadID `json:"id"`
	CreatedAt    int64        `json:"created_at"`
	TeamID       string       `json:"team_id"`
	FromThreadID ids.ThreadID `json:"from_thread_id"`
	FromName     string       `json:"from_name,omitempty"`
	ToThreadID   ids.ThreadID `json:"to_thread_id"`
	InputItems   []InputItem  `json:"input_items"`
	Prompt       string       `json:"prompt"`
}

// InboxCursor tracks the acknowledged prefix of a receiver's inbox log.
type InboxCursor struct {
	AckedLines  int64  `json:"acked_lines"`
	LastEntryID string `json:"last_entry_id,omitempty"`
}

// InboxAckToken is issued to a caller on pop and required back on ack.
type InboxAckToken struct {
	TeamID      string       `json:"team_id"`
	ThreadID    ids.ThreadID `json:"thread_id"`
	AckedLines  int64        `json:"acked_lines"`
	LastEntryID string       `json:"last_entry_id,omitempty"`
}

// WorktreeLease binds an agent to an isolated working directory for the
// agent's lifetime. Lifetime is a strict subset of the bound agent's.
type WorktreeLease struct {
	AgentID      ids.ThreadID `json:"agent_id"`
	WorktreePath string       `json:"worktree_path"`
	OriginCwd    string       `json:"origin_cwd"`
}
