// Package tools implements the lead-facing JSON tool handlers that drive the
// collaboration core: spawn/resume agents, wait on them, message them
// individually or as a team, and manage the shared task board and inbox.
// Each handler is a thin protocol adapter: parse arguments, call the
// owning package (collab/spawn, collab/wait, collab/team, collab/taskboard,
// collab/inbox), marshal a JSON result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentmesh/collabcore/collab/agentcontrol"
	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/spawn"
	"github.com/agentmesh/collabcore/collab/team"
	"github.com/agentmesh/collabcore/collab/telemetry"
)

// Env bundles every collaborator a tool handler needs. One Env is shared
// across every call in a process; Spawn.Control/Worktree/Hooks are the same
// instances collab/spawn's state machine itself runs against.
type Env struct {
	Home      string
	Teams     *team.Registry
	Spawn     spawn.Deps
	Sink      events.Sink
	Telemetry telemetry.Bundle
}

func (e *Env) sink() events.Sink {
	if e.Sink == nil {
		return events.NoopSink{}
	}
	return e.Sink
}

func (e *Env) logger() telemetry.Logger {
	if e.Telemetry.Logger == nil {
		return telemetry.NoopLogger{}
	}
	return e.Telemetry.Logger
}

func (e *Env) control() agentcontrol.Control { return e.Spawn.Control }

// Caller is the calling thread's context: which thread is invoking the
// tool, the root of its spawn tree, the depth a child of this call would
// spawn at, and its current working directory (used as the origin of a
// requested worktree lease).
type Caller struct {
	ThreadID      ids.ThreadID
	RootSessionID ids.ThreadID
	ChildDepth    int
	Cwd           string
}

// Output carries a handler's result back to the protocol layer: Body is
// the JSON-encoded result text; Success is nil when the handler leaves
// success unset.
type Output struct {
	Body    string
	Success *bool
}

func ok(v bool) *bool { return &v }

func marshalOutput(v any) (Output, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return Output{}, collaberr.Wrap(fmt.Errorf("serialize tool result: %w", err))
	}
	return Output{Body: string(buf), Success: ok(true)}, nil
}

func parseArgs[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, collaberr.Validation("invalid arguments: %v", err)
	}
	return v, nil
}

func parseAgentID(raw string) (ids.ThreadID, error) {
	id, err := ids.ParseThreadID(raw)
	if err != nil {
		return ids.ThreadID{}, collaberr.Validation("invalid agent id %q: %v", raw, err)
	}
	return id, nil
}

func optionalNonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// parseCollabInput builds the input-item list a spawn/send_input/message
// call ships to a receiver from the (message, items) argument pair every one
// of these handlers accepts: a plain string shorthand plus structured items,
// at least one of which must be present.
func parseCollabInput(message *string, items []model.InputItem) ([]model.InputItem, error) {
	var out []model.InputItem
	if message != nil && strings.TrimSpace(*message) != "" {
		out = append(out, model.InputItem{Kind: model.InputText, Text: *message})
	}
	out = append(out, items...)
	if len(out) == 0 {
		return nil, collaberr.Validation("message or items must be provided")
	}
	return out, nil
}

const inputPreviewLimit = 200

// inputPreview renders a short, single-line summary of items for the
// begin/end UI events and for an inbox entry's prompt field.
func inputPreview(items []model.InputItem) string {
	var parts []string
	for _, item := range items {
		if item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	preview := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	r := []rune(preview)
	if len(r) > inputPreviewLimit {
		return string(r[:inputPreviewLimit]) + "…"
	}
	return preview
}

// sendInputToMember delivers items to an already-spawned agent thread,
// matching send_input_to_member's shared role across send_input,
// team_message, team_broadcast, and team_ask_lead.
func sendInputToMember(ctx context.Context, env *Env, receiver ids.ThreadID, items []model.InputItem, interrupt bool) (string, error) {
	submissionID, err := env.control().SendInput(ctx, receiver, items, interrupt)
	if err != nil {
		return "", collaberr.Persistence(fmt.Sprintf("failed to deliver input to agent %s", receiver.Short()), err)
	}
	return submissionID, nil
}

const (
	teamSpawnCallPrefix = "team_spawn"
	teamWaitCallPrefix  = "team_wait"
	teamCloseCallPrefix = "team_close"
)

func prefixedTeamCallID(prefix, callID string) string {
	return prefix + ":" + callID
}

// maybeStartBackgroundAgentCleanup would schedule an unattended reap of a
// "background" member once it reaches a final status. This core carries no
// timer/scheduler component of its own — a background member is reaped the
// same way any other member is, by the next spawn/resume reap-and-retry
// cycle or an explicit team_cleanup/close_team call — so this is a
// documented no-op rather than a fabricated scheduler.
func maybeStartBackgroundAgentCleanup(ids.ThreadID) {}

func collabAgentError(id ids.ThreadID, err error) error {
	return collaberr.Persistence(fmt.Sprintf("agent %s failed", id.Short()), err)
}

func dispatchHook(ctx context.Context, env *Env, sessionID ids.ThreadID, cwd string, ev hooks.Event) error {
	if env.Spawn.Hooks == nil {
		return nil
	}
	outcome := env.Spawn.Hooks.Dispatch(ctx, hooks.Envelope{SessionID: sessionID, Cwd: cwd, Event: ev})
	if outcome.Aborted {
		return collaberr.Validation("%s hook blocked operation: %s", ev.Kind(), outcome.Reason)
	}
	return nil
}

// statusWire is the JSON wire shape of model.AgentStatus.
type statusWire struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

func wireStatus(s model.AgentStatus) statusWire {
	return statusWire{Kind: s.Kind.String(), Message: s.Message}
}
