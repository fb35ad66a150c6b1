// Package events defines the begin/end UI event pairs the core emits around
// every suspending multi-agent operation (spawn, wait, close, resume), and
// the Sink every emitter writes them to. Distinct from collab/hooks.Event:
// these are outbound UI notifications, not inbound hook-trigger payloads.
package events

import (
	"context"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

// AgentSpawnBegin fires when a spawn attempt starts.
type AgentSpawnBegin struct {
	CallID         string
	SenderThreadID ids.ThreadID
	Prompt         string
}

// AgentSpawnEnd fires on every exit path of a spawn attempt, success or
// failure; NewThreadID is nil on failure.
type AgentSpawnEnd struct {
	CallID         string
	SenderThreadID ids.ThreadID
	NewThreadID    *ids.ThreadID
	Prompt         string
	Status         model.AgentStatus
}

// WaitingBegin fires when a wait/spawn_team/close_team/team_message-family
// call starts waiting on one or more receiver threads.
type WaitingBegin struct {
	CallID            string
	SenderThreadID    ids.ThreadID
	ReceiverThreadIDs []ids.ThreadID
	ReceiverNames     map[ids.ThreadID]string
}

// WaitingEnd fires on every exit path of a waiting call, carrying whatever
// status map was observed at that point.
type WaitingEnd struct {
	CallID         string
	SenderThreadID ids.ThreadID
	Statuses       map[ids.ThreadID]model.AgentStatus
	ReceiverNames  map[ids.ThreadID]string
}

// CloseEnd fires once close_team has finished attempting to shut down its
// selected members.
type CloseEnd struct {
	CallID   string
	TeamID   string
	Statuses map[ids.ThreadID]model.AgentStatus
}

// ResumeBegin fires when resume_agent starts.
type ResumeBegin struct {
	CallID           string
	SenderThreadID   ids.ThreadID
	ReceiverThreadID ids.ThreadID
}

// ResumeEnd fires on every exit path of resume_agent.
type ResumeEnd struct {
	CallID           string
	SenderThreadID   ids.ThreadID
	ReceiverThreadID ids.ThreadID
	Status           model.AgentStatus
}

// Sink receives every event pair the core emits. Implementations must not
// block meaningfully; a UI front-end is expected to buffer or drop, not
// backpressure the core.
type Sink interface {
	AgentSpawnBegin(ctx context.Context, ev AgentSpawnBegin)
	AgentSpawnEnd(ctx context.Context, ev AgentSpawnEnd)
	WaitingBegin(ctx context.Context, ev WaitingBegin)
	WaitingEnd(ctx context.Context, ev WaitingEnd)
	CloseEnd(ctx context.Context, ev CloseEnd)
	ResumeBegin(ctx context.Context, ev ResumeBegin)
	ResumeEnd(ctx context.Context, ev ResumeEnd)
}

// NoopSink discards every event; the default when a caller wires no UI.
type NoopSink struct{}

func (NoopSink) AgentSpawnBegin(context.Context, AgentSpawnBegin) {}
func (NoopSink) AgentSpawnEnd(context.Context, AgentSpawnEnd)     {}
func (NoopSink) WaitingBegin(context.Context, WaitingBegin)       {}
func (NoopSink) WaitingEnd(context.Context, WaitingEnd)           {}
func (NoopSink) CloseEnd(context.Context, CloseEnd)               {}
func (NoopSink) ResumeBegin(context.Context, ResumeBegin)         {}
func (NoopSink) ResumeEnd(context.Context, ResumeEnd)             {}

var _ Sink = NoopSink{}
