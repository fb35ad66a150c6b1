package events

import (
	"context"

	"github.com/agentmesh/collabcore/collab/telemetry"
)

// LogSink renders every event as a structured log line through a
// telemetry.Logger. A richer front-end would replace this; it is the sink
// a standalone binary (cmd/collabserve) wires by default.
type LogSink struct {
	Logger telemetry.Logger
}

var _ Sink = LogSink{}

func (s LogSink) AgentSpawnBegin(ctx context.Context, ev AgentSpawnBegin) {
	s.Logger.Info(ctx, "agent spawn begin", "call_id", ev.CallID, "sender", ev.SenderThreadID.Short())
}

func (s LogSink) AgentSpawnEnd(ctx context.Context, ev AgentSpawnEnd) {
	newID := ""
	if ev.NewThreadID != nil {
		newID = ev.NewThreadID.Short()
	}
	s.Logger.Info(ctx, "agent spawn end", "call_id", ev.CallID, "new_thread_id", newID, "status", ev.Status.Kind.String())
}

func (s LogSink) WaitingBegin(ctx context.Context, ev WaitingBegin) {
	s.Logger.Info(ctx, "waiting begin", "call_id", ev.CallID, "receivers", len(ev.ReceiverThreadIDs))
}

func (s LogSink) WaitingEnd(ctx context.Context, ev WaitingEnd) {
	s.Logger.Info(ctx, "waiting end", "call_id", ev.CallID, "statuses", len(ev.Statuses))
}

func (s LogSink) CloseEnd(ctx context.Context, ev CloseEnd) {
	s.Logger.Info(ctx, "close end", "call_id", ev.CallID, "team_id", ev.TeamID)
}

func (s LogSink) ResumeBegin(ctx context.Context, ev ResumeBegin) {
	s.Logger.Info(ctx, "resume begin", "call_id", ev.CallID, "receiver", ev.ReceiverThreadID.Short())
}

func (s LogSink) ResumeEnd(ctx context.Context, ev ResumeEnd) {
	s.Logger.Info(ctx, "resume end", "call_id", ev.CallID, "status", ev.Status.Kind.String())
}
