package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/agentcontrol"
	"github.com/agentmesh/collabcore/collab/events"
	"github.com/agentmesh/collabcore/collab/hooks"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/spawn"
	"github.com/agentmesh/collabcore/collab/team"
	"github.com/agentmesh/collabcore/collab/telemetry"
	"github.com/agentmesh/collabcore/collab/tools"
	"github.com/agentmesh/collabcore/collab/worktree"
)

// recordingSink counts every event pair it sees, used to assert a handler
// emitted its begin/end events rather than short-circuiting past them.
type recordingSink struct {
	waitingBegin, waitingEnd, closeEnd, spawnBegin, spawnEnd, resumeBegin, resumeEnd int
}

func (s *recordingSink) AgentSpawnBegin(context.Context, events.AgentSpawnBegin) { s.spawnBegin++ }
func (s *recordingSink) AgentSpawnEnd(context.Context, events.AgentSpawnEnd)     { s.spawnEnd++ }
func (s *recordingSink) WaitingBegin(context.Context, events.WaitingBegin)       { s.waitingBegin++ }
func (s *recordingSink) WaitingEnd(context.Context, events.WaitingEnd)           { s.waitingEnd++ }
func (s *recordingSink) CloseEnd(context.Context, events.CloseEnd)               { s.closeEnd++ }
func (s *recordingSink) ResumeBegin(context.Context, events.ResumeBegin)         { s.resumeBegin++ }
func (s *recordingSink) ResumeEnd(context.Context, events.ResumeEnd)             { s.resumeEnd++ }

var _ events.Sink = (*recordingSink)(nil)

func newHarness(t *testing.T) (*tools.Env, *agentcontrol.Fake, *recordingSink) {
	t.Helper()
	home := t.TempDir()
	fake := agentcontrol.NewFake(0)
	sink := &recordingSink{}
	env := &tools.Env{
		Home:  home,
		Teams: team.NewRegistry(),
		Spawn: spawn.Deps{
			Control:  fake,
			Worktree: worktree.NewManager(home),
			Hooks:    hooks.NewDispatcher(hooks.NewRegistry(), hooks.Executors{}, telemetry.NewNoopBundle()),
			Sink:     sink,
			MaxDepth: 4,
		},
		Sink: sink,
	}
	return env, fake, sink
}

func argsJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	return buf
}

func testCaller(thread ids.ThreadID) tools.Caller {
	return tools.Caller{ThreadID: thread, RootSessionID: thread, ChildDepth: 1, Cwd: "/work"}
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}
