package hooks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmesh/collabcore/collab/hooks"
)

func strp(s string) *string { return &s }

func TestRegistry_Layering_ConcatenatesInLayerOrder(t *testing.T) {
	reg := hooks.NewRegistry()
	reg.Append(hooks.EventPreToolUse, hooks.HookConfig{Name: "user-pre"})
	reg.Append(hooks.EventStop, hooks.HookConfig{Name: "user-stop"})
	reg.Append(hooks.EventStop, hooks.HookConfig{Name: "project-stop"})

	assert.Equal(t, 1, reg.Count(hooks.EventPreToolUse))
	assert.Equal(t, 2, reg.Count(hooks.EventStop))

	matches := reg.Matching(hooks.EventStop, hooks.SessionStartEvent{})
	assert.Len(t, matches, 2)
	assert.Equal(t, "user-stop", matches[0].Name)
	assert.Equal(t, "project-stop", matches[1].Name)
}

func TestHookMatcher_ToolNameExact(t *testing.T) {
	m := hooks.HookMatcher{ToolName: strp("shell")}
	assert.True(t, m.Matches(hooks.PreToolUseEvent{Tool: "shell"}))
	assert.False(t, m.Matches(hooks.PreToolUseEvent{Tool: "other"}))
}

func TestHookMatcher_ToolNameRegex(t *testing.T) {
	m := hooks.HookMatcher{ToolNameRegex: strp("^shell$")}
	assert.True(t, m.Matches(hooks.PreToolUseEvent{Tool: "shell"}))
	assert.False(t, m.Matches(hooks.PreToolUseEvent{Tool: "shell2"}))
}

func TestHookMatcher_NoToolNameOnEventTriviallyFails(t *testing.T) {
	m := hooks.HookMatcher{ToolName: strp("shell")}
	assert.False(t, m.Matches(hooks.SessionStartEvent{}))
}

func TestHookMatcher_PromptRegex(t *testing.T) {
	m := hooks.HookMatcher{PromptRegex: strp("ship")}
	assert.True(t, m.Matches(hooks.UserPromptSubmitEvent{Text: "please ship it"}))
	assert.False(t, m.Matches(hooks.UserPromptSubmitEvent{Text: "please test it"}))
	assert.False(t, m.Matches(hooks.PreToolUseEvent{Tool: "shell"}))
}

func TestRegistry_OnceHookFiresAtMostOnce(t *testing.T) {
	reg := hooks.NewRegistry()
	reg.Append(hooks.EventSessionStart, hooks.HookConfig{Name: "once-hook", Once: true})

	matches := reg.Matching(hooks.EventSessionStart, hooks.SessionStartEvent{})
	assert.Len(t, matches, 1)

	dispatcher := hooks.NewDispatcher(reg, hooks.Executors{}, noopTelemetry())
	dispatcher.Dispatch(ctxBg(), hooks.Envelope{Event: hooks.SessionStartEvent{Source: "cli"}})

	matchesAfter := reg.Matching(hooks.EventSessionStart, hooks.SessionStartEvent{})
	assert.Len(t, matchesAfter, 0)
}
