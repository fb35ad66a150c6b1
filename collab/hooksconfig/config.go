// Package hooksconfig loads the layered TOML hooks configuration and
// builds the collab/hooks registry from it. Entries may carry a command
// (shell string or argv) or a prompt/model pair, covering all three
// Command/Prompt/Agent handler kinds; an optional `kind` field picks the
// handler explicitly when the fields alone are ambiguous.
package hooksconfig

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/agentmesh/collabcore/collab/hooks"
)

// eventFields lists the 17 per-event arrays a [hooks] table may contain.
var eventFields = []hooks.EventKind{
	hooks.EventSessionStart, hooks.EventSessionEnd, hooks.EventUserPromptSubmit,
	hooks.EventPreToolUse, hooks.EventPermissionReq, hooks.EventNotification,
	hooks.EventPostToolUse, hooks.EventPostToolUseFail, hooks.EventStop,
	hooks.EventTeammateIdle, hooks.EventTaskCompleted, hooks.EventConfigChange,
	hooks.EventSubagentStart, hooks.EventSubagentStop, hooks.EventPreCompact,
	hooks.EventWorktreeCreate, hooks.EventWorktreeRemove,
}

// entryTOML is the raw per-entry shape as it appears on disk.
type entryTOML struct {
	Name          *string     `toml:"name"`
	Kind          *string     `toml:"kind"`    // "command", "prompt", or "agent"; inferred when omitted
	Command       interface{} `toml:"command"` // string (shell) or []string (argv)
	Prompt        *string     `toml:"prompt"`
	Model         *string     `toml:"model"`
	Async         bool        `toml:"async"`
	Timeout       *uint64     `toml:"timeout"`
	StatusMessage *string     `toml:"status_message"`
	Once          bool        `toml:"once"`
	Matcher       matcherTOML `toml:"matcher"`
}

type matcherTOML struct {
	ToolName      *string `toml:"tool_name"`
	ToolNameRegex *string `toml:"tool_name_regex"`
	PromptRegex   *string `toml:"prompt_regex"`
	Matcher       *string `toml:"matcher"`
}

type hooksTableTOML struct {
	SessionStart       []entryTOML `toml:"session_start"`
	SessionEnd         []entryTOML `toml:"session_end"`
	UserPromptSubmit   []entryTOML `toml:"user_prompt_submit"`
	PreToolUse         []entryTOML `toml:"pre_tool_use"`
	PermissionRequest  []entryTOML `toml:"permission_request"`
	Notification       []entryTOML `toml:"notification"`
	PostToolUse        []entryTOML `toml:"post_tool_use"`
	PostToolUseFailure []entryTOML `toml:"post_tool_use_failure"`
	Stop               []entryTOML `toml:"stop"`
	TeammateIdle       []entryTOML `toml:"teammate_idle"`
	TaskCompleted      []entryTOML `toml:"task_completed"`
	ConfigChange       []entryTOML `toml:"config_change"`
	SubagentStart      []entryTOML `toml:"subagent_start"`
	SubagentStop       []entryTOML `toml:"subagent_stop"`
	PreCompact         []entryTOML `toml:"pre_compact"`
	WorktreeCreate     []entryTOML `toml:"worktree_create"`
	WorktreeRemove     []entryTOML `toml:"worktree_remove"`
}

func (h hooksTableTOML) byEvent(kind hooks.EventKind) []entryTOML {
	switch kind {
	case hooks.EventSessionStart:
		return h.SessionStart
	case hooks.EventSessionEnd:
		return h.SessionEnd
	case hooks.EventUserPromptSubmit:
		return h.UserPromptSubmit
	case hooks.EventPreToolUse:
		return h.PreToolUse
	case hooks.EventPermissionReq:
		return h.PermissionRequest
	case hooks.EventNotification:
		return h.Notification
	case hooks.EventPostToolUse:
		return h.PostToolUse
	case hooks.EventPostToolUseFail:
		return h.PostToolUseFailure
	case hooks.EventStop:
		return h.Stop
	case hooks.EventTeammateIdle:
		return h.TeammateIdle
	case hooks.EventTaskCompleted:
		return h.TaskCompleted
	case hooks.EventConfigChange:
		return h.ConfigChange
	case hooks.EventSubagentStart:
		return h.SubagentStart
	case hooks.EventSubagentStop:
		return h.SubagentStop
	case hooks.EventPreCompact:
		return h.PreCompact
	case hooks.EventWorktreeCreate:
		return h.WorktreeCreate
	case hooks.EventWorktreeRemove:
		return h.WorktreeRemove
	default:
		return nil
	}
}

type layerTOML struct {
	Hooks hooksTableTOML `toml:"hooks"`
}

// Layer is one named configuration layer (e.g. "user", "project") holding
// raw TOML text. Layers are applied lowest-precedence-first.
type Layer struct {
	Name string
	TOML string
}

// LoadLayers parses each layer and merges them into a hooks.Registry by
// appending each layer's per-event entries in layer order, lowest
// precedence first, so a later (higher-precedence) layer's entries run
// after an earlier layer's for the same event.
func LoadLayers(layers []Layer) (*hooks.Registry, error) {
	reg := hooks.NewRegistry()
	for _, layer := range layers {
		var parsed layerTOML
		md, err := toml.Decode(layer.TOML, &parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse hooks config for %s: %w", layer.Name, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("unknown keys in hooks config for %s: %s", layer.Name, strings.Join(keys, ", "))
		}
		for _, kind := range eventFields {
			for _, e := range parsed.Hooks.byEvent(kind) {
				h, err := entryToHook(kind, e)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", layer.Name, err)
				}
				reg.Append(kind, h)
			}
		}
	}
	return reg, nil
}

func entryToHook(kind hooks.EventKind, e entryTOML) (hooks.HookConfig, error) {
	name := ""
	if e.Name != nil {
		name = *e.Name
	}
	matcher := hooks.HookMatcher{}
	if e.Matcher.ToolName != nil {
		matcher.ToolName = e.Matcher.ToolName
	}
	if e.Matcher.ToolNameRegex != nil {
		matcher.ToolNameRegex = e.Matcher.ToolNameRegex
	}
	if e.Matcher.PromptRegex != nil {
		matcher.PromptRegex = e.Matcher.PromptRegex
	}
	if e.Matcher.Matcher != nil {
		matcher.Tag = e.Matcher.Matcher
	}

	timeout := uint64(0)
	if e.Timeout != nil {
		timeout = *e.Timeout
	}
	statusMessage := ""
	if e.StatusMessage != nil {
		statusMessage = *e.StatusMessage
	}

	h := hooks.HookConfig{
		Name:          name,
		Event:         kind,
		Async:         e.Async,
		TimeoutSec:    timeout,
		StatusMessage: statusMessage,
		Once:          e.Once,
		Matcher:       matcher,
	}

	handler, err := handlerKind(e)
	if err != nil {
		return hooks.HookConfig{}, err
	}
	h.Handler = handler
	switch handler {
	case hooks.HandlerPrompt, hooks.HandlerAgent:
		if e.Prompt != nil {
			h.Prompt = *e.Prompt
		}
		if e.Model != nil {
			h.Model = *e.Model
		}
	default:
		argv, err := commandArgv(e.Command)
		if err != nil {
			return hooks.HookConfig{}, err
		}
		h.Argv = argv
	}
	return h, nil
}

// handlerKind resolves which of the three executor shapes an entry
// configures. An explicit `kind` wins; without one, a `prompt` field means a
// prompt hook, a `model` alone means an agent hook, and anything else is a
// command hook. The explicit form is the only way to configure an agent
// hook that carries its own prompt, since `prompt` + `model` together would
// otherwise read as a prompt hook with a model override.
func handlerKind(e entryTOML) (hooks.HandlerKind, error) {
	if e.Kind != nil {
		switch *e.Kind {
		case "command":
			return hooks.HandlerCommand, nil
		case "prompt":
			return hooks.HandlerPrompt, nil
		case "agent":
			return hooks.HandlerAgent, nil
		default:
			return 0, fmt.Errorf("hook kind must be \"command\", \"prompt\", or \"agent\", got %q", *e.Kind)
		}
	}
	switch {
	case e.Prompt != nil:
		return hooks.HandlerPrompt, nil
	case e.Model != nil:
		return hooks.HandlerAgent, nil
	default:
		return hooks.HandlerCommand, nil
	}
}

// commandArgv resolves the two accepted command shapes: a free-form
// shell string is trimmed and wrapped by ShellCommandArgv (`sh -c <string>`,
// or `cmd /C <string>` on Windows); a literal argv passes
// through unchanged; an empty/whitespace-only string yields an empty argv
// (a no-op hook, not a failure).
func commandArgv(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		return ShellCommandArgv(trimmed), nil
	case []interface{}:
		argv := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command argv entries must be strings")
			}
			argv = append(argv, s)
		}
		return argv, nil
	default:
		return nil, fmt.Errorf("command must be a shell string or an argv array")
	}
}
