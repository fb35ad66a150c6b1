package hooks

import (
	"regexp"
	"strings"
	"sync"
)

// HandlerKind tags which of the three hook executor shapes a HookConfig
// uses.
type HandlerKind int

const (
	HandlerCommand HandlerKind = iota
	HandlerPrompt
	HandlerAgent
)

// HookMatcher applies to an event iff every populated predicate matches.
type HookMatcher struct {
	ToolName      *string
	ToolNameRegex *string
	PromptRegex   *string
	Tag           *string
}

// Matches reports whether m applies to ev.
func (m HookMatcher) Matches(ev Event) bool {
	if m.ToolName != nil {
		tool, ok := ev.ToolName()
		if !ok || tool != *m.ToolName {
			return false
		}
	}
	if m.ToolNameRegex != nil {
		tool, ok := ev.ToolName()
		if !ok {
			return false
		}
		re, err := regexp.Compile(*m.ToolNameRegex)
		if err != nil || !re.MatchString(tool) {
			return false
		}
	}
	if m.PromptRegex != nil {
		prompt, ok := ev.Prompt()
		if !ok {
			return false
		}
		re, err := regexp.Compile(*m.PromptRegex)
		if err != nil || !re.MatchString(prompt) {
			return false
		}
	}
	// Tag is an arbitrary caller-supplied label with no corresponding event
	// field to compare against; it is opaque metadata, not a predicate,
	// so its presence alone never fails the match.
	return true
}

// HookConfig is one configured hook entry.
type HookConfig struct {
	Name          string
	Event         EventKind
	Handler       HandlerKind
	Argv          []string // Command
	Prompt        string   // Prompt, Agent
	Model         string   // Prompt, Agent
	Async         bool
	TimeoutSec    uint64
	StatusMessage string
	Once          bool
	Matcher       HookMatcher

	fired bool // guards Once; protected by the owning Registry's mutex
}

// Registry holds the layered, merged hook configuration: an ordered
// sequence of HookConfig per event kind.
type Registry struct {
	mu      sync.Mutex
	byEvent map[EventKind][]*HookConfig
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byEvent: make(map[EventKind][]*HookConfig)}
}

// Append adds h to the end of kind's ordered sequence, so layered
// configuration merges by concatenation.
func (r *Registry) Append(kind EventKind, h HookConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.Event = kind
	r.byEvent[kind] = append(r.byEvent[kind], &h)
}

// Matching returns, in configuration order, the hooks registered for kind
// whose matcher applies to ev and that have not already exhausted a `once`
// firing.
func (r *Registry) Matching(kind EventKind, ev Event) []*HookConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*HookConfig
	for _, h := range r.byEvent[kind] {
		if h.Once && h.fired {
			continue
		}
		if h.Matcher.Matches(ev) {
			out = append(out, h)
		}
	}
	return out
}

// markFired records a once-hook as having fired. Called by the dispatcher
// after a successful (non-erroring) execution.
func (r *Registry) markFired(h *HookConfig) {
	if !h.Once {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h.fired = true
}

// Count returns the number of configured hooks for kind, used by tests
// asserting the layering property directly.
func (r *Registry) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEvent[kind])
}

// trimReason normalizes a decision's reason string: empty or
// whitespace-only becomes the canonical block reason.
func trimReason(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return "hook blocked operation"
	}
	return reason
}
