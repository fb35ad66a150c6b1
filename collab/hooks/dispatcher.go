package hooks

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agentmesh/collabcore/collab/telemetry"
)

// DispatchOutcome is the net result of firing every hook matching one event:
// either the operation proceeds, or it must abort with a reason.
type DispatchOutcome struct {
	Aborted bool
	Reason  string
	// Errors collects every hook's error result (parse/timeout/spawn
	// failures); these never by themselves abort the operation.
	Errors []error
}

// Dispatcher fires the hooks registered for each event kind in
// configuration order: synchronous hooks run sequentially, async hooks may
// run concurrently. A FailedAbort result stops the remaining hooks and
// aborts the triggering operation; FailedContinue is logged and dispatch
// proceeds.
type Dispatcher struct {
	Registry  *Registry
	Executors Executors
	Telemetry telemetry.Bundle
}

// NewDispatcher builds a Dispatcher over reg.
func NewDispatcher(reg *Registry, ex Executors, tel telemetry.Bundle) *Dispatcher {
	return &Dispatcher{Registry: reg, Executors: ex, Telemetry: tel}
}

// Dispatch fires every hook matching env.Event's kind, in configuration
// order. Synchronous hooks run one at a time; each contiguous run of
// async hooks among the matches runs concurrently via errgroup,
// mirroring "async hooks may run concurrently" without reordering sync
// hooks relative to each other.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) DispatchOutcome {
	if d.Registry == nil {
		return DispatchOutcome{}
	}
	matches := d.Registry.Matching(env.Event.Kind(), env.Event)
	if len(matches) == 0 {
		return DispatchOutcome{}
	}

	payload, err := json.Marshal(envelopeWire(env))
	if err != nil {
		return DispatchOutcome{Errors: []error{fmt.Errorf("marshal hook payload: %w", err)}}
	}

	var outcome DispatchOutcome
	i := 0
	for i < len(matches) {
		h := matches[i]
		if !h.Async {
			res := d.execute(ctx, h, payload)
			d.record(ctx, h, res)
			if reason, ok := abortFrom(res); ok {
				outcome.Aborted = true
				outcome.Reason = reason
				return outcome
			}
			if res.Outcome == OutcomeError {
				outcome.Errors = append(outcome.Errors, res.Err)
			}
			i++
			continue
		}

		// Run the contiguous run of async hooks starting at i concurrently.
		j := i
		for j < len(matches) && matches[j].Async {
			j++
		}
		group, gctx := errgroup.WithContext(ctx)
		results := make([]Result, j-i)
		for k := i; k < j; k++ {
			k := k
			h := matches[k]
			group.Go(func() error {
				results[k-i] = d.execute(gctx, h, payload)
				return nil
			})
		}
		_ = group.Wait() // executors never return a Go error; results carry outcome
		for k := i; k < j; k++ {
			h := matches[k]
			res := results[k-i]
			d.record(ctx, h, res)
			if reason, ok := abortFrom(res); ok {
				outcome.Aborted = true
				outcome.Reason = reason
				return outcome
			}
			if res.Outcome == OutcomeError {
				outcome.Errors = append(outcome.Errors, res.Err)
			}
		}
		i = j
	}
	return outcome
}

// abortFrom reports whether res represents a FailedAbort-equivalent
// outcome. Only an explicit block decision aborts — hook errors
// (parse/timeout/spawn) are FailedContinue, logged but never blocking
// (see OutcomeError).
func abortFrom(res Result) (reason string, ok bool) {
	if res.Outcome == OutcomeBlocked {
		return res.Reason, true
	}
	return "", false
}

func (d *Dispatcher) execute(ctx context.Context, h *HookConfig, payload []byte) Result {
	var res Result
	switch h.Handler {
	case HandlerCommand:
		res = ExecuteCommand(ctx, *h, payload)
	case HandlerPrompt:
		res = d.Executors.ExecutePrompt(ctx, *h, payload)
	case HandlerAgent:
		res = d.Executors.ExecuteAgent(ctx, *h, payload)
	default:
		res = Result{Outcome: OutcomeError, Err: fmt.Errorf("hook %q has unknown handler kind", h.Name)}
	}
	if res.Outcome != OutcomeError {
		d.Registry.markFired(h)
	}
	return res
}

func (d *Dispatcher) record(ctx context.Context, h *HookConfig, res Result) {
	if d.Telemetry.Logger == nil {
		return
	}
	switch res.Outcome {
	case OutcomeError:
		d.Telemetry.Logger.Warn(ctx, "hook failed, continuing", "hook", h.Name, "event", h.Event, "error", res.Err)
	case OutcomeBlocked:
		d.Telemetry.Logger.Info(ctx, "hook blocked operation", "hook", h.Name, "event", h.Event, "reason", res.Reason)
	}
}

// wireEnvelope is the JSON shape handed to command hooks on stdin and used
// as the prompt/agent hook "$ARGUMENTS" payload.
type wireEnvelope struct {
	SessionID string `json:"session_id"`
	Cwd       string `json:"cwd"`
	EventType string `json:"event_type"`
	Event     Event  `json:"event"`
}

func envelopeWire(env Envelope) wireEnvelope {
	return wireEnvelope{
		SessionID: env.SessionID.String(),
		Cwd:       env.Cwd,
		EventType: string(env.Event.Kind()),
		Event:     env.Event,
	}
}
