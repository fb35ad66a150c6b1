// Package wait implements the any/all agent-status coordinator shared by
// the wait and wait_team tool handlers.
package wait

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentmesh/collabcore/collab/agentcontrol"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

// Mode selects how many receivers must reach a final status before
// Result returns.
type Mode int

const (
	// Any returns as soon as one receiver is final.
	Any Mode = iota
	// All waits until every receiver is final.
	All
)

// StatusPair is one (id, status) observation in a Result, in receiver
// order for All, or a single entry for the triggering agent under Any.
type StatusPair struct {
	ID     ids.ThreadID
	Status model.AgentStatus
}

// Result is the outcome of WaitForAgents.
type Result struct {
	Statuses []StatusPair
	TimedOut bool
}

// NormalizeTimeout clamps a caller-supplied timeout to a non-negative
// millisecond duration; nil means wait indefinitely at this layer. Callers
// above this package are expected to still supply a sensible cap.
func NormalizeTimeout(timeoutMs *int64) time.Duration {
	if timeoutMs == nil {
		return 0
	}
	ms := *timeoutMs
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// ForAgents subscribes to every id's status stream and returns once Mode's
// condition is satisfied or timeout elapses (0 means no deadline). In Any
// mode the result carries only the first agent observed final. In All mode
// every agent appears, in the order of receiverIDs.
func ForAgents(ctx context.Context, control agentcontrol.Control, receiverIDs []ids.ThreadID, timeout time.Duration, mode Mode) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	watches := make([]*agentcontrol.Watch, len(receiverIDs))
	for i, id := range receiverIDs {
		w, err := control.SubscribeStatus(ctx, id)
		if err != nil {
			return Result{}, err
		}
		watches[i] = w
	}

	switch mode {
	case Any:
		return waitAny(ctx, receiverIDs, watches)
	default:
		return waitAll(ctx, receiverIDs, watches)
	}
}

func waitAny(ctx context.Context, ids []ids.ThreadID, watches []*agentcontrol.Watch) (Result, error) {
	type hit struct {
		index  int
		status model.AgentStatus
	}
	hits := make(chan hit, len(watches))
	group, gctx := errgroup.WithContext(ctx)
	for i, w := range watches {
		i, w := i, w
		group.Go(func() error {
			status, ok := agentcontrol.WaitFinal(gctx, w, 0)
			if ok {
				select {
				case hits <- hit{i, status}:
				default:
				}
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() { _ = group.Wait(); close(done) }()

	select {
	case h := <-hits:
		return Result{Statuses: []StatusPair{{ID: ids[h.index], Status: h.status}}}, nil
	case <-done:
		select {
		case h := <-hits:
			return Result{Statuses: []StatusPair{{ID: ids[h.index], Status: h.status}}}, nil
		default:
		}
		return Result{TimedOut: true}, nil
	case <-ctx.Done():
		select {
		case h := <-hits:
			return Result{Statuses: []StatusPair{{ID: ids[h.index], Status: h.status}}}, nil
		default:
		}
		return Result{TimedOut: true}, nil
	}
}

func waitAll(ctx context.Context, receiverIDs []ids.ThreadID, watches []*agentcontrol.Watch) (Result, error) {
	statuses := make([]model.AgentStatus, len(watches))
	group, gctx := errgroup.WithContext(ctx)
	for i, w := range watches {
		i, w := i, w
		group.Go(func() error {
			status, ok := agentcontrol.WaitFinal(gctx, w, 0)
			if !ok {
				statuses[i] = w.Current()
				return context.DeadlineExceeded
			}
			statuses[i] = status
			return nil
		})
	}
	err := group.Wait()

	pairs := make([]StatusPair, len(receiverIDs))
	for i, id := range receiverIDs {
		pairs[i] = StatusPair{ID: id, Status: statuses[i]}
	}
	return Result{Statuses: pairs, TimedOut: err != nil}, nil
}
