package agentcontrol

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

// Fake is an in-memory Control implementation for tests: a single mutex
// guarding a plain map of agent states.
type Fake struct {
	mu       sync.Mutex
	agents   map[ids.ThreadID]*fakeAgent
	capacity int // 0 means unlimited
	spawned  int
	attempts int

	// OnSpawn lets a test script the result a spawn produces immediately
	// (e.g. pre-seed a Completed status so a wait resolves right away).
	OnSpawn func(id ids.ThreadID, cfg Config)
}

type fakeAgent struct {
	watch      *Watch
	rollout    string
	hasRollout bool
}

// NewFake builds an empty Fake. capacity <= 0 means unlimited spawn slots.
func NewFake(capacity int) *Fake {
	return &Fake{agents: make(map[ids.ThreadID]*fakeAgent), capacity: capacity}
}

var _ Control = (*Fake)(nil)

// SpawnAttempts returns how many times SpawnAgentThread has been called,
// including attempts that failed with ErrAgentLimitReached — used by tests
// asserting that a rejected-before-spawn request never reaches the control
// surface.
func (f *Fake) SpawnAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *Fake) SpawnAgentThread(ctx context.Context, cfg Config, source *SpawnSource) (ids.ThreadID, NotificationSource, error) {
	f.mu.Lock()
	f.attempts++
	if f.capacity > 0 && f.spawned >= f.capacity {
		f.mu.Unlock()
		return ids.ThreadID{}, NotificationSource{}, ErrAgentLimitReached
	}
	id := ids.NewThreadID()
	f.agents[id] = &fakeAgent{watch: newWatch(model.AgentStatus{Kind: model.AgentPendingInit})}
	f.spawned++
	f.mu.Unlock()

	if f.OnSpawn != nil {
		f.OnSpawn(id, cfg)
	}
	return id, NotificationSource{Token: id.String()}, nil
}

func (f *Fake) SendSpawnInput(ctx context.Context, id ids.ThreadID, items []model.InputItem, source NotificationSource) error {
	f.mu.Lock()
	a, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("agentcontrol: unknown agent %s", id)
	}
	a.watch.set(model.AgentStatus{Kind: model.AgentRunning})
	return nil
}

func (f *Fake) SendInput(ctx context.Context, id ids.ThreadID, items []model.InputItem, interrupt bool) (string, error) {
	f.mu.Lock()
	_, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("agentcontrol: unknown agent %s", id)
	}
	return ids.NewThreadID().String(), nil
}

func (f *Fake) GetStatus(ctx context.Context, id ids.ThreadID) model.AgentStatus {
	f.mu.Lock()
	a, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return model.AgentStatus{Kind: model.AgentNotFound}
	}
	return a.watch.Current()
}

func (f *Fake) SubscribeStatus(ctx context.Context, id ids.ThreadID) (*Watch, error) {
	f.mu.Lock()
	a, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("agentcontrol: unknown agent %s", id)
	}
	return a.watch, nil
}

func (f *Fake) ShutdownAgent(ctx context.Context, id ids.ThreadID) error {
	f.mu.Lock()
	a, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	a.watch.set(model.AgentStatus{Kind: model.AgentShutdown})
	return nil
}

func (f *Fake) ResumeAgentFromRollout(ctx context.Context, cfg Config, id ids.ThreadID, source SpawnSource) (ids.ThreadID, error) {
	f.mu.Lock()
	if f.capacity > 0 && f.spawned >= f.capacity {
		f.mu.Unlock()
		return ids.ThreadID{}, ErrAgentLimitReached
	}
	a, ok := f.agents[id]
	if !ok {
		a = &fakeAgent{watch: newWatch(model.AgentStatus{})}
		f.agents[id] = a
		f.spawned++
	}
	f.mu.Unlock()
	a.watch.set(model.AgentStatus{Kind: model.AgentRunning})
	return id, nil
}

func (f *Fake) InjectDeveloperMessageWithoutTurn(ctx context.Context, id ids.ThreadID, text string) error {
	f.mu.Lock()
	_, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("agentcontrol: unknown agent %s", id)
	}
	return nil
}

func (f *Fake) RolloutPath(ctx context.Context, id ids.ThreadID) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.agents[id]
	if !ok || !a.hasRollout {
		return "", false, nil
	}
	return a.rollout, true, nil
}

// SetRollout lets a test point id's rollout at an existing file path and
// mark the agent Completed with finalMessage, mirroring an agent that
// finished a turn and wrote its rollout.
func (f *Fake) SetRollout(id ids.ThreadID, path, finalMessage string) {
	f.mu.Lock()
	a, ok := f.agents[id]
	f.mu.Unlock()
	if !ok {
		return
	}
	a.rollout = path
	a.hasRollout = true
	a.watch.set(model.AgentStatus{Kind: model.AgentCompleted, Message: finalMessage})
}

// Reap forgets every agent whose status is already final, freeing its slot
// (GetStatus then reports NotFound for it), and returns the count reaped — the "reap finished agents for slots" retry path spawn/resume
// use on AgentLimitReached.
func (f *Fake) Reap(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, a := range f.agents {
		if a.watch.Current().IsFinal() {
			delete(f.agents, id)
			f.spawned--
			n++
		}
	}
	return n
}
