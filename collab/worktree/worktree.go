// Package worktree manages the isolated working directories a spawned agent
// may be bound to for its lifetime: a copy-on-spawn checkout, a process-wide
// lease table keyed by agent id, and teardown on agent termination.
package worktree

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/telemetry"
)

// Manager owns the process-wide table of active leases and the root
// directory under which per-agent worktrees are created. Safe for
// concurrent use.
type Manager struct {
	mu      sync.Mutex
	leases  map[ids.ThreadID]model.WorktreeLease
	watches map[ids.ThreadID]*fsnotify.Watcher
	root    string

	// Logger, when set, receives a warning if a leased worktree directory
	// is removed out from under the process. Optional.
	Logger telemetry.Logger
}

// NewManager builds a Manager whose worktrees live under
// <home>/worktrees/<id>, where id is the one passed to Create (spawn passes
// a provisional id there, so the directory name is not the final agent id).
func NewManager(home string) *Manager {
	return &Manager{
		leases:  make(map[ids.ThreadID]model.WorktreeLease),
		watches: make(map[ids.ThreadID]*fsnotify.Watcher),
		root:    filepath.Join(home, "worktrees"),
	}
}

// Create copies origin recursively into a fresh directory under the
// manager's root and returns an unregistered lease describing it. The
// lease is not yet visible to Lookup/Teardown until Register is called:
// the worktree is created before the agent thread exists, and a failure
// between Create and the agent actually spawning must not leave a phantom
// lease behind.
func (m *Manager) Create(ctx context.Context, agentID ids.ThreadID, origin string) (model.WorktreeLease, error) {
	dest := filepath.Join(m.root, agentID.String())
	if err := copyTree(origin, dest); err != nil {
		_ = os.RemoveAll(dest)
		return model.WorktreeLease{}, collaberr.Persistence(fmt.Sprintf("failed to create worktree for agent %s", agentID.Short()), err)
	}
	return model.WorktreeLease{AgentID: agentID, WorktreePath: dest, OriginCwd: origin}, nil
}

// Register makes lease visible to Lookup/Teardown. Callers invoke it only
// after a spawn has fully succeeded.
// Registration also starts a best-effort fsnotify watch on the worktree
// root so an out-from-under removal can be logged rather than silently
// desynchronizing the lease table.
func (m *Manager) Register(lease model.WorktreeLease) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[lease.AgentID] = lease
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(lease.WorktreePath); err == nil {
			m.watches[lease.AgentID] = w
			go m.drainWatch(lease, w)
		} else {
			_ = w.Close()
		}
	}
}

// drainWatch consumes a lease's watcher events until the watcher is closed
// by Teardown, logging a removal of the watched root itself.
func (m *Manager) drainWatch(lease model.WorktreeLease, w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Remove) && ev.Name == lease.WorktreePath && m.Logger != nil {
				m.Logger.Warn(context.Background(), "leased worktree removed out from under the process",
					"agent_id", lease.AgentID.Short(), "worktree_path", lease.WorktreePath)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

// Lookup returns the lease bound to agentID, if any.
func (m *Manager) Lookup(agentID ids.ThreadID) (model.WorktreeLease, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lease, ok := m.leases[agentID]
	return lease, ok
}

// Teardown removes agentID's worktree directory and drops its lease.
// Idempotent: tearing down an agent with no lease is a no-op success.
func (m *Manager) Teardown(ctx context.Context, agentID ids.ThreadID) error {
	m.mu.Lock()
	lease, ok := m.leases[agentID]
	delete(m.leases, agentID)
	if w, watched := m.watches[agentID]; watched {
		_ = w.Close()
		delete(m.watches, agentID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.RemoveAll(lease.WorktreePath); err != nil {
		return collaberr.Persistence(fmt.Sprintf("failed to remove worktree for agent %s", agentID.Short()), err)
	}
	return nil
}

// Abandon removes lease's directory without touching the lease table —
// used when a spawn attempt fails between Create and Register, since the
// lease was never visible to Lookup/Teardown in the first place.
func (m *Manager) Abandon(lease model.WorktreeLease) error {
	if lease.WorktreePath == "" {
		return nil
	}
	if err := os.RemoveAll(lease.WorktreePath); err != nil {
		return collaberr.Persistence(fmt.Sprintf("failed to abandon worktree for agent %s", lease.AgentID.Short()), err)
	}
	return nil
}

// copyTree recursively copies src into dst, creating dst if needed.
// Symlinks are copied as symlinks; regular files are copied byte for byte.
func copyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dst)
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := copyTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return copyFile(src, dst, info.Mode().Perm())
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
