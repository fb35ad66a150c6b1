// Package taskboard implements the per-team claimable work list: one JSON
// file per task under a team's tasks/ directory, a team-scoped lock
// guarding any scan/claim/complete sequence, and an additional per-task
// completion lock so that the hook fired by a successful completion runs
// exactly once even under concurrent callers.
package taskboard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/fsutil"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

const tasksDirName = "tasks"

// Dir returns the tasks directory for a team, rooted under home.
func Dir(home, teamID string) string {
	return filepath.Join(home, "teams", teamID, tasksDirName)
}

func taskPath(home, teamID, taskID string) string {
	return filepath.Join(Dir(home, teamID), taskID+".json")
}

func tasksLockPath(home, teamID string) string {
	return filepath.Join(Dir(home, teamID), "tasks.lock")
}

func completionLockPath(home, teamID, taskID string) string {
	return filepath.Join(Dir(home, teamID), taskID+".complete.lock")
}

func persistenceErr(action, teamID string, err error) error {
	return collaberr.Persistence(fmt.Sprintf("failed to %s tasks for team %q", action, teamID), err)
}

func notFound(taskID string) error {
	return collaberr.Validation("task `%s` not found", taskID)
}

func lockTasks(ctx context.Context, home, teamID string) (*fsutil.Lock, error) {
	if err := os.MkdirAll(Dir(home, teamID), 0o755); err != nil {
		return nil, persistenceErr("create", teamID, err)
	}
	lock, err := fsutil.LockExclusive(ctx, tasksLockPath(home, teamID))
	if err != nil {
		return nil, persistenceErr("lock", teamID, err)
	}
	return lock, nil
}

func lockCompletion(ctx context.Context, home, teamID, taskID string) (*fsutil.Lock, error) {
	if err := os.MkdirAll(Dir(home, teamID), 0o755); err != nil {
		return nil, persistenceErr("create", teamID, err)
	}
	lock, err := fsutil.LockExclusive(ctx, completionLockPath(home, teamID, taskID))
	if err != nil {
		return nil, persistenceErr("lock completion for", teamID, err)
	}
	return lock, nil
}

func readTask(home, teamID, taskID string) (model.PersistedTask, error) {
	raw, err := os.ReadFile(taskPath(home, teamID, taskID))
	if os.IsNotExist(err) {
		return model.PersistedTask{}, notFound(taskID)
	}
	if err != nil {
		return model.PersistedTask{}, persistenceErr("read", teamID, err)
	}
	var task model.PersistedTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return model.PersistedTask{}, persistenceErr("parse", teamID, err)
	}
	return task, nil
}

func writeTask(home, teamID string, task model.PersistedTask) error {
	if err := fsutil.WriteJSONAtomic(taskPath(home, teamID, task.ID), task); err != nil {
		return persistenceErr("write", teamID, err)
	}
	return nil
}

// readAllLocked lists every task file under the team's tasks directory,
// sorted by CreatedAt (ties broken by ID) to give claim_next's scan a
// stable, deterministic order. Claim and ClaimNext call it with the tasks
// lock held; ReadAll and List call it without taking the lock.
func readAllLocked(home, teamID string) ([]model.PersistedTask, error) {
	entries, err := os.ReadDir(Dir(home, teamID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceErr("list", teamID, err)
	}
	var tasks []model.PersistedTask
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		taskID := name[:len(name)-len(".json")]
		task, err := readTask(home, teamID, taskID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt != tasks[j].CreatedAt {
			return tasks[i].CreatedAt < tasks[j].CreatedAt
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// ReadAll returns every task currently on the board, in stored order.
func ReadAll(home, teamID string) ([]model.PersistedTask, error) {
	return readAllLocked(home, teamID)
}

func dependenciesSatisfied(task model.PersistedTask, all []model.PersistedTask) bool {
	if len(task.Dependencies) == 0 {
		return true
	}
	states := make(map[string]model.TaskState, len(all))
	for _, t := range all {
		states[t.ID] = t.State
	}
	for dep, required := range task.Dependencies {
		if !required {
			continue
		}
		if states[dep] != model.TaskCompleted {
			return false
		}
	}
	return true
}

// Seed writes the initial task set for a freshly spawned team. Each task is
// written independently; a failure partway through leaves whatever tasks
// had already been written in place (spawn_team's caller decides how to
// handle a partial seed).
func Seed(ctx context.Context, home, teamID string, tasks []model.PersistedTask) error {
	lock, err := lockTasks(ctx, home, teamID)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	for _, task := range tasks {
		if err := writeTask(home, teamID, task); err != nil {
			return err
		}
	}
	return nil
}

func authorize(task model.PersistedTask, callerAgentID ids.ThreadID, isLead bool, validMembers map[ids.ThreadID]bool) error {
	if !validMembers[task.Assignee.AgentID] {
		return collaberr.Validation("task `%s` is assigned to a removed team member", task.ID)
	}
	if !isLead && task.Assignee.AgentID != callerAgentID {
		return collaberr.Validation("task `%s` is assigned to another teammate", task.ID)
	}
	return nil
}

// Claim transitions a Pending task to Claimed. The caller must be the
// task's assignee or the team lead; the task must be Pending and every
// dependency must be Completed.
func Claim(ctx context.Context, home, teamID, taskID string, callerAgentID ids.ThreadID, isLead bool, validMembers map[ids.ThreadID]bool) (model.PersistedTask, error) {
	lock, err := lockTasks(ctx, home, teamID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	defer lock.Unlock()

	task, err := readTask(home, teamID, taskID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	if err := authorize(task, callerAgentID, isLead, validMembers); err != nil {
		return model.PersistedTask{}, err
	}
	switch task.State {
	case model.TaskClaimed:
		return model.PersistedTask{}, collaberr.Validation("task `%s` is already claimed", task.ID)
	case model.TaskCompleted:
		return model.PersistedTask{}, collaberr.Validation("task `%s` is already completed", task.ID)
	}

	all, err := readAllLocked(home, teamID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	if !dependenciesSatisfied(task, all) {
		return model.PersistedTask{}, collaberr.Validation("task `%s` has unresolved dependencies", task.ID)
	}

	task.State = model.TaskClaimed
	task.UpdatedAt = fsutil.NowUnixSeconds()
	if err := writeTask(home, teamID, task); err != nil {
		return model.PersistedTask{}, err
	}
	return task, nil
}

// ClaimNext scans tasks in stored order and claims the first Pending task
// whose dependencies are all satisfied, whose assignee is still a current
// team member, and which matches memberFilter (when non-nil). It reports
// ok=false rather than an error when no eligible task exists.
func ClaimNext(ctx context.Context, home, teamID string, memberFilter *model.TaskAssignee, validMembers map[ids.ThreadID]bool) (task model.PersistedTask, ok bool, err error) {
	lock, err := lockTasks(ctx, home, teamID)
	if err != nil {
		return model.PersistedTask{}, false, err
	}
	defer lock.Unlock()

	tasks, err := readAllLocked(home, teamID)
	if err != nil {
		return model.PersistedTask{}, false, err
	}

	for _, candidate := range tasks {
		if candidate.State != model.TaskPending {
			continue
		}
		if !validMembers[candidate.Assignee.AgentID] {
			continue
		}
		if memberFilter != nil && (candidate.Assignee.Name != memberFilter.Name || candidate.Assignee.AgentID != memberFilter.AgentID) {
			continue
		}
		if !dependenciesSatisfied(candidate, tasks) {
			continue
		}
		candidate.State = model.TaskClaimed
		candidate.UpdatedAt = fsutil.NowUnixSeconds()
		if err := writeTask(home, teamID, candidate); err != nil {
			return model.PersistedTask{}, false, err
		}
		return candidate, true, nil
	}
	return model.PersistedTask{}, false, nil
}

// Complete transitions a Claimed (or Pending) task to Completed. onPreCommit
// runs with the per-task completion lock held but the team-scoped tasks
// lock released, so it may safely call back into other task-board or hook
// operations; returning an error from onPreCommit aborts the completion and
// leaves the task's state untouched (the "FailedAbort" hook outcome).
func Complete(ctx context.Context, home, teamID, taskID string, callerAgentID ids.ThreadID, isLead bool, validMembers map[ids.ThreadID]bool, onPreCommit func(model.PersistedTask) error) (model.PersistedTask, error) {
	completionLock, err := lockCompletion(ctx, home, teamID, taskID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	defer completionLock.Unlock()

	task, err := readAndAuthorizeForCompletion(ctx, home, teamID, taskID, callerAgentID, isLead, validMembers)
	if err != nil {
		return model.PersistedTask{}, err
	}

	if onPreCommit != nil {
		if err := onPreCommit(task); err != nil {
			return model.PersistedTask{}, err
		}
	}

	return commitCompletion(ctx, home, teamID, taskID, callerAgentID, isLead, validMembers)
}

func readAndAuthorizeForCompletion(ctx context.Context, home, teamID, taskID string, callerAgentID ids.ThreadID, isLead bool, validMembers map[ids.ThreadID]bool) (model.PersistedTask, error) {
	lock, err := lockTasks(ctx, home, teamID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	defer lock.Unlock()

	task, err := readTask(home, teamID, taskID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	if err := authorize(task, callerAgentID, isLead, validMembers); err != nil {
		return model.PersistedTask{}, err
	}
	if task.State == model.TaskCompleted {
		return model.PersistedTask{}, collaberr.Validation("task `%s` is already completed", task.ID)
	}
	return task, nil
}

func commitCompletion(ctx context.Context, home, teamID, taskID string, callerAgentID ids.ThreadID, isLead bool, validMembers map[ids.ThreadID]bool) (model.PersistedTask, error) {
	lock, err := lockTasks(ctx, home, teamID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	defer lock.Unlock()

	task, err := readTask(home, teamID, taskID)
	if err != nil {
		return model.PersistedTask{}, err
	}
	if err := authorize(task, callerAgentID, isLead, validMembers); err != nil {
		return model.PersistedTask{}, err
	}
	if task.State == model.TaskCompleted {
		return model.PersistedTask{}, collaberr.Validation("task `%s` is already completed", task.ID)
	}

	task.State = model.TaskCompleted
	task.UpdatedAt = fsutil.NowUnixSeconds()
	if err := writeTask(home, teamID, task); err != nil {
		return model.PersistedTask{}, err
	}
	return task, nil
}

// List returns every task assigned to a current team member, in stored
// order; tasks left behind by a removed member are hidden.
func List(home, teamID string, validMembers map[ids.ThreadID]bool) ([]model.PersistedTask, error) {
	all, err := readAllLocked(home, teamID)
	if err != nil {
		return nil, err
	}
	var visible []model.PersistedTask
	for _, t := range all {
		if validMembers[t.Assignee.AgentID] {
			visible = append(visible, t)
		}
	}
	return visible, nil
}
