package spawn_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/agentcontrol"
	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
	"github.com/agentmesh/collabcore/collab/spawn"
	"github.com/agentmesh/collabcore/collab/worktree"
)

func TestOne_Succeeds(t *testing.T) {
	control := agentcontrol.NewFake(0)
	d := spawn.Deps{Control: control, MaxDepth: 8}

	result, err := spawn.One(context.Background(), d, spawn.Request{
		CallID:         "call-1",
		SenderThreadID: ids.NewThreadID(),
		Prompt:         "investigate the bug",
		InputItems:     []model.InputItem{{Kind: model.InputText, Text: "go"}},
	})
	require.NoError(t, err)
	assert.False(t, result.AgentID.IsZero())
	assert.Equal(t, model.AgentRunning, result.Status.Kind)
}

func TestOne_DepthLimitRejectsBeforeSpawning(t *testing.T) {
	control := agentcontrol.NewFake(0)
	d := spawn.Deps{Control: control, MaxDepth: 2}

	_, err := spawn.One(context.Background(), d, spawn.Request{Depth: 3})
	var ce *collaberr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, collaberr.KindUserVisibleValidation, ce.Kind)
	assert.Equal(t, 0, control.SpawnAttempts())
}

func TestOne_AgentLimitReachedRetriesOnceAfterReap(t *testing.T) {
	control := agentcontrol.NewFake(1)
	sender := ids.NewThreadID()
	blockerID, _, err := control.SpawnAgentThread(context.Background(), agentcontrol.Config{}, nil)
	require.NoError(t, err)
	control.SetRollout(blockerID, "/dev/null", "done")

	reaped := 0
	d := spawn.Deps{
		Control:  control,
		MaxDepth: 8,
		Reap: func(ctx context.Context) int {
			reaped = control.Reap(ctx)
			return reaped
		},
	}

	result, err := spawn.One(context.Background(), d, spawn.Request{SenderThreadID: sender})
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)
	assert.False(t, result.AgentID.IsZero())
}

func TestOne_AgentLimitReachedWithoutReaperIsValidationError(t *testing.T) {
	control := agentcontrol.NewFake(1)
	_, _, err := control.SpawnAgentThread(context.Background(), agentcontrol.Config{}, nil)
	require.NoError(t, err)

	d := spawn.Deps{Control: control, MaxDepth: 8}
	_, err = spawn.One(context.Background(), d, spawn.Request{})
	var ce *collaberr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, collaberr.KindUserVisibleValidation, ce.Kind)
}

func TestOne_WorktreeLeaseRegisteredOnSuccess(t *testing.T) {
	home := t.TempDir()
	origin := filepath.Join(home, "origin")
	require.NoError(t, os.MkdirAll(origin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(origin, "README.md"), []byte("hi"), 0o644))

	control := agentcontrol.NewFake(0)
	wt := worktree.NewManager(home)
	d := spawn.Deps{Control: control, Worktree: wt, MaxDepth: 8}

	result, err := spawn.One(context.Background(), d, spawn.Request{WorktreeOrigin: origin})
	require.NoError(t, err)

	lease, ok := wt.Lookup(result.AgentID)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(lease.WorktreePath, "README.md"))
}

func TestOne_WorktreeAbandonedOnSpawnFailure(t *testing.T) {
	home := t.TempDir()
	origin := filepath.Join(home, "origin")
	require.NoError(t, os.MkdirAll(origin, 0o755))

	control := agentcontrol.NewFake(1)
	_, _, err := control.SpawnAgentThread(context.Background(), agentcontrol.Config{}, nil)
	require.NoError(t, err)

	wt := worktree.NewManager(home)
	d := spawn.Deps{Control: control, Worktree: wt, MaxDepth: 8}

	_, err = spawn.One(context.Background(), d, spawn.Request{WorktreeOrigin: origin})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(home, "worktrees"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResume_StillActiveReturnsCurrentStatus(t *testing.T) {
	control := agentcontrol.NewFake(0)
	id, _, err := control.SpawnAgentThread(context.Background(), agentcontrol.Config{}, nil)
	require.NoError(t, err)

	d := spawn.Deps{Control: control, MaxDepth: 8}
	result, err := spawn.Resume(context.Background(), d, spawn.ResumeRequest{AgentID: id})
	require.NoError(t, err)
	assert.Equal(t, model.AgentPendingInit, result.Status.Kind)
}

func TestResume_NotFoundResumesFromRollout(t *testing.T) {
	control := agentcontrol.NewFake(0)
	id := ids.NewThreadID()
	control.SetRollout(id, "/dev/null", "final message")
	_ = control.ShutdownAgent(context.Background(), id)

	d := spawn.Deps{Control: control, MaxDepth: 8}
	result, err := spawn.Resume(context.Background(), d, spawn.ResumeRequest{AgentID: id})
	require.NoError(t, err)
	assert.Equal(t, id, result.AgentID)
	assert.Equal(t, model.AgentRunning, result.Status.Kind)
}

func TestResume_DepthLimitRejectsEvenWhenStillActive(t *testing.T) {
	control := agentcontrol.NewFake(0)
	id, _, err := control.SpawnAgentThread(context.Background(), agentcontrol.Config{}, nil)
	require.NoError(t, err)

	d := spawn.Deps{Control: control, MaxDepth: 1}
	_, err = spawn.Resume(context.Background(), d, spawn.ResumeRequest{AgentID: id, Depth: 2})
	var ce *collaberr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, collaberr.KindUserVisibleValidation, ce.Kind)
}
