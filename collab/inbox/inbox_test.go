package inbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/inbox"
	"github.com/agentmesh/collabcore/collab/model"
)

func ctxBg() context.Context { return context.Background() }

func TestAppendThenPop_ReturnsInOrder(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "lead", nil, "first")
	require.NoError(t, err)
	_, err = inbox.Append(ctxBg(), home, "team-1", receiver, sender, "lead", nil, "second")
	require.NoError(t, err)

	entries, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 10)
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Prompt)
	assert.Equal(t, "second", entries[1].Prompt)
	assert.Equal(t, int64(2), token.AckedLines)
}

func TestPop_RespectsLimit(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	for i := 0; i < 5; i++ {
		_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "msg")
		require.NoError(t, err)
	}

	entries, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), token.AckedLines)
}

func TestPop_OnEmptyInboxReturnsNilToken(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()

	entries, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Nil(t, token)
}

func TestAckThenPop_OnlyReturnsUnacked(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "a")
	require.NoError(t, err)
	_, err = inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "b")
	require.NoError(t, err)

	entries, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, inbox.Ack(ctxBg(), home, *token))

	entries, _, err = inbox.Pop(ctxBg(), home, "team-1", receiver, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Prompt)
}

func TestAck_RejectsNonMonotonicRegression(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "a")
	require.NoError(t, err)
	_, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 10)
	require.NoError(t, err)
	require.NoError(t, inbox.Ack(ctxBg(), home, *token))

	stale := model.InboxAckToken{TeamID: "team-1", ThreadID: receiver, AckedLines: 0}
	err = inbox.Ack(ctxBg(), home, stale)
	assert.Error(t, err)
}

func TestAck_SameOffsetIsNoOp(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "a")
	require.NoError(t, err)
	_, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 10)
	require.NoError(t, err)
	require.NoError(t, inbox.Ack(ctxBg(), home, *token))
	assert.NoError(t, inbox.Ack(ctxBg(), home, *token))
}

func TestAck_RejectsMismatchedLastEntryID(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "a")
	require.NoError(t, err)
	_, token, err := inbox.Pop(ctxBg(), home, "team-1", receiver, 10)
	require.NoError(t, err)

	forged := *token
	forged.LastEntryID = ids.NewThreadID().String()
	err = inbox.Ack(ctxBg(), home, forged)
	assert.Error(t, err)
}

func TestAck_RejectsMissingLastEntryIDWhenAckingLines(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()

	token := model.InboxAckToken{TeamID: "team-1", ThreadID: receiver, AckedLines: 1}
	err := inbox.Ack(ctxBg(), home, token)
	assert.Error(t, err)
}

func TestAppend_ConcurrentSendersPreserveAllEntries(t *testing.T) {
	home := t.TempDir()
	receiver := ids.NewThreadID()
	sender := ids.NewThreadID()

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := inbox.Append(ctxBg(), home, "team-1", receiver, sender, "", nil, "msg")
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	entries, _, err := inbox.Pop(ctxBg(), home, "team-1", receiver, n+10)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}
