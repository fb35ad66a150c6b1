// Package inbox implements the per-thread message queue that lets team
// members hand work to one another: one append-only JSONL log per receiver
// plus a small cursor file tracking how much of that log has been
// acknowledged. Every operation takes an exclusive advisory lock on a
// sibling ".lock" file so concurrent senders and a single receiver never
// interleave writes or race a pop against an ack.
package inbox

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/fsutil"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

const dirName = "inbox"

// Dir returns the inbox directory for a team, rooted under home.
func Dir(home, teamID string) string {
	return filepath.Join(home, "teams", teamID, dirName)
}

func logPath(home, teamID string, thread ids.ThreadID) string {
	return filepath.Join(Dir(home, teamID), thread.String()+".jsonl")
}

func lockPath(home, teamID string, thread ids.ThreadID) string {
	return filepath.Join(Dir(home, teamID), thread.String()+".lock")
}

func cursorPath(home, teamID string, thread ids.ThreadID) string {
	return filepath.Join(Dir(home, teamID), thread.String()+".cursor.json")
}

func wrapErr(action, teamID string, thread ids.ThreadID, err error) error {
	return collaberr.Persistence(
		fmt.Sprintf("failed to %s inbox for team %q thread %q", action, teamID, thread.Short()),
		err,
	)
}

func readCursor(home, teamID string, thread ids.ThreadID) (model.InboxCursor, error) {
	raw, err := os.ReadFile(cursorPath(home, teamID, thread))
	if errors.Is(err, os.ErrNotExist) {
		return model.InboxCursor{}, nil
	}
	if err != nil {
		return model.InboxCursor{}, wrapErr("read", teamID, thread, err)
	}
	var cur model.InboxCursor
	if err := json.Unmarshal(raw, &cur); err != nil {
		return model.InboxCursor{}, wrapErr("parse", teamID, thread, err)
	}
	return cur, nil
}

func writeCursor(home, teamID string, thread ids.ThreadID, cur model.InboxCursor) error {
	if err := fsutil.WriteJSONAtomic(cursorPath(home, teamID, thread), cur); err != nil {
		return wrapErr("write", teamID, thread, err)
	}
	return nil
}

// Append adds one entry to receiver's inbox log and returns its generated
// entry id. senderName may be empty, matching an anonymous/system sender.
func Append(ctx context.Context, home, teamID string, receiver, sender ids.ThreadID, senderName string, items []model.InputItem, prompt string) (string, error) {
	dir := Dir(home, teamID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", wrapErr("create", teamID, receiver, err)
	}

	lock, err := fsutil.LockExclusive(ctx, lockPath(home, teamID, receiver))
	if err != nil {
		return "", wrapErr("lock", teamID, receiver, err)
	}
	defer lock.Unlock()

	entry := model.InboxEntry{
		ID:           ids.NewThreadID(),
		CreatedAt:    fsutil.NowUnixSeconds(),
		TeamID:       teamID,
		FromThreadID: sender,
		FromName:     senderName,
		ToThreadID:   receiver,
		InputItems:   items,
		Prompt:       prompt,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return "", collaberr.Wrap(fmt.Errorf("serialize inbox entry: %w", err))
	}
	line = append(line, '\n')

	f, err := os.OpenFile(logPath(home, teamID, receiver), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", wrapErr("open", teamID, receiver, err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return "", wrapErr("append", teamID, receiver, err)
	}

	return entry.ID.String(), nil
}

// Pop reads up to limit unacknowledged entries from receiver's inbox, in
// order, without consuming them: the returned ack token must be handed to
// Ack once the caller has durably processed the entries. Pop returns a nil
// token when there is nothing new to read.
func Pop(ctx context.Context, home, teamID string, receiver ids.ThreadID, limit int) ([]model.InboxEntry, *model.InboxAckToken, error) {
	dir := Dir(home, teamID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, wrapErr("create", teamID, receiver, err)
	}

	lock, err := fsutil.LockExclusive(ctx, lockPath(home, teamID, receiver))
	if err != nil {
		return nil, nil, wrapErr("lock", teamID, receiver, err)
	}
	defer lock.Unlock()

	cursor, err := readCursor(home, teamID, receiver)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(logPath(home, teamID, receiver))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, wrapErr("open", teamID, receiver, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var entries []model.InboxEntry
	var lastEntryID string
	index := int64(0)
	for scanner.Scan() {
		if index < cursor.AckedLines {
			index++
			continue
		}
		var entry model.InboxEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, nil, wrapErr("parse", teamID, receiver, err)
		}
		lastEntryID = entry.ID.String()
		entries = append(entries, entry)
		index++
		if limit > 0 && int64(len(entries)) >= int64(limit) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, wrapErr("read", teamID, receiver, err)
	}

	if len(entries) == 0 {
		return entries, nil, nil
	}

	token := &model.InboxAckToken{
		TeamID:      teamID,
		ThreadID:    receiver,
		AckedLines:  cursor.AckedLines + int64(len(entries)),
		LastEntryID: lastEntryID,
	}
	return entries, token, nil
}

// Ack advances receiver's cursor to token's acked line count. A token whose
// AckedLines is behind the persisted cursor is rejected as non-monotonic; a
// token whose AckedLines matches exactly is a no-op success. LastEntryID
// must name the entry actually at that offset in the log, so a token issued
// against an earlier version of a rewritten log, or against another
// receiver's log, is rejected.
func Ack(ctx context.Context, home string, token model.InboxAckToken) error {
	receiver := token.ThreadID
	teamID := token.TeamID

	dir := Dir(home, teamID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapErr("create", teamID, receiver, err)
	}

	lock, err := fsutil.LockExclusive(ctx, lockPath(home, teamID, receiver))
	if err != nil {
		return wrapErr("lock", teamID, receiver, err)
	}
	defer lock.Unlock()

	cursor, err := readCursor(home, teamID, receiver)
	if err != nil {
		return err
	}

	if token.AckedLines < cursor.AckedLines {
		return collaberr.Validation(
			"inbox ack is not monotonic (current=%d, requested=%d)",
			cursor.AckedLines, token.AckedLines,
		)
	}
	if token.AckedLines == cursor.AckedLines {
		return nil
	}
	if token.AckedLines > 0 && token.LastEntryID == "" {
		return collaberr.Validation("ack_token missing last_entry_id")
	}

	f, err := os.Open(logPath(home, teamID, receiver))
	if err != nil {
		return wrapErr("open", teamID, receiver, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	targetIndex := token.AckedLines - 1
	index := int64(0)
	var lastSeenID string
	found := false
	for scanner.Scan() {
		if index == targetIndex {
			var entry model.InboxEntry
			if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
				return wrapErr("parse", teamID, receiver, err)
			}
			lastSeenID = entry.ID.String()
			found = true
			break
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return wrapErr("read", teamID, receiver, err)
	}
	if !found {
		return collaberr.Validation("ack_token references missing inbox entry")
	}
	if lastSeenID != token.LastEntryID {
		return collaberr.Validation("ack_token last_entry_id mismatch")
	}

	return writeCursor(home, teamID, receiver, model.InboxCursor{
		AckedLines:  token.AckedLines,
		LastEntryID: token.LastEntryID,
	})
}
