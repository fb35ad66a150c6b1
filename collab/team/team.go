// Package team owns the team registry: an in-memory, process-wide map of
// (lead thread, team id) to the set of currently live members, plus an
// on-disk PersistedTeamConfig mirror kept in sync with every mutation. The
// in-memory map is the source of truth for "who is still a member";
// persistence exists for resume_agent to reconstruct intent after a
// process restart.
package team

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentmesh/collabcore/collab/collaberr"
	"github.com/agentmesh/collabcore/collab/fsutil"
	"github.com/agentmesh/collabcore/collab/ids"
	"github.com/agentmesh/collabcore/collab/model"
)

type key struct {
	lead ids.ThreadID
	team string
}

// Registry is the process-wide in-memory team store. Safe for concurrent
// use; a single sync.RWMutex guards a plain map, and holders never perform
// I/O under it.
type Registry struct {
	mu    sync.RWMutex
	teams map[key]model.TeamRecord
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{teams: make(map[key]model.TeamRecord)}
}

// Get returns the in-memory record for (lead, teamID).
func (r *Registry) Get(lead ids.ThreadID, teamID string) (model.TeamRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.teams[key{lead, teamID}]
	return rec, ok
}

// Put inserts or replaces the in-memory record for (lead, teamID).
func (r *Registry) Put(lead ids.ThreadID, teamID string, rec model.TeamRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[key{lead, teamID}] = rec
}

// Delete removes the in-memory record for (lead, teamID).
func (r *Registry) Delete(lead ids.ThreadID, teamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.teams, key{lead, teamID})
}

// RemoveMembers drops every member named in names from (lead, teamID)'s
// record, returning the updated record and whether it still has any
// members. A team emptied by removal is not deleted here — callers decide
// whether an empty team is deleted or kept as a placeholder.
func (r *Registry) RemoveMembers(lead ids.ThreadID, teamID string, names map[string]bool) (model.TeamRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{lead, teamID}
	rec, ok := r.teams[k]
	if !ok {
		return model.TeamRecord{}, false, collaberr.Validation("team `%s` not found", teamID)
	}
	remaining := rec.Members[:0:0]
	for _, m := range rec.Members {
		if !names[m.Name] {
			remaining = append(remaining, m)
		}
	}
	rec.Members = remaining
	r.teams[k] = rec
	return rec, len(remaining) > 0, nil
}

// NormalizeTeamID trims whitespace and rejects an empty id. A caller that
// wants a freshly allocated id (spawn_team's "team_id omitted") should
// generate one with ids.NewThreadID().String() before calling this.
func NormalizeTeamID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", collaberr.Validation("team_id must be non-empty")
	}
	return trimmed, nil
}

// FindMember looks up a member by name, case-sensitive and exact.
func FindMember(rec model.TeamRecord, name string) (model.TeamMember, error) {
	for _, m := range rec.Members {
		if m.Name == name {
			return m, nil
		}
	}
	return model.TeamMember{}, collaberr.Validation("no team member named `%s`", name)
}

// AssertMemberOrLead reports a validation error unless caller is the
// team's lead thread or one of its persisted members.
func AssertMemberOrLead(cfg model.PersistedTeamConfig, caller ids.ThreadID) error {
	if caller == cfg.LeadThreadID {
		return nil
	}
	for _, m := range cfg.Members {
		if m.AgentID == caller {
			return nil
		}
	}
	return collaberr.Validation("caller is not a member of this team")
}

const configFileName = "team.json"

// Dir returns <home>/teams/<teamID>.
func Dir(home, teamID string) string {
	return filepath.Join(home, "teams", teamID)
}

func configPath(home, teamID string) string {
	return filepath.Join(Dir(home, teamID), configFileName)
}

func persistenceErr(action, teamID string, err error) error {
	return collaberr.Persistence(fmt.Sprintf("failed to %s team `%s`", action, teamID), err)
}

// ReadPersistedConfig loads the on-disk mirror of a team's membership.
func ReadPersistedConfig(home, teamID string) (model.PersistedTeamConfig, error) {
	raw, err := os.ReadFile(configPath(home, teamID))
	if os.IsNotExist(err) {
		return model.PersistedTeamConfig{}, collaberr.Validation("team `%s` not found", teamID)
	}
	if err != nil {
		return model.PersistedTeamConfig{}, persistenceErr("read", teamID, err)
	}
	var cfg model.PersistedTeamConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.PersistedTeamConfig{}, persistenceErr("parse", teamID, err)
	}
	return cfg, nil
}

// WritePersistedConfig atomically rewrites a team's on-disk mirror.
func WritePersistedConfig(home, teamID string, cfg model.PersistedTeamConfig) error {
	if err := os.MkdirAll(Dir(home, teamID), 0o755); err != nil {
		return persistenceErr("create", teamID, err)
	}
	if err := fsutil.WriteJSONAtomic(configPath(home, teamID), cfg); err != nil {
		return persistenceErr("write", teamID, err)
	}
	return nil
}

// RemovePersistence deletes a team's entire on-disk directory: its config
// mirror, task board, and inbox logs. Used by team_cleanup once every
// member is confirmed to be in a final state.
func RemovePersistence(home, teamID string) error {
	if err := os.RemoveAll(Dir(home, teamID)); err != nil {
		return persistenceErr("remove", teamID, err)
	}
	return nil
}

// StatusLookup reports the current status of one agent thread; collab/team
// depends on this as a function type rather than importing
// collab/agentcontrol directly, keeping the dependency direction
// tools -> {team, agentcontrol} rather than team -> agentcontrol.
type StatusLookup func(ctx context.Context, agent ids.ThreadID) model.AgentStatus

// Cleanup verifies every persisted member of (lead, teamID) is in a final
// agent status; if any member is still active it returns a validation
// error naming the blockers and performs no mutation. Otherwise it removes
// the team from both the in-memory registry and disk.
func Cleanup(ctx context.Context, home string, registry *Registry, lead ids.ThreadID, teamID string, statusOf StatusLookup) error {
	cfg, err := ReadPersistedConfig(home, teamID)
	if err != nil {
		return err
	}
	if cfg.LeadThreadID != lead {
		return collaberr.Validation("team_cleanup must be run by the lead thread `%s`", cfg.LeadThreadID)
	}

	var blocked []string
	for _, m := range cfg.Members {
		status := statusOf(ctx, m.AgentID)
		if !status.IsFinal() {
			blocked = append(blocked, fmt.Sprintf("%s (%s) is %s", m.Name, m.AgentID.Short(), status.Kind))
		}
	}
	if len(blocked) > 0 {
		return collaberr.Validation("team_cleanup found active teammates; close them first: %s", strings.Join(blocked, ", "))
	}

	registry.Delete(lead, teamID)
	// The in-memory record is dropped first; a failure removing the
	// on-disk state surfaces as a persistence error with the registry
	// already cleared.
	return RemovePersistence(home, teamID)
}
