// Package session holds all per-session conversation state in memory.
// Nothing is persisted; restarting the process drops every session.
package session

import (
	"sort"
	"sync"
	"time"
)

// DefaultHistoryLimit caps the number of retained turns per session.
const DefaultHistoryLimit = 20

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable message of a conversation.
type Turn struct {
	Role      Role
	Content   string
	// Task tag the turn was recorded under; empty for assistant turns.
	Task      string
	Timestamp time.Time
}

// Feature is one project-guidance interaction.
type Feature struct {
	Name      string
	Timestamp time.Time
}

// Project accumulates guidance interactions for a session. Created lazily on
// the first recorded feature.
type Project struct {
	Features []Feature
	Started  time.Time
}

// Store is the process-wide session registry. Safe for concurrent use; note
// that interleaved read-append sequences from concurrent requests against the
// same session are not isolated from each other.
type Store struct {
	mu        sync.RWMutex
	limit     int
	histories map[string][]Turn
	projects  map[string]*Project
	now       func() time.Time
}

// NewStore returns a Store evicting oldest turns beyond limit.
// A non-positive limit selects DefaultHistoryLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{
		limit:     limit,
		histories: make(map[string][]Turn),
		projects:  make(map[string]*Project),
		now:       time.Now,
	}
}

// Get returns a copy of the session's history, creating the session if it
// does not exist yet.
func (s *Store) Get(sessionID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[sessionID]
	if !ok {
		s.histories[sessionID] = nil
		return nil
	}
	out := make([]Turn, len(h))
	copy(out, h)
	return out
}

// Append records a turn with the current timestamp, evicting from the front
// when the history exceeds the limit.
func (s *Store) Append(sessionID string, role Role, task, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.histories[sessionID], Turn{
		Role:      role,
		Content:   content,
		Task:      task,
		Timestamp: s.now(),
	})
	if n := len(h); n > s.limit {
		h = h[n-s.limit:]
	}
	s.histories[sessionID] = h
}

// Delete removes the session's history and project record. Deleting an
// unknown session is a no-op.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, sessionID)
	delete(s.projects, sessionID)
}

// IDs returns all known session ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.histories))
	for id := range s.histories {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count reports the number of known sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories)
}

// ProjectCount reports how many sessions have a project record.
func (s *Store) ProjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// RecordFeature logs a project-guidance interaction, starting the session's
// project record on first use.
func (s *Store) RecordFeature(sessionID, feature string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[sessionID]
	if !ok {
		p = &Project{Started: s.now()}
		s.projects[sessionID] = p
	}
	p.Features = append(p.Features, Feature{Name: feature, Timestamp: s.now()})
}

// Project returns a copy of the session's project record, if any.
func (s *Store) Project(sessionID string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[sessionID]
	if !ok {
		return Project{}, false
	}
	out := Project{Started: p.Started, Features: make([]Feature, len(p.Features))}
	copy(out.Features, p.Features)
	return out, true
}
