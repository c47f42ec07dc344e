// internal/state/sessions.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/lector/internal/types"
)

// SessionStore is a JSON-file-backed repository of reading sessions and
// their scheduling rules. Sessions live in sessions.json and rules in
// rules.json under the store root.
type SessionStore struct {
	root string
	mu   sync.RWMutex
}

// NewSessionStore creates a file-backed SessionStore rooted at the given directory.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{root: root}
}

func (s *SessionStore) sessionsPath() string {
	return filepath.Join(s.root, "sessions.json")
}

func (s *SessionStore) rulesPath() string {
	return filepath.Join(s.root, "rules.json")
}

func (s *SessionStore) loadSessions() ([]*types.ReadingSession, error) {
	var sessions []*types.ReadingSession
	if err := readJSON(s.sessionsPath(), &sessions); err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) loadRules() ([]*types.SchedulingRule, error) {
	var rules []*types.SchedulingRule
	if err := readJSON(s.rulesPath(), &rules); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return rules, nil
}

// Get returns the session with the given ID.
func (s *SessionStore) Get(_ context.Context, id types.SessionID) (*types.ReadingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session not found: %s", id)
}

// List returns all sessions.
func (s *SessionStore) List(_ context.Context) ([]*types.ReadingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*types.ReadingSession{}
	}
	return sessions, nil
}

// Add appends a session. Returns an error if the ID already exists.
func (s *SessionStore) Add(_ context.Context, session *types.ReadingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return err
	}
	for _, existing := range sessions {
		if existing.ID == session.ID {
			return fmt.Errorf("session already exists: %s", session.ID)
		}
	}

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	sessions = append(sessions, session)
	return writeJSON(s.sessionsPath(), sessions)
}

// Remove deletes a session and all its rules.
func (s *SessionStore) Remove(_ context.Context, id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.loadSessions()
	if err != nil {
		return err
	}
	found := false
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID == id {
			found = true
			continue
		}
		kept = append(kept, sess)
	}
	if !found {
		return fmt.Errorf("session not found: %s", id)
	}
	if err := writeJSON(s.sessionsPath(), kept); err != nil {
		return err
	}

	rules, err := s.loadRules()
	if err != nil {
		return err
	}
	keptRules := rules[:0]
	for _, rule := range rules {
		if rule.SessionID != id {
			keptRules = append(keptRules, rule)
		}
	}
	return writeJSON(s.rulesPath(), keptRules)
}

// RulesFor returns all rules owned by the given session.
func (s *SessionStore) RulesFor(_ context.Context, id types.SessionID) ([]*types.SchedulingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, err := s.loadRules()
	if err != nil {
		return nil, err
	}
	owned := []*types.SchedulingRule{}
	for _, rule := range rules {
		if rule.SessionID == id {
			owned = append(owned, rule)
		}
	}
	return owned, nil
}

// Rule returns the rule with the given ID.
func (s *SessionStore) Rule(_ context.Context, id types.RuleID) (*types.SchedulingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, err := s.loadRules()
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("rule not found: %s", id)
}

// AddRule appends a rule. Returns an error if the ID already exists.
func (s *SessionStore) AddRule(_ context.Context, rule *types.SchedulingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.loadRules()
	if err != nil {
		return err
	}
	for _, existing := range rules {
		if existing.ID == rule.ID {
			return fmt.Errorf("rule already exists: %s", rule.ID)
		}
	}
	rules = append(rules, rule)
	return writeJSON(s.rulesPath(), rules)
}

// SetRuleActive toggles a rule's active flag.
func (s *SessionStore) SetRuleActive(_ context.Context, id types.RuleID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.loadRules()
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if rule.ID == id {
			rule.Active = active
			return writeJSON(s.rulesPath(), rules)
		}
	}
	return fmt.Errorf("rule not found: %s", id)
}

// readJSON unmarshals the file into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON marshals v with indentation and writes atomically (temp file
// then rename).
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
