package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/store"
)

// MemoryStore is a map-backed store.Store for tests that need to inspect
// writes or inject storage failures.
type MemoryStore struct {
	mu       sync.Mutex
	tasks    map[string]model.Task
	order    []string
	sessions map[string]model.ChatSession
	settings map[string]string
	failWith error
	writes   int
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:    make(map[string]model.Task),
		sessions: make(map[string]model.ChatSession),
		settings: make(map[string]string),
	}
}

// FailWrites makes every subsequent write return err. Pass nil to recover.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Writes returns how many writes succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Task returns the stored copy of a task.
func (m *MemoryStore) Task(id string) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t.Clone(), ok
}

// Len returns the number of stored tasks.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Session returns the stored copy of a session.
func (m *MemoryStore) Session(id string) (model.ChatSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s.Clone(), ok
}

func (m *MemoryStore) GetTasks(_ context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Task, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.tasks[m.order[i]].Clone())
	}
	return out, nil
}

func (m *MemoryStore) SaveTask(_ context.Context, task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.tasks[task.ID]; !ok {
		m.order = append(m.order, task.ID)
	}
	m.tasks[task.ID] = task.Clone()
	m.writes++
	return nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.tasks, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.writes++
	return nil
}

func (m *MemoryStore) GetSessions(_ context.Context) ([]model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, session model.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	existing := m.sessions[session.ID]
	existing.ID = session.ID
	existing.Title = session.Title
	existing.UpdatedAt = session.UpdatedAt
	if existing.CreatedAt.IsZero() {
		existing.CreatedAt = session.CreatedAt
	}
	m.sessions[session.ID] = existing
	m.writes++
	return nil
}

func (m *MemoryStore) SaveMessage(_ context.Context, sessionID string, seq int, msg model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	s := m.sessions[sessionID]
	for len(s.Messages) <= seq {
		s.Messages = append(s.Messages, model.ChatMessage{})
	}
	s.Messages[seq] = msg.Clone()
	m.sessions[sessionID] = s
	m.writes++
	return nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	delete(m.sessions, id)
	m.writes++
	return nil
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *MemoryStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.settings[key] = value
	m.writes++
	return nil
}
