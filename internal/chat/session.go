package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
	"github.com/nhle/taskchat/internal/store"
)

// TitleLimit is the number of characters of the first user message kept in
// a session title.
const TitleLimit = 30

// SessionStore is the durable storage behind a Manager.
type SessionStore interface {
	GetSessions(ctx context.Context) ([]model.ChatSession, error)
	SaveSession(ctx context.Context, session model.ChatSession) error
	SaveMessage(ctx context.Context, sessionID string, seq int, msg model.ChatMessage) error
	DeleteSession(ctx context.Context, id string) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Manager owns every chat session and the pointer to the current one.
// Sessions live in a map keyed by id and never move; switching is a pointer
// change. One lock guards both the map and the pointer, so readers always
// see them agree.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*model.ChatSession
	currentID string

	persist   SessionStore
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	greeting  string
	listeners []func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerClock overrides the clock used for timestamps.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithManagerIDs overrides how session and message ids are generated.
func WithManagerIDs(gen func() string) ManagerOption {
	return func(m *Manager) { m.newID = gen }
}

// WithGreeting sets the model message seeded into every new session. An
// empty greeting starts sessions with no messages.
func WithGreeting(text string) ManagerOption {
	return func(m *Manager) { m.greeting = text }
}

// NewManager returns a Manager with no sessions. persist may be nil.
func NewManager(persist SessionStore, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*model.ChatSession),
		persist:  persist,
		logger:   logging.OrDefault(logger),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		greeting: model.DefaultGreeting,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores sessions and the current pointer from storage. Missing data
// yields an empty manager.
func (m *Manager) Load(ctx context.Context) error {
	if m.persist == nil {
		return nil
	}
	loaded, err := m.persist.GetSessions(ctx)
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}
	current, _, err := m.persist.GetSetting(ctx, store.SettingCurrentSession)
	if err != nil {
		return fmt.Errorf("loading current session: %w", err)
	}

	m.mu.Lock()
	m.sessions = make(map[string]*model.ChatSession, len(loaded))
	for i := range loaded {
		s := loaded[i]
		m.sessions[s.ID] = &s
	}
	m.currentID = ""
	if _, ok := m.sessions[current]; ok {
		m.currentID = current
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

// OnChange registers fn to be called after every state change.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// StartNewSession makes a reusable session current and returns its id. A
// session is reusable while it has no user message; at most one such
// session ever exists, so repeated calls return the same id.
func (m *Manager) StartNewSession(ctx context.Context) string {
	m.mu.Lock()
	if s := m.emptySessionLocked(); s != nil {
		m.currentID = s.ID
		m.saveCurrentLocked(ctx)
		id := s.ID
		m.mu.Unlock()
		m.notify()
		return id
	}

	now := m.now()
	s := &model.ChatSession{
		ID:        m.newID(),
		Title:     model.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.greeting != "" {
		s.Messages = append(s.Messages, model.ChatMessage{
			ID:        m.newID(),
			Role:      model.RoleModel,
			Text:      m.greeting,
			CreatedAt: now,
		})
	}
	m.sessions[s.ID] = s
	m.currentID = s.ID

	m.saveSessionLocked(ctx, s)
	for i := range s.Messages {
		m.saveMessageLocked(ctx, s, i)
	}
	m.saveCurrentLocked(ctx)
	id := s.ID
	m.mu.Unlock()

	m.notify()
	return id
}

// SwitchSession makes id current. Unknown ids are ignored.
func (m *Manager) SwitchSession(ctx context.Context, id string) bool {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return false
	}
	m.currentID = id
	m.saveCurrentLocked(ctx)
	m.mu.Unlock()

	m.notify()
	return true
}

// RemoveSession deletes a session. If it was current, no session is current
// afterwards.
func (m *Manager) RemoveSession(ctx context.Context, id string) bool {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	if m.persist != nil {
		if err := m.persist.DeleteSession(ctx, id); err != nil {
			m.logger.Error("storage write failed", "op", "delete_session", "id", id, "error", err)
		}
	}
	if m.currentID == id {
		m.currentID = ""
		m.saveCurrentLocked(ctx)
	}
	m.mu.Unlock()

	m.notify()
	return true
}

// RenameSession sets a session title explicitly.
func (m *Manager) RenameSession(ctx context.Context, id, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	s.Title = title
	m.touchLocked(s)
	m.saveSessionLocked(ctx, s)
	m.mu.Unlock()

	m.notify()
	return true
}

// AppendMessage adds msg to the end of a session's log and returns its id,
// generating one when msg.ID is empty. The first user message replaces the
// default title. It reports false when the session is unknown.
func (m *Manager) AppendMessage(ctx context.Context, sessionID string, msg model.ChatMessage) (string, bool) {
	ids, ok := m.AppendMessages(ctx, sessionID, msg)
	if !ok {
		return "", false
	}
	return ids[0], true
}

// AppendMessages adds msgs as one contiguous run, so concurrent callers
// never interleave inside it. It returns the ids in order.
func (m *Manager) AppendMessages(ctx context.Context, sessionID string, msgs ...model.ChatMessage) ([]string, bool) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || len(msgs) == 0 {
		m.mu.Unlock()
		return nil, false
	}

	ids := make([]string, len(msgs))
	for i, msg := range msgs {
		if msg.ID == "" {
			msg.ID = m.newID()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = m.now()
		}
		if msg.Role == model.RoleUser && s.Title == model.DefaultSessionTitle && !s.HasUserMessage() {
			s.Title = DeriveTitle(msg.Text)
		}
		s.Messages = append(s.Messages, msg.Clone())
		ids[i] = msg.ID
	}
	m.touchLocked(s)

	m.saveSessionLocked(ctx, s)
	for i := len(s.Messages) - len(msgs); i < len(s.Messages); i++ {
		m.saveMessageLocked(ctx, s, i)
	}
	m.mu.Unlock()

	m.notify()
	return ids, true
}

// MutateMessage merges patch into one message and persists it. It reports
// false when the session or message is unknown.
func (m *Manager) MutateMessage(ctx context.Context, sessionID, messageID string, patch model.MessagePatch) bool {
	m.mu.Lock()
	s, i := m.messageLocked(sessionID, messageID)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	s.Messages[i] = patch.Apply(s.Messages[i])
	m.touchLocked(s)

	m.saveSessionLocked(ctx, s)
	m.saveMessageLocked(ctx, s, i)
	m.mu.Unlock()

	m.notify()
	return true
}

// SetStreamingText replaces a message's text in memory only. Streaming
// calls it once per chunk; the final MutateMessage persists the full text.
func (m *Manager) SetStreamingText(sessionID, messageID, text string) bool {
	m.mu.Lock()
	s, i := m.messageLocked(sessionID, messageID)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	s.Messages[i].Text = text
	m.touchLocked(s)
	m.mu.Unlock()

	m.notify()
	return true
}

// CurrentID returns the current session id, or "" when none is current.
func (m *Manager) CurrentID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentID
}

// Current returns a copy of the current session.
func (m *Manager) Current() (model.ChatSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[m.currentID]
	if !ok {
		return model.ChatSession{}, false
	}
	return s.Clone(), true
}

// Session returns a copy of the session with the given id.
func (m *Manager) Session(id string) (model.ChatSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.ChatSession{}, false
	}
	return s.Clone(), true
}

// Message returns a copy of one message.
func (m *Manager) Message(sessionID, messageID string) (model.ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, i := m.messageLocked(sessionID, messageID)
	if i < 0 {
		return model.ChatMessage{}, false
	}
	return s.Messages[i].Clone(), true
}

// Sessions returns copies of all sessions, most recently updated first.
func (m *Manager) Sessions() []model.ChatSession {
	m.mu.RLock()
	out := make([]model.ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len returns the number of sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// DeriveTitle returns the first TitleLimit characters of text, followed by
// "..." when text is longer.
func DeriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= TitleLimit {
		return text
	}
	return string([]rune(text)[:TitleLimit]) + "..."
}

func (m *Manager) emptySessionLocked() *model.ChatSession {
	var found *model.ChatSession
	for _, s := range m.sessions {
		if s.HasUserMessage() {
			continue
		}
		if found == nil || s.UpdatedAt.After(found.UpdatedAt) {
			found = s
		}
	}
	return found
}

func (m *Manager) messageLocked(sessionID, messageID string) (*model.ChatSession, int) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, -1
	}
	for i := range s.Messages {
		if s.Messages[i].ID == messageID {
			return s, i
		}
	}
	return s, -1
}

// touchLocked advances UpdatedAt, strictly, even when the clock has not.
func (m *Manager) touchLocked(s *model.ChatSession) {
	now := m.now()
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Nanosecond)
	}
	s.UpdatedAt = now
}

func (m *Manager) saveSessionLocked(ctx context.Context, s *model.ChatSession) {
	if m.persist == nil {
		return
	}
	if err := m.persist.SaveSession(ctx, *s); err != nil {
		m.logger.Error("storage write failed", "op", "save_session", "id", s.ID, "error", err)
	}
}

func (m *Manager) saveMessageLocked(ctx context.Context, s *model.ChatSession, i int) {
	if m.persist == nil {
		return
	}
	msg := s.Messages[i]
	if err := m.persist.SaveMessage(ctx, s.ID, i, msg); err != nil {
		m.logger.Error("storage write failed", "op", "save_message", "id", msg.ID, "error", err)
	}
}

func (m *Manager) saveCurrentLocked(ctx context.Context) {
	if m.persist == nil {
		return
	}
	if err := m.persist.SetSetting(ctx, store.SettingCurrentSession, m.currentID); err != nil {
		m.logger.Error("storage write failed", "op", "save_current_session", "error", err)
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
