package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskchat/internal/ai"
	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
)

var (
	// ErrEmptyMessage is returned by SendMessage for blank input.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrSessionGone is returned when the target session was removed.
	ErrSessionGone = errors.New("chat session no longer exists")

	// ErrNoPendingTask is returned when a message carries no task draft.
	ErrNoPendingTask = errors.New("message has no pending task")

	// ErrPendingTaskCreated is returned when a draft was already confirmed.
	ErrPendingTaskCreated = errors.New("pending task was already created")
)

// Responder produces a decoded model reply for a prompt. *ai.Gateway
// implements it.
type Responder interface {
	Chat(ctx context.Context, p ai.ChatPrompt) ai.Result
}

// TaskStore is the task collection seen by the chat service.
type TaskStore interface {
	TaskMutator
	List() []model.Task
}

// EventKind tags a SendMessage progress event.
type EventKind int

const (
	// EventChunk: one more word of the reply is visible.
	EventChunk EventKind = iota
	// EventSettled: the reply text and structured fields are final.
	EventSettled
)

// Event reports SendMessage progress to the caller.
type Event struct {
	Kind      EventKind
	SessionID string
	MessageID string
	Chunk     string
	Text      string
}

// Reply is the result of SendMessage.
type Reply struct {
	SessionID string
	UserID    string
	MessageID string
	Result    ai.Result
	Outcome   Outcome
}

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	HistoryWindow int
	StreamDelay   time.Duration
}

// Service runs the send-message flow: record the user message and a
// placeholder, fetch the reply, replay it word by word, settle the
// structured fields, then apply the action.
type Service struct {
	sessions  *Manager
	tasks     TaskStore
	responder Responder
	executor  *Executor
	streamer  *Streamer
	window    int
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	profile *model.UserProfile

	confirmMu sync.Mutex
	inFlight  atomic.Int32
}

// NewService wires a Service.
func NewService(
	sessions *Manager,
	tasks TaskStore,
	responder Responder,
	cfg ServiceConfig,
	logger *slog.Logger,
) *Service {
	logger = logging.OrDefault(logger)
	window := cfg.HistoryWindow
	if window <= 0 {
		window = ai.DefaultHistoryWindow
	}
	return &Service{
		sessions:  sessions,
		tasks:     tasks,
		responder: responder,
		executor:  NewExecutor(tasks, logger),
		streamer:  NewStreamer(cfg.StreamDelay),
		window:    window,
		logger:    logger,
		now:       time.Now,
	}
}

// Sessions returns the session manager.
func (s *Service) Sessions() *Manager {
	return s.sessions
}

// SetProfile sets the user profile included in prompts. nil clears it.
func (s *Service) SetProfile(p *model.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.profile = nil
		return
	}
	cp := *p
	s.profile = &cp
}

// Profile returns a copy of the current user profile.
func (s *Service) Profile() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	cp := *s.profile
	return &cp
}

// Busy reports whether a SendMessage call is in flight.
func (s *Service) Busy() bool {
	return s.inFlight.Load() > 0
}

// SendMessage sends text on the current session, starting one if none is
// current. The user message and the reply placeholder are appended before
// the provider is called, so messages stay in call order even when sends
// overlap. onEvent may be nil. Provider failures are not errors: they
// arrive as a normal reply carrying fallback text.
func (s *Service) SendMessage(ctx context.Context, text string, onEvent func(Event)) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.New().String())
	}
	log := logging.FromContext(ctx, s.logger)

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	sid := s.sessions.CurrentID()
	if sid == "" {
		sid = s.sessions.StartNewSession(ctx)
	}
	sess, ok := s.sessions.Session(sid)
	if !ok {
		return Reply{}, ErrSessionGone
	}
	history := ai.WindowHistory(sess.Messages, s.window)

	ids, ok := s.sessions.AppendMessages(ctx, sid,
		model.ChatMessage{Role: model.RoleUser, Text: text},
		model.ChatMessage{Role: model.RoleModel},
	)
	if !ok {
		return Reply{}, ErrSessionGone
	}
	userID, replyID := ids[0], ids[1]

	result := s.responder.Chat(ctx, ai.ChatPrompt{
		Now:     s.now(),
		Profile: s.Profile(),
		Tasks:   s.tasks.List(),
		History: history,
		Message: text,
	})
	log.Info("reply received", "session_id", sid, "kind", result.Kind.String())

	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	var acc strings.Builder
	err := s.streamer.Stream(ctx, result.Text, func(chunk string) bool {
		acc.WriteString(chunk)
		if s.sessions.CurrentID() != sid {
			// Nobody is watching; keep going while the target still exists.
			_, exists := s.sessions.Message(sid, replyID)
			return exists
		}
		if !s.sessions.SetStreamingText(sid, replyID, acc.String()) {
			return false
		}
		emit(Event{Kind: EventChunk, SessionID: sid, MessageID: replyID, Chunk: chunk, Text: acc.String()})
		return true
	})
	if err != nil {
		log.Warn("streaming interrupted", "error", err)
	}

	// The reply is complete; record it even if the caller gave up.
	settleCtx := context.WithoutCancel(ctx)
	reply := Reply{SessionID: sid, UserID: userID, MessageID: replyID, Result: result}

	if !s.Settle(settleCtx, sid, replyID, result) {
		log.Info("reply target gone, action skipped", "session_id", sid, "message_id", replyID)
		return reply, nil
	}
	emit(Event{Kind: EventSettled, SessionID: sid, MessageID: replyID, Text: result.Text})

	reply.Outcome = s.executor.Execute(settleCtx, replyID, result.Action)
	if reply.Outcome.Applied && reply.Outcome.Task != nil && result.RelatedTask == nil {
		snap := model.SnapshotOf(*reply.Outcome.Task)
		s.sessions.MutateMessage(settleCtx, sid, replyID, model.MessagePatch{RelatedTask: snap})
	}
	return reply, nil
}

// Settle writes the final text and structured fields of a reply. Applying
// it again leaves the message unchanged. It reports false when the message
// no longer exists.
func (s *Service) Settle(ctx context.Context, sessionID, messageID string, result ai.Result) bool {
	text := result.Text
	return s.sessions.MutateMessage(ctx, sessionID, messageID, model.MessagePatch{
		Text:         &text,
		Suggestions:  result.Suggestions,
		RelatedTask:  result.RelatedTask,
		RelatedTasks: result.RelatedTasks,
		PendingTask:  result.PendingTask,
	})
}

// ConfirmPendingTask turns the task draft carried by a reply into a real
// task and marks the draft created. A draft is only ever created once.
func (s *Service) ConfirmPendingTask(ctx context.Context, sessionID, messageID string) (model.Task, error) {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	msg, ok := s.sessions.Message(sessionID, messageID)
	if !ok {
		return model.Task{}, fmt.Errorf("message %s in session %s: %w", messageID, sessionID, ErrSessionGone)
	}
	if msg.PendingTask == nil {
		return model.Task{}, ErrNoPendingTask
	}
	if msg.PendingTask.IsCreated {
		return model.Task{}, ErrPendingTaskCreated
	}

	draft := *msg.PendingTask
	in := model.TaskInput{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
	}
	if draft.DueDate != "" {
		if due, ok := ParseDueDate(draft.DueDate); ok {
			in.DueDate = &due
		}
	}

	task, err := s.tasks.Create(ctx, in)
	if err != nil {
		return model.Task{}, fmt.Errorf("creating task from draft: %w", err)
	}

	draft.IsCreated = true
	s.sessions.MutateMessage(ctx, sessionID, messageID, model.MessagePatch{
		PendingTask: &draft,
		RelatedTask: model.SnapshotOf(task),
	})
	return task, nil
}
