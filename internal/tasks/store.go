// Package tasks owns the in-memory task collection shared by direct user
// edits and chat actions. Every mutation goes through Store and is written
// to durable storage before it returns.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
)

// ErrEmptyTitle is returned by Create when the title is blank.
var ErrEmptyTitle = errors.New("task title must not be empty")

// Persister is the durable storage the Store writes through to.
type Persister interface {
	GetTasks(ctx context.Context) ([]model.Task, error)
	SaveTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Store is the authoritative task collection, ordered most recent first.
type Store struct {
	mu        sync.RWMutex
	tasks     []model.Task
	persist   Persister
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	listeners []func([]model.Task)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how task and subtask ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New returns an empty Store. persist may be nil for a memory-only store.
func New(persist Persister, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		persist: persist,
		logger:  logging.OrDefault(logger),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with what durable storage holds.
// A first run with no stored tasks yields an empty collection.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	loaded, err := s.persist.GetTasks(ctx)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	s.mu.Lock()
	s.tasks = loaded
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// OnChange registers fn to receive a snapshot after every mutation.
func (s *Store) OnChange(fn func([]model.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// List returns a copy of all tasks, most recent first.
func (s *Store) List() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Create adds a new task at the head of the collection and returns it.
func (s *Store) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	task := model.Task{
		ID:          s.newID(),
		Title:       title,
		Description: in.Description,
		CreatedAt:   s.now(),
		Priority:    in.Priority,
	}
	if in.DueDate != nil {
		due := *in.DueDate
		task.DueDate = &due
	}
	for _, sub := range in.Subtasks {
		if sub.ID == "" {
			sub.ID = s.newID()
		}
		task.Subtasks = append(task.Subtasks, sub)
	}

	s.mu.Lock()
	s.tasks = append([]model.Task{task}, s.tasks...)
	s.saveLocked(ctx, task)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return task.Clone(), nil
}

// Update merges patch into the task with the given id. It reports false
// and does nothing when the id is unknown.
func (s *Store) Update(ctx context.Context, id string, patch model.TaskPatch) bool {
	return s.mutate(ctx, id, patch.Apply)
}

// Delete removes the task with the given id. It reports false when the id
// is unknown.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	if s.persist != nil {
		if err := s.persist.DeleteTask(ctx, id); err != nil {
			s.logger.Error("storage write failed", "op", "delete_task", "id", id, "error", err)
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

// ToggleComplete flips IsCompleted on the task with the given id.
func (s *Store) ToggleComplete(ctx context.Context, id string) bool {
	return s.mutate(ctx, id, func(t model.Task) model.Task {
		t.IsCompleted = !t.IsCompleted
		return t
	})
}

// mutate applies fn to the task with the given id, keeping ID and
// CreatedAt, then persists the result.
func (s *Store) mutate(ctx context.Context, id string, fn func(model.Task) model.Task) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	orig := s.tasks[i]
	next := fn(orig.Clone())
	next.ID = orig.ID
	next.CreatedAt = orig.CreatedAt
	s.tasks[i] = next
	s.saveLocked(ctx, next)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

// saveLocked writes task through to storage. Failures are logged; the
// in-memory state stays authoritative.
func (s *Store) saveLocked(ctx context.Context, task model.Task) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveTask(ctx, task); err != nil {
		s.logger.Error("storage write failed", "op", "save_task", "id", task.ID, "error", err)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []model.Task {
	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) notify(snapshot []model.Task) {
	s.mu.RLock()
	listeners := append([]func([]model.Task){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
}
