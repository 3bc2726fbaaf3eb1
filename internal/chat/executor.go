package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nhle/taskchat/internal/logging"
	"github.com/nhle/taskchat/internal/model"
)

// TaskMutator is the task store entry points the executor uses. Chat
// actions go through the same methods as direct user edits.
type TaskMutator interface {
	Create(ctx context.Context, in model.TaskInput) (model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) bool
	Delete(ctx context.Context, id string) bool
	Get(id string) (model.Task, bool)
}

// Outcome reports what executing one action did.
type Outcome struct {
	Type    model.ActionType
	TaskID  string
	Applied bool

	// Reason explains why an action was dropped.
	Reason string

	// Task is the resulting task for CREATE, UPDATE and COMPLETE.
	Task *model.Task

	// Duplicate is set when the action had already run for this reply.
	Duplicate bool
}

// Executor applies parsed actions to the task store. Each reply message id
// runs at most once.
type Executor struct {
	tasks  TaskMutator
	logger *slog.Logger

	mu      sync.Mutex
	applied map[string]Outcome
	order   []string // reply ids in apply order, oldest first
	limit   int
}

// DefaultAppliedLimit is how many recent reply ids an Executor remembers.
const DefaultAppliedLimit = 512

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithAppliedLimit bounds how many reply ids are remembered for
// once-per-reply checks. Older ids are forgotten first.
func WithAppliedLimit(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.limit = n
		}
	}
}

// NewExecutor returns an Executor over tasks.
func NewExecutor(tasks TaskMutator, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		tasks:   tasks,
		logger:  logging.OrDefault(logger),
		applied: make(map[string]Outcome),
		limit:   DefaultAppliedLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies action on behalf of the reply message replyID. Unknown or
// missing actions are no-ops. Invalid actions are dropped and logged.
func (e *Executor) Execute(ctx context.Context, replyID string, action *model.Action) Outcome {
	kind := action.Kind()
	if kind == model.ActionNone {
		return Outcome{Type: model.ActionNone}
	}

	// The lock spans the call: a reply id reaches the task store at most once.
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.applied[replyID]; ok && replyID != "" {
		prev.Duplicate = true
		return prev
	}

	log := logging.FromContext(ctx, e.logger).With("action", string(kind), "reply_id", replyID)

	var out Outcome
	switch kind {
	case model.ActionCreate:
		out = e.create(ctx, log, action)
	case model.ActionUpdate:
		out = e.update(ctx, log, action)
	case model.ActionDelete:
		out = e.delete(ctx, log, action)
	case model.ActionComplete:
		out = e.complete(ctx, log, action)
	}

	if replyID != "" {
		e.rememberLocked(replyID, out)
	}
	return out
}

func (e *Executor) rememberLocked(replyID string, out Outcome) {
	e.applied[replyID] = out
	e.order = append(e.order, replyID)
	for len(e.order) > e.limit {
		delete(e.applied, e.order[0])
		e.order = e.order[1:]
	}
}

func (e *Executor) create(ctx context.Context, log *slog.Logger, action *model.Action) Outcome {
	out := Outcome{Type: model.ActionCreate}
	d := action.Task
	if d == nil || d.Title == nil || strings.TrimSpace(*d.Title) == "" {
		out.Reason = "missing title"
		log.Warn("dropped action", "reason", out.Reason)
		return out
	}

	in := model.TaskInput{Title: *d.Title}
	if d.Description != nil {
		in.Description = *d.Description
	}
	if d.DueDate != nil && *d.DueDate != "" {
		if due, ok := actionDueDate(log, *d.DueDate); ok {
			in.DueDate = &due
		}
	}
	if d.Priority != nil && *d.Priority != "" {
		if p, ok := model.ParsePriority(*d.Priority); ok {
			in.Priority = p
		} else {
			log.Warn("ignored invalid priority", "priority", *d.Priority)
		}
	}

	task, err := e.tasks.Create(ctx, in)
	if err != nil {
		out.Reason = err.Error()
		log.Warn("dropped action", "reason", out.Reason)
		return out
	}
	out.Applied = true
	out.TaskID = task.ID
	out.Task = &task
	log.Info("applied action", "task_id", task.ID)
	return out
}

func (e *Executor) update(ctx context.Context, log *slog.Logger, action *model.Action) Outcome {
	out := Outcome{Type: model.ActionUpdate, TaskID: action.ID}
	if action.ID == "" {
		out.Reason = "missing id"
		log.Warn("dropped action", "reason", out.Reason)
		return out
	}

	patch := patchFromDraft(log, action.Updates)
	if patch.IsEmpty() {
		out.Reason = "no valid updates"
		log.Warn("dropped action", "reason", out.Reason, "task_id", action.ID)
		return out
	}
	return e.applyPatch(ctx, log, out, patch)
}

func (e *Executor) complete(ctx context.Context, log *slog.Logger, action *model.Action) Outcome {
	out := Outcome{Type: model.ActionComplete, TaskID: action.ID}
	if action.ID == "" {
		out.Reason = "missing id"
		log.Warn("dropped action", "reason", out.Reason)
		return out
	}
	done := true
	return e.applyPatch(ctx, log, out, model.TaskPatch{IsCompleted: &done})
}

func (e *Executor) applyPatch(ctx context.Context, log *slog.Logger, out Outcome, patch model.TaskPatch) Outcome {
	if !e.tasks.Update(ctx, out.TaskID, patch) {
		out.Reason = "unknown task id"
		log.Info("action had no effect", "reason", out.Reason, "task_id", out.TaskID)
		return out
	}
	out.Applied = true
	if task, ok := e.tasks.Get(out.TaskID); ok {
		out.Task = &task
	}
	log.Info("applied action", "task_id", out.TaskID)
	return out
}

func (e *Executor) delete(ctx context.Context, log *slog.Logger, action *model.Action) Outcome {
	out := Outcome{Type: model.ActionDelete, TaskID: action.ID}
	if action.ID == "" {
		out.Reason = "missing id"
		log.Warn("dropped action", "reason", out.Reason)
		return out
	}
	if !e.tasks.Delete(ctx, action.ID) {
		out.Reason = "unknown task id"
		log.Info("action had no effect", "reason", out.Reason, "task_id", action.ID)
		return out
	}
	out.Applied = true
	log.Info("applied action", "task_id", action.ID)
	return out
}

// patchFromDraft converts model-supplied update fields into a TaskPatch,
// skipping values that do not validate. An empty dueDate clears the date.
func patchFromDraft(log *slog.Logger, d *model.TaskDraft) model.TaskPatch {
	var patch model.TaskPatch
	if d == nil {
		return patch
	}
	if d.Title != nil && strings.TrimSpace(*d.Title) != "" {
		patch.Title = d.Title
	}
	if d.Description != nil {
		patch.Description = d.Description
	}
	if d.IsCompleted != nil {
		patch.IsCompleted = d.IsCompleted
	}
	if d.DueDate != nil {
		if *d.DueDate == "" {
			patch.ClearDue = true
		} else if due, ok := actionDueDate(log, *d.DueDate); ok {
			patch.DueDate = &due
		}
	}
	if d.Priority != nil {
		if p, ok := model.ParsePriority(*d.Priority); ok {
			patch.Priority = &p
		} else {
			log.Warn("ignored invalid priority", "priority", *d.Priority)
		}
	}
	return patch
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	dateOnlyLayout,
}

// dateOnlyLayout is accepted from the model even though replies should
// carry a full datetime.
const dateOnlyLayout = "2006-01-02"

// actionDueDate parses a model-supplied due date, logging values that are
// invalid or carry no time of day.
func actionDueDate(log *slog.Logger, s string) (time.Time, bool) {
	due, ok := ParseDueDate(s)
	if !ok {
		log.Warn("ignored invalid due date", "due_date", s)
		return time.Time{}, false
	}
	if IsDateOnly(s) {
		log.Warn("due date has no time of day, using local midnight", "due_date", s)
	}
	return due, true
}

// IsDateOnly reports whether s is a bare YYYY-MM-DD date.
func IsDateOnly(s string) bool {
	_, err := time.ParseInLocation(dateOnlyLayout, strings.TrimSpace(s), time.Local)
	return err == nil
}

// ParseDueDate parses an ISO-8601 date or datetime. Values without a zone
// are read in local time.
func ParseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
