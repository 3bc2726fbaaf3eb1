package model

import (
	"strings"
	"time"
)

// Priority is the user-facing urgency of a task.
type Priority string

// Priority levels accepted on tasks and in model actions.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalizes s into a Priority. The second return value is
// false when s does not name a known priority.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityLow:
		return PriorityLow, true
	default:
		return "", false
	}
}

// Subtask is an ordered checklist entry owned by its parent Task.
type Subtask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

// Task is a personal to-do item. ID and CreatedAt never change after
// creation. The JSON shape is the one shown to the model in prompts and
// echoed back in relatedTask snapshots.
type Task struct {
	// ID is the stable unique identifier.
	ID string `json:"id"`

	// Title is the required, non-empty summary.
	Title string `json:"title"`

	// Description is optional free-form detail.
	Description string `json:"description,omitempty"`

	// IsCompleted reports whether the task has been marked done.
	IsCompleted bool `json:"isCompleted"`

	// CreatedAt is set once on creation.
	CreatedAt time.Time `json:"createdAt"`

	// DueDate is the optional deadline.
	DueDate *time.Time `json:"dueDate,omitempty"`

	// Priority is empty when unset.
	Priority Priority `json:"priority,omitempty"`

	// Subtasks keeps the user's ordering.
	Subtasks []Subtask `json:"subtasks,omitempty"`
}

// IsOverdue reports whether the task is incomplete and its due date falls
// before the start of the day containing now.
func (t Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted || t.DueDate == nil {
		return false
	}
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(startOfDay)
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the subtask slice or due date pointer.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		copy(c.Subtasks, t.Subtasks)
	}
	return c
}

// TaskPatch is a partial update. Nil fields are left untouched. ID and
// CreatedAt are deliberately absent.
type TaskPatch struct {
	Title       *string
	Description *string
	IsCompleted *bool
	DueDate     *time.Time
	ClearDue    bool
	Priority    *Priority
	Subtasks    *[]Subtask
}

// IsEmpty reports whether the patch would change nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil &&
		p.DueDate == nil && !p.ClearDue && p.Priority == nil && p.Subtasks == nil
}

// Apply merges the patch into t and returns the result. An empty title in
// the patch is ignored so a task can never lose its title.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil && strings.TrimSpace(*p.Title) != "" {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.IsCompleted != nil {
		out.IsCompleted = *p.IsCompleted
	}
	if p.ClearDue {
		out.DueDate = nil
	}
	if p.DueDate != nil {
		due := *p.DueDate
		out.DueDate = &due
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Subtasks != nil {
		out.Subtasks = make([]Subtask, len(*p.Subtasks))
		copy(out.Subtasks, *p.Subtasks)
	}
	return out
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    Priority
	Subtasks    []Subtask
}
