package tasks

import (
	"context"
	"strings"

	"github.com/nhle/taskchat/internal/model"
)

// AddSubtask appends a new subtask to the task. It reports false when the
// task is unknown or the title is blank.
func (s *Store) AddSubtask(ctx context.Context, taskID, title string) (model.Subtask, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Subtask{}, false
	}
	task, ok := s.Get(taskID)
	if !ok {
		return model.Subtask{}, false
	}
	sub := model.Subtask{ID: s.newID(), Title: title}
	subs := append(task.Subtasks, sub)
	if !s.Update(ctx, taskID, model.TaskPatch{Subtasks: &subs}) {
		return model.Subtask{}, false
	}
	return sub, true
}

// ToggleSubtask flips IsCompleted on one subtask.
func (s *Store) ToggleSubtask(ctx context.Context, taskID, subtaskID string) bool {
	task, ok := s.Get(taskID)
	if !ok {
		return false
	}
	subs := task.Subtasks
	found := false
	for i := range subs {
		if subs[i].ID == subtaskID {
			subs[i].IsCompleted = !subs[i].IsCompleted
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return s.Update(ctx, taskID, model.TaskPatch{Subtasks: &subs})
}

// RemoveSubtask deletes one subtask, keeping the order of the rest.
func (s *Store) RemoveSubtask(ctx context.Context, taskID, subtaskID string) bool {
	task, ok := s.Get(taskID)
	if !ok {
		return false
	}
	subs := make([]model.Subtask, 0, len(task.Subtasks))
	for _, sub := range task.Subtasks {
		if sub.ID != subtaskID {
			subs = append(subs, sub)
		}
	}
	if len(subs) == len(task.Subtasks) {
		return false
	}
	return s.Update(ctx, taskID, model.TaskPatch{Subtasks: &subs})
}

// ReorderSubtasks rearranges subtasks to match order, which must list every
// existing subtask id exactly once.
func (s *Store) ReorderSubtasks(ctx context.Context, taskID string, order []string) bool {
	task, ok := s.Get(taskID)
	if !ok || len(order) != len(task.Subtasks) {
		return false
	}
	byID := make(map[string]model.Subtask, len(task.Subtasks))
	for _, sub := range task.Subtasks {
		byID[sub.ID] = sub
	}
	subs := make([]model.Subtask, 0, len(order))
	for _, id := range order {
		sub, ok := byID[id]
		if !ok {
			return false
		}
		delete(byID, id)
		subs = append(subs, sub)
	}
	return s.Update(ctx, taskID, model.TaskPatch{Subtasks: &subs})
}
