package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/taskchat/internal/model"
)

// GetTasks retrieves all tasks, newest first, with their subtasks.
func (s *SQLiteStore) GetTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, title, description, is_completed, priority, due_date, created_at
		FROM tasks
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	index := make(map[string]int)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		index[task.ID] = len(tasks)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Batch load subtasks for all tasks.
	subRows, err := s.db.QueryxContext(ctx, `
		SELECT task_id, id, title, is_completed
		FROM subtasks
		ORDER BY task_id, sort_order`)
	if err != nil {
		return nil, fmt.Errorf("querying subtasks: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			taskID    string
			sub       model.Subtask
			completed int
		)
		if err := subRows.Scan(&taskID, &sub.ID, &sub.Title, &completed); err != nil {
			return nil, fmt.Errorf("scanning subtask row: %w", err)
		}
		sub.IsCompleted = completed != 0
		i, ok := index[taskID]
		if !ok {
			continue
		}
		tasks[i].Subtasks = append(tasks[i].Subtasks, sub)
	}

	return tasks, subRows.Err()
}

// SaveTask inserts or updates a task and replaces its subtasks, keeping
// their order.
func (s *SQLiteStore) SaveTask(ctx context.Context, task model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var due *time.Time
	if task.DueDate != nil {
		d := task.DueDate.UTC()
		due = &d
	}

	// ON CONFLICT keeps the rowid stable, which GetTasks uses as a tiebreaker.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, is_completed, priority,
			due_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			is_completed = excluded.is_completed,
			priority = excluded.priority,
			due_date = excluded.due_date,
			updated_at = excluded.updated_at`,
		task.ID, task.Title, task.Description, boolToInt(task.IsCompleted), string(task.Priority),
		due, task.CreatedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM subtasks WHERE task_id = ?", task.ID); err != nil {
		return fmt.Errorf("clearing subtasks for task %s: %w", task.ID, err)
	}

	if len(task.Subtasks) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO subtasks (id, task_id, title, is_completed, sort_order)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing subtask insert: %w", err)
		}
		defer stmt.Close()

		for i, sub := range task.Subtasks {
			if _, err := stmt.ExecContext(ctx,
				sub.ID, task.ID, sub.Title, boolToInt(sub.IsCompleted), i,
			); err != nil {
				return fmt.Errorf("saving subtask %s of task %s: %w", sub.ID, task.ID, err)
			}
		}
	}

	return tx.Commit()
}

// DeleteTask removes a task by ID. Cascades to subtasks. Deleting a missing
// task is not an error.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// scanTask scans a task row without its subtasks.
func scanTask(row interface{ Scan(...interface{}) error }) (model.Task, error) {
	var (
		task      model.Task
		completed int
		priority  string
		dueDate   *time.Time
	)

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &completed, &priority,
		&dueDate, &task.CreatedAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.IsCompleted = completed != 0
	task.Priority = model.Priority(priority)
	task.DueDate = dueDate

	return task, nil
}
