package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/taskchat/internal/model"
)

// GetSessions retrieves all chat sessions with their messages in append
// order. Sessions are returned most recently updated first.
func (s *SQLiteStore) GetSessions(ctx context.Context) ([]model.ChatSession, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM chat_sessions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.ChatSession
	index := make(map[string]int)
	for rows.Next() {
		var sess model.ChatSession
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat session row: %w", err)
		}
		index[sess.ID] = len(sessions)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	msgRows, err := s.db.QueryxContext(ctx, `
		SELECT session_id, id, role, text, created_at,
			suggestions, related_task, related_tasks, pending_task
		FROM chat_messages
		ORDER BY session_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		sessionID, msg, err := scanMessage(msgRows)
		if err != nil {
			return nil, err
		}
		i, ok := index[sessionID]
		if !ok {
			continue
		}
		sessions[i].Messages = append(sessions[i].Messages, msg)
	}

	return sessions, msgRows.Err()
}

// SaveSession inserts or updates a session header. Messages are written
// separately with SaveMessage.
func (s *SQLiteStore) SaveSession(ctx context.Context, session model.ChatSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at`,
		session.ID, session.Title, session.CreatedAt.UTC(), session.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving chat session %s: %w", session.ID, err)
	}
	return nil
}

// SaveMessage inserts or updates one message of a session at position seq.
func (s *SQLiteStore) SaveMessage(
	ctx context.Context,
	sessionID string,
	seq int,
	msg model.ChatMessage,
) error {
	suggestions, err := marshalOptional(msg.Suggestions, msg.Suggestions == nil)
	if err != nil {
		return fmt.Errorf("marshaling suggestions for message %s: %w", msg.ID, err)
	}
	relatedTasks, err := marshalOptional(msg.RelatedTasks, msg.RelatedTasks == nil)
	if err != nil {
		return fmt.Errorf("marshaling related tasks for message %s: %w", msg.ID, err)
	}
	pending, err := marshalOptional(msg.PendingTask, msg.PendingTask == nil)
	if err != nil {
		return fmt.Errorf("marshaling pending task for message %s: %w", msg.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (
			id, session_id, seq, role, text, created_at,
			suggestions, related_task, related_tasks, pending_task
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			suggestions = excluded.suggestions,
			related_task = excluded.related_task,
			related_tasks = excluded.related_tasks,
			pending_task = excluded.pending_task`,
		msg.ID, sessionID, seq, string(msg.Role), msg.Text, msg.CreatedAt.UTC(),
		suggestions, string(msg.RelatedTask), relatedTasks, pending,
	)
	if err != nil {
		return fmt.Errorf("saving chat message %s: %w", msg.ID, err)
	}
	return nil
}

// DeleteSession removes a session by ID. Cascades to its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting chat session %s: %w", id, err)
	}
	return nil
}

// scanMessage scans a chat message row and returns its session ID.
func scanMessage(row interface{ Scan(...interface{}) error }) (string, model.ChatMessage, error) {
	var (
		sessionID    string
		msg          model.ChatMessage
		role         string
		createdAt    time.Time
		suggestions  string
		relatedTask  string
		relatedTasks string
		pending      string
	)

	err := row.Scan(
		&sessionID, &msg.ID, &role, &msg.Text, &createdAt,
		&suggestions, &relatedTask, &relatedTasks, &pending,
	)
	if err != nil {
		return "", model.ChatMessage{}, fmt.Errorf("scanning chat message row: %w", err)
	}

	msg.Role = model.Role(role)
	msg.CreatedAt = createdAt

	if suggestions != "" {
		if err := json.Unmarshal([]byte(suggestions), &msg.Suggestions); err != nil {
			return "", model.ChatMessage{}, fmt.Errorf("unmarshaling suggestions: %w", err)
		}
	}
	if relatedTask != "" {
		msg.RelatedTask = model.TaskSnapshot(relatedTask)
	}
	if relatedTasks != "" {
		if err := json.Unmarshal([]byte(relatedTasks), &msg.RelatedTasks); err != nil {
			return "", model.ChatMessage{}, fmt.Errorf("unmarshaling related tasks: %w", err)
		}
	}
	if pending != "" {
		var p model.PendingTask
		if err := json.Unmarshal([]byte(pending), &p); err != nil {
			return "", model.ChatMessage{}, fmt.Errorf("unmarshaling pending task: %w", err)
		}
		msg.PendingTask = &p
	}

	return sessionID, msg, nil
}

// marshalOptional encodes v as JSON, or returns "" when absent is true.
func marshalOptional(v interface{}, absent bool) (string, error) {
	if absent {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
