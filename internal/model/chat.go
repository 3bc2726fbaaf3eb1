package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the sender of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DefaultSessionTitle is shown until a session receives its first user
// message.
const DefaultSessionTitle = "New Chat"

// TaskSnapshot is a task object exactly as the model returned it. It is
// kept verbatim and only decoded on demand, so a malformed snapshot never
// breaks the surrounding reply.
type TaskSnapshot json.RawMessage

// MarshalJSON emits the snapshot bytes unchanged.
func (s TaskSnapshot) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

// UnmarshalJSON stores a copy of data.
func (s *TaskSnapshot) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("TaskSnapshot: UnmarshalJSON on nil pointer")
	}
	*s = append((*s)[0:0], data...)
	return nil
}

// Task decodes the snapshot into a Task.
func (s TaskSnapshot) Task() (Task, error) {
	var t Task
	if err := json.Unmarshal(s, &t); err != nil {
		return Task{}, fmt.Errorf("decoding task snapshot: %w", err)
	}
	return t, nil
}

// SnapshotOf encodes t as a TaskSnapshot.
func SnapshotOf(t Task) TaskSnapshot {
	data, err := json.Marshal(t)
	if err != nil {
		return nil
	}
	return TaskSnapshot(data)
}

// Equal reports whether two snapshots hold the same bytes.
func (s TaskSnapshot) Equal(o TaskSnapshot) bool {
	return bytes.Equal(s, o)
}

// PendingTask is a task draft the model is assembling with the user. It is
// not part of the task list until confirmed.
type PendingTask struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Priority    Priority `json:"priority,omitempty"`

	// IsComplete is set by the model once the draft has every field it needs.
	IsComplete bool `json:"isComplete"`

	// IsCreated is set locally after the draft was turned into a task.
	IsCreated bool `json:"isCreated,omitempty"`
}

// ChatMessage is one entry in a session log. ID is permanent once the
// message is appended; only the content fields are mutated afterwards.
type ChatMessage struct {
	ID           string         `json:"id"`
	Role         Role           `json:"role"`
	Text         string         `json:"text"`
	CreatedAt    time.Time      `json:"createdAt"`
	Suggestions  []string       `json:"suggestions,omitempty"`
	RelatedTask  TaskSnapshot   `json:"relatedTask,omitempty"`
	RelatedTasks []TaskSnapshot `json:"relatedTasks,omitempty"`
	PendingTask  *PendingTask   `json:"pendingTask,omitempty"`
}

// Clone returns a deep copy of m.
func (m ChatMessage) Clone() ChatMessage {
	c := m
	if m.Suggestions != nil {
		c.Suggestions = append([]string(nil), m.Suggestions...)
	}
	if m.RelatedTask != nil {
		c.RelatedTask = append(TaskSnapshot(nil), m.RelatedTask...)
	}
	if m.RelatedTasks != nil {
		c.RelatedTasks = make([]TaskSnapshot, len(m.RelatedTasks))
		for i, s := range m.RelatedTasks {
			c.RelatedTasks[i] = append(TaskSnapshot(nil), s...)
		}
	}
	if m.PendingTask != nil {
		p := *m.PendingTask
		c.PendingTask = &p
	}
	return c
}

// MessagePatch is a shallow merge applied to an existing message. Nil
// fields are left untouched.
type MessagePatch struct {
	Text         *string
	Suggestions  []string
	RelatedTask  TaskSnapshot
	RelatedTasks []TaskSnapshot
	PendingTask  *PendingTask
}

// Apply merges the patch into m.
func (p MessagePatch) Apply(m ChatMessage) ChatMessage {
	out := m
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Suggestions != nil {
		out.Suggestions = append([]string(nil), p.Suggestions...)
	}
	if p.RelatedTask != nil {
		out.RelatedTask = append(TaskSnapshot(nil), p.RelatedTask...)
	}
	if p.RelatedTasks != nil {
		out.RelatedTasks = append([]TaskSnapshot(nil), p.RelatedTasks...)
	}
	if p.PendingTask != nil {
		pt := *p.PendingTask
		// A created draft stays created.
		if m.PendingTask != nil && m.PendingTask.IsCreated {
			pt.IsCreated = true
		}
		out.PendingTask = &pt
	}
	return out
}

// ChatSession is one independent conversation thread.
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// HasUserMessage reports whether any message in the session was sent by
// the user.
func (s ChatSession) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of s.
func (s ChatSession) Clone() ChatSession {
	c := s
	c.Messages = make([]ChatMessage, len(s.Messages))
	for i, m := range s.Messages {
		c.Messages[i] = m.Clone()
	}
	return c
}
