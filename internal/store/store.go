package store

import (
	"context"

	"github.com/nhle/taskchat/internal/model"
)

// Setting keys used by the application.
const (
	SettingCurrentSession = "current_session_id"
	SettingUserProfile    = "user_profile"
)

// Store defines the persistence interface for tasks, chat sessions and
// application settings.
type Store interface {
	// === Tasks ===

	// GetTasks returns every task, most recently created first, with
	// subtasks in their stored order.
	GetTasks(ctx context.Context) ([]model.Task, error)
	SaveTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error

	// === Chat sessions ===

	// GetSessions returns every session with its messages in append order.
	GetSessions(ctx context.Context) ([]model.ChatSession, error)
	SaveSession(ctx context.Context, session model.ChatSession) error
	SaveMessage(ctx context.Context, sessionID string, seq int, msg model.ChatMessage) error
	DeleteSession(ctx context.Context, id string) error

	// === Settings ===

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}
